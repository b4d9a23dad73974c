package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/influnest/backend/internal/models"
	"github.com/influnest/backend/internal/payout"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const campaignColumns = `id, influencer_addr, brand_addr, name, description, handle,
	       funded_amount, amount_paid,
	       target_likes, target_comments, target_views, target_shares,
	       current_likes, current_comments, current_views, current_shares,
	       deadline_at, status, created_at, updated_at`

type CampaignRepo struct {
	pool *pgxpool.Pool
}

func NewCampaignRepo(pool *pgxpool.Pool) *CampaignRepo {
	return &CampaignRepo{pool: pool}
}

func scanCampaign(row pgx.Row) (*models.Campaign, error) {
	var c models.Campaign
	err := row.Scan(&c.ID, &c.InfluencerAddr, &c.BrandAddr, &c.Name, &c.Description, &c.Handle,
		&c.FundedAmount, &c.AmountPaid,
		&c.TargetLikes, &c.TargetComments, &c.TargetViews, &c.TargetShares,
		&c.CurrentLikes, &c.CurrentComments, &c.CurrentViews, &c.CurrentShares,
		&c.DeadlineAt, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CampaignRepo) Create(ctx context.Context, tx pgx.Tx, c *models.Campaign) error {
	return tx.QueryRow(ctx, `
		INSERT INTO campaigns (influencer_addr, name, description, handle, funded_amount,
		                       target_likes, target_comments, target_views, target_shares,
		                       deadline_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`, c.InfluencerAddr, c.Name, c.Description, c.Handle, c.FundedAmount,
		c.TargetLikes, c.TargetComments, c.TargetViews, c.TargetShares,
		c.DeadlineAt, c.Status,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *CampaignRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	c, err := scanCampaign(r.pool.QueryRow(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &models.NotFoundError{Entity: "campaign", ID: id.String()}
	}
	return c, err
}

// GetByIDForUpdate locks the campaign row for the duration of the transaction.
// Every state-changing operation goes through this lock so concurrent updates
// on the same campaign serialize instead of interleaving.
func (r *CampaignRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Campaign, error) {
	c, err := scanCampaign(tx.QueryRow(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &models.NotFoundError{Entity: "campaign", ID: id.String()}
	}
	return c, err
}

type CampaignFilter struct {
	InfluencerAddr *string
	BrandAddr      *string
	Status         *models.CampaignStatus
	Limit          int
	Offset         int
}

// bounds clamps caller-supplied paging values to what the query accepts:
// postgres rejects a negative OFFSET outright, and an unbounded LIMIT is
// never served.
func (f CampaignFilter) bounds() (limit, offset int) {
	limit = f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset = f.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (r *CampaignRepo) List(ctx context.Context, f CampaignFilter) ([]models.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns`
	args := []any{}
	argIdx := 1
	where := []string{}

	if f.InfluencerAddr != nil {
		where = append(where, fmt.Sprintf("influencer_addr = $%d", argIdx))
		args = append(args, *f.InfluencerAddr)
		argIdx++
	}
	if f.BrandAddr != nil {
		where = append(where, fmt.Sprintf("brand_addr = $%d", argIdx))
		args = append(args, *f.BrandAddr)
		argIdx++
	}
	if f.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *f.Status)
		argIdx++
	}

	if len(where) > 0 {
		query += " WHERE "
		for i, w := range where {
			if i > 0 {
				query += " AND "
			}
			query += w
		}
	}

	limit, offset := f.bounds()
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []models.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, *c)
	}
	return campaigns, rows.Err()
}

// ListExpiryDue returns non-terminal campaigns whose deadline has passed.
// Used by the worker for notifications only; the engine itself re-checks the
// deadline inside every operation.
func (r *CampaignRepo) ListExpiryDue(ctx context.Context, limit int) ([]models.Campaign, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+campaignColumns+`
		FROM campaigns
		WHERE status IN ($1, $2) AND deadline_at < now()
		ORDER BY deadline_at ASC LIMIT $3
	`, models.CampaignStatusPending, models.CampaignStatusActive, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []models.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, *c)
	}
	return campaigns, rows.Err()
}

// SetFunded binds the brand and flips the campaign to Active.
func (r *CampaignRepo) SetFunded(ctx context.Context, tx pgx.Tx, id uuid.UUID, brandAddr string) error {
	_, err := tx.Exec(ctx, `
		UPDATE campaigns SET brand_addr = $1, status = $2, updated_at = now() WHERE id = $3
	`, brandAddr, models.CampaignStatusActive, id)
	return err
}

func (r *CampaignRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status models.CampaignStatus) error {
	_, err := tx.Exec(ctx, `UPDATE campaigns SET status = $1, updated_at = now() WHERE id = $2`, status, id)
	return err
}

// ApplyMetricUpdate writes the metric snapshot, the new cumulative paid
// amount, and the (possibly unchanged) status in one statement so the row
// never shows a mixed state.
func (r *CampaignRepo) ApplyMetricUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID, m payout.MetricSet, amountPaid int64, status models.CampaignStatus) error {
	_, err := tx.Exec(ctx, `
		UPDATE campaigns
		SET current_likes = $1, current_comments = $2, current_views = $3, current_shares = $4,
		    amount_paid = $5, status = $6, updated_at = now()
		WHERE id = $7
	`, m.Likes, m.Comments, m.Views, m.Shares, amountPaid, status, id)
	return err
}

// ---- Posts ----

func (r *CampaignRepo) CountPosts(ctx context.Context, tx pgx.Tx, campaignID uuid.UUID) (int, error) {
	var n int
	err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM campaign_posts WHERE campaign_id = $1`, campaignID).Scan(&n)
	return n, err
}

func (r *CampaignRepo) PostExists(ctx context.Context, tx pgx.Tx, campaignID uuid.UUID, externalPostID string) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM campaign_posts WHERE campaign_id = $1 AND external_post_id = $2)
	`, campaignID, externalPostID).Scan(&exists)
	return exists, err
}

func (r *CampaignRepo) AddPost(ctx context.Context, tx pgx.Tx, p *models.CampaignPost) error {
	return tx.QueryRow(ctx, `
		INSERT INTO campaign_posts (campaign_id, external_post_id, post_url)
		VALUES ($1, $2, $3)
		RETURNING id, added_at
	`, p.CampaignID, p.ExternalPostID, p.PostURL).Scan(&p.ID, &p.AddedAt)
}

func (r *CampaignRepo) ListPosts(ctx context.Context, campaignID uuid.UUID) ([]models.CampaignPost, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, campaign_id, external_post_id, post_url, added_at
		FROM campaign_posts WHERE campaign_id = $1 ORDER BY added_at ASC
	`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []models.CampaignPost
	for rows.Next() {
		var p models.CampaignPost
		if err := rows.Scan(&p.ID, &p.CampaignID, &p.ExternalPostID, &p.PostURL, &p.AddedAt); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}
