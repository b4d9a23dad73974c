package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/influnest/backend/internal/events"
	"github.com/influnest/backend/internal/models"
	"github.com/influnest/backend/internal/payout"
	"github.com/influnest/backend/internal/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Actor types for audit entries
const (
	ActorInfluencer = "influencer"
	ActorBrand      = "brand"
	ActorOracle     = "oracle"
	ActorSystem     = "system"
)

// txBeginner is the slice of the pgx pool the services need to open
// transactions. Tests substitute a fake.
type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type campaignStore interface {
	Create(ctx context.Context, tx pgx.Tx, c *models.Campaign) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Campaign, error)
	List(ctx context.Context, f repositories.CampaignFilter) ([]models.Campaign, error)
	SetFunded(ctx context.Context, tx pgx.Tx, id uuid.UUID, brandAddr string) error
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status models.CampaignStatus) error
	ApplyMetricUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID, m payout.MetricSet, amountPaid int64, status models.CampaignStatus) error
	CountPosts(ctx context.Context, tx pgx.Tx, campaignID uuid.UUID) (int, error)
	PostExists(ctx context.Context, tx pgx.Tx, campaignID uuid.UUID, externalPostID string) (bool, error)
	AddPost(ctx context.Context, tx pgx.Tx, p *models.CampaignPost) error
	ListPosts(ctx context.Context, campaignID uuid.UUID) ([]models.CampaignPost, error)
}

type vaultStore interface {
	Create(ctx context.Context, tx pgx.Tx, v *models.Vault) error
	Exists(ctx context.Context, tx pgx.Tx, campaignID uuid.UUID) (bool, error)
	Get(ctx context.Context, campaignID uuid.UUID) (*models.Vault, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, campaignID uuid.UUID) (*models.Vault, error)
	Debit(ctx context.Context, tx pgx.Tx, campaignID uuid.UUID, amount int64) error
	AddTransfer(ctx context.Context, tx pgx.Tx, t *models.VaultTransfer) error
	ListTransfers(ctx context.Context, campaignID uuid.UUID) ([]models.VaultTransfer, error)
}

type oracleReader interface {
	GetTx(ctx context.Context, tx pgx.Tx) (*models.OracleConfig, error)
}

type auditStore interface {
	LogTx(ctx context.Context, tx pgx.Tx, entry models.AuditLog) error
	GetByEntity(ctx context.Context, entityType string, entityID uuid.UUID, limit, offset int) ([]models.AuditLog, error)
}

// CampaignService owns the campaign lifecycle. Every mutating operation runs
// as one transaction that locks the campaign row first, so operations on the
// same campaign serialize and the row is never observed mid-operation. The
// audit row commits in the same transaction as the state change; only event
// publication happens after commit and is best-effort.
// Expiry is evaluated lazily against the injected clock at the entry of each
// operation; no timers run here.
type CampaignService struct {
	db           txBeginner
	campaignRepo campaignStore
	vaultRepo    vaultStore
	oracleRepo   oracleReader
	auditRepo    auditStore
	publisher    events.Publisher
	clock        clockwork.Clock
	log          *zap.Logger
}

func NewCampaignService(
	db txBeginner,
	campaignRepo campaignStore,
	vaultRepo vaultStore,
	oracleRepo oracleReader,
	auditRepo auditStore,
	publisher events.Publisher,
	clock clockwork.Clock,
	log *zap.Logger,
) *CampaignService {
	return &CampaignService{
		db:           db,
		campaignRepo: campaignRepo,
		vaultRepo:    vaultRepo,
		oracleRepo:   oracleRepo,
		auditRepo:    auditRepo,
		publisher:    publisher,
		clock:        clock,
		log:          log,
	}
}

func (s *CampaignService) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// audit appends the audit row inside the operation's transaction: an
// operation whose audit row cannot be written does not commit at all.
func (s *CampaignService) audit(ctx context.Context, tx pgx.Tx, actorAddr *string, actorType, action string, entityID uuid.UUID, meta map[string]any) error {
	err := s.auditRepo.LogTx(ctx, tx, models.AuditLog{
		ActorAddr:  actorAddr,
		ActorType:  actorType,
		Action:     action,
		EntityType: "campaign",
		EntityID:   &entityID,
		Meta:       meta,
	})
	if err != nil {
		return fmt.Errorf("audit %s: %w", action, err)
	}
	return nil
}

func (s *CampaignService) publish(ctx context.Context, eventType string, payload map[string]any) {
	_ = s.publisher.Publish(ctx, events.StreamCampaign, events.Event{
		Type:    eventType,
		Payload: payload,
	})
}

// Create registers a new Pending campaign owned by the influencer. Funds are
// not involved yet; the vault is created when a brand funds the campaign.
func (s *CampaignService) Create(ctx context.Context, influencerAddr string, c *models.Campaign) error {
	c.InfluencerAddr = influencerAddr
	c.Status = models.CampaignStatusPending

	if err := c.ValidateForCreate(s.clock.Now()); err != nil {
		return err
	}

	err := s.inTx(ctx, func(tx pgx.Tx) error {
		if err := s.campaignRepo.Create(ctx, tx, c); err != nil {
			return fmt.Errorf("create campaign: %w", err)
		}
		return s.audit(ctx, tx, &influencerAddr, ActorInfluencer, "campaign_created", c.ID, map[string]any{
			"name":          c.Name,
			"funded_amount": c.FundedAmount,
			"deadline_at":   c.DeadlineAt,
		})
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.EventCampaignCreated, map[string]any{
		"campaign_id":     c.ID.String(),
		"influencer_addr": c.InfluencerAddr,
		"funded_amount":   c.FundedAmount,
		"status":          c.Status,
	})

	return nil
}

// Fund escrows the full campaign amount in one atomic deposit and activates
// the campaign. Partial and repeated funding are rejected; the deposit amount
// must equal funded_amount exactly.
func (s *CampaignService) Fund(ctx context.Context, id uuid.UUID, brandAddr string, amount int64) (*models.Campaign, error) {
	var campaign *models.Campaign

	err := s.inTx(ctx, func(tx pgx.Tx) error {
		c, err := s.campaignRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		switch c.Status {
		case models.CampaignStatusPending:
			// fundable
		case models.CampaignStatusActive, models.CampaignStatusCompleted,
			models.CampaignStatusCancelled, models.CampaignStatusExpired:
			return &models.InvalidStateError{CampaignID: c.ID, Status: c.Status, Op: "fund"}
		default:
			return &models.InvalidStateError{CampaignID: c.ID, Status: c.Status, Op: "fund"}
		}

		if c.DeadlinePassed(s.clock.Now()) {
			return &models.ExpiryError{CampaignID: c.ID, DeadlineAt: c.DeadlineAt}
		}
		if amount != c.FundedAmount {
			return &models.ValidationError{
				Field:  "amount",
				Reason: fmt.Sprintf("deposit must equal funded_amount %d, got %d", c.FundedAmount, amount),
			}
		}

		// Status Pending implies no vault; this guards the invariant anyway.
		exists, err := s.vaultRepo.Exists(ctx, tx, c.ID)
		if err != nil {
			return err
		}
		if exists {
			return &models.InvalidStateError{CampaignID: c.ID, Status: c.Status, Op: "fund (already funded)"}
		}

		vault := &models.Vault{CampaignID: c.ID, Balance: amount}
		if err := s.vaultRepo.Create(ctx, tx, vault); err != nil {
			return fmt.Errorf("create vault: %w", err)
		}
		if err := s.vaultRepo.AddTransfer(ctx, tx, &models.VaultTransfer{
			CampaignID:       c.ID,
			Direction:        models.TransferDeposit,
			Amount:           amount,
			CounterpartyAddr: brandAddr,
		}); err != nil {
			return fmt.Errorf("record deposit: %w", err)
		}
		if err := s.campaignRepo.SetFunded(ctx, tx, c.ID, brandAddr); err != nil {
			return fmt.Errorf("activate campaign: %w", err)
		}

		c.BrandAddr = &brandAddr
		c.Status = models.CampaignStatusActive
		campaign = c
		return s.audit(ctx, tx, &brandAddr, ActorBrand, "campaign_funded", c.ID, map[string]any{"amount": amount})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventCampaignFunded, map[string]any{
		"campaign_id": campaign.ID.String(),
		"brand_addr":  brandAddr,
		"amount":      amount,
	})
	s.publish(ctx, events.EventCampaignStatusChanged, map[string]any{
		"campaign_id": campaign.ID.String(),
		"old_status":  models.CampaignStatusPending,
		"new_status":  models.CampaignStatusActive,
	})

	return campaign, nil
}

// AddPost appends a post to the campaign's post list. Only the campaign's
// influencer may add posts, only while the campaign is Active, and external
// post ids must be unique within the campaign.
func (s *CampaignService) AddPost(ctx context.Context, id uuid.UUID, callerAddr, postURL, externalPostID string) (*models.CampaignPost, error) {
	var post *models.CampaignPost

	err := s.inTx(ctx, func(tx pgx.Tx) error {
		c, err := s.campaignRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		switch c.Status {
		case models.CampaignStatusActive:
			// posts allowed
		case models.CampaignStatusPending, models.CampaignStatusCompleted,
			models.CampaignStatusCancelled, models.CampaignStatusExpired:
			return &models.InvalidStateError{CampaignID: c.ID, Status: c.Status, Op: "add post"}
		default:
			return &models.InvalidStateError{CampaignID: c.ID, Status: c.Status, Op: "add post"}
		}

		// Authorization is decided before expiry: a caller who may not touch
		// the campaign learns nothing about its deadline.
		if callerAddr != c.InfluencerAddr {
			return &models.AuthorizationError{CampaignID: c.ID, Caller: callerAddr, Op: "add post"}
		}
		if c.DeadlinePassed(s.clock.Now()) {
			return &models.ExpiryError{CampaignID: c.ID, DeadlineAt: c.DeadlineAt}
		}
		if err := models.ValidatePost(postURL, externalPostID); err != nil {
			return err
		}

		n, err := s.campaignRepo.CountPosts(ctx, tx, c.ID)
		if err != nil {
			return err
		}
		if n >= models.MaxPostsPerCampaign {
			return &models.ValidationError{Field: "posts", Reason: "post limit reached (max 50)"}
		}

		dup, err := s.campaignRepo.PostExists(ctx, tx, c.ID, externalPostID)
		if err != nil {
			return err
		}
		if dup {
			return &models.ValidationError{Field: "external_post_id", Reason: "already present in this campaign"}
		}

		post = &models.CampaignPost{
			CampaignID:     c.ID,
			ExternalPostID: externalPostID,
			PostURL:        postURL,
		}
		if err := s.campaignRepo.AddPost(ctx, tx, post); err != nil {
			return err
		}
		return s.audit(ctx, tx, &callerAddr, ActorInfluencer, "campaign_post_added", c.ID, map[string]any{
			"external_post_id": externalPostID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventCampaignPostAdded, map[string]any{
		"campaign_id":      id.String(),
		"external_post_id": externalPostID,
		"post_url":         postURL,
	})

	return post, nil
}

// MetricUpdateResult reports what a committed oracle snapshot did.
type MetricUpdateResult struct {
	Campaign *models.Campaign `json:"campaign"`
	Released int64            `json:"released"`
}

// UpdateMetrics applies an oracle-attested snapshot: validates monotonicity,
// recomputes progress, releases the payout delta from the vault to the
// influencer, and completes the campaign once the full amount is paid.
// A snapshot carrying no new progress is committed as a funds no-op, which
// makes oracle retries and duplicate submissions safe to replay.
func (s *CampaignService) UpdateMetrics(ctx context.Context, id uuid.UUID, callerAddr string, next payout.MetricSet) (*MetricUpdateResult, error) {
	var (
		campaign  *models.Campaign
		released  int64
		oldStatus models.CampaignStatus
	)

	err := s.inTx(ctx, func(tx pgx.Tx) error {
		c, err := s.campaignRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		oldStatus = c.Status

		switch c.Status {
		case models.CampaignStatusActive:
			// oracle-writable
		case models.CampaignStatusPending, models.CampaignStatusCompleted,
			models.CampaignStatusCancelled, models.CampaignStatusExpired:
			return &models.InvalidStateError{CampaignID: c.ID, Status: c.Status, Op: "update metrics"}
		default:
			return &models.InvalidStateError{CampaignID: c.ID, Status: c.Status, Op: "update metrics"}
		}

		reg, err := s.oracleRepo.GetTx(ctx, tx)
		if err != nil {
			return err
		}
		if callerAddr != reg.OracleAddr {
			return &models.AuthorizationError{CampaignID: c.ID, Caller: callerAddr, Op: "update metrics"}
		}

		if c.DeadlinePassed(s.clock.Now()) {
			return &models.ExpiryError{CampaignID: c.ID, DeadlineAt: c.DeadlineAt}
		}

		if err := c.ValidateMetricUpdate(next); err != nil {
			return err
		}

		progress := payout.Progress(next, c.Targets())
		delta := payout.NextDelta(c.FundedAmount, c.AmountPaid, progress)

		amountPaid := c.AmountPaid
		if delta > 0 {
			vault, err := s.vaultRepo.GetForUpdate(ctx, tx, c.ID)
			if err != nil {
				return err
			}
			if delta > vault.Balance {
				// Unreachable while the ledger invariant holds; a hit here
				// means the accounting is broken.
				return &models.InsufficientVaultBalanceError{
					CampaignID: c.ID,
					Requested:  delta,
					Balance:    vault.Balance,
				}
			}
			if err := s.vaultRepo.Debit(ctx, tx, c.ID, delta); err != nil {
				return fmt.Errorf("debit vault: %w", err)
			}
			if err := s.vaultRepo.AddTransfer(ctx, tx, &models.VaultTransfer{
				CampaignID:       c.ID,
				Direction:        models.TransferRelease,
				Amount:           delta,
				CounterpartyAddr: c.InfluencerAddr,
			}); err != nil {
				return fmt.Errorf("record release: %w", err)
			}
			amountPaid += delta
			released = delta
		}

		status := c.Status
		if amountPaid == c.FundedAmount {
			status = models.CampaignStatusCompleted
		}

		if err := s.campaignRepo.ApplyMetricUpdate(ctx, tx, c.ID, next, amountPaid, status); err != nil {
			return fmt.Errorf("apply metric update: %w", err)
		}

		c.CurrentLikes = next.Likes
		c.CurrentComments = next.Comments
		c.CurrentViews = next.Views
		c.CurrentShares = next.Shares
		c.AmountPaid = amountPaid
		c.Status = status
		campaign = c
		return s.audit(ctx, tx, &callerAddr, ActorOracle, "campaign_metrics_updated", c.ID, map[string]any{
			"metrics":     next,
			"released":    released,
			"amount_paid": amountPaid,
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventMetricsUpdated, map[string]any{
		"campaign_id": id.String(),
		"metrics":     next,
		"amount_paid": campaign.AmountPaid,
		"status":      campaign.Status,
	})
	if released > 0 {
		s.publish(ctx, events.EventPayoutReleased, map[string]any{
			"campaign_id":     id.String(),
			"influencer_addr": campaign.InfluencerAddr,
			"amount":          released,
			"amount_paid":     campaign.AmountPaid,
		})
	}
	if campaign.Status != oldStatus {
		s.publish(ctx, events.EventCampaignStatusChanged, map[string]any{
			"campaign_id": id.String(),
			"old_status":  oldStatus,
			"new_status":  campaign.Status,
		})
	}

	return &MetricUpdateResult{Campaign: campaign, Released: released}, nil
}

// Cancel withdraws a still-unfunded campaign. Only the influencer who created
// it may cancel, and only while it is Pending.
func (s *CampaignService) Cancel(ctx context.Context, id uuid.UUID, callerAddr string) error {
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		c, err := s.campaignRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		switch c.Status {
		case models.CampaignStatusPending:
			// cancellable
		case models.CampaignStatusActive, models.CampaignStatusCompleted,
			models.CampaignStatusCancelled, models.CampaignStatusExpired:
			return &models.InvalidStateError{CampaignID: c.ID, Status: c.Status, Op: "cancel"}
		default:
			return &models.InvalidStateError{CampaignID: c.ID, Status: c.Status, Op: "cancel"}
		}

		if callerAddr != c.InfluencerAddr {
			return &models.AuthorizationError{CampaignID: c.ID, Caller: callerAddr, Op: "cancel"}
		}
		if c.DeadlinePassed(s.clock.Now()) {
			return &models.ExpiryError{CampaignID: c.ID, DeadlineAt: c.DeadlineAt}
		}

		if err := s.campaignRepo.UpdateStatus(ctx, tx, c.ID, models.CampaignStatusCancelled); err != nil {
			return err
		}
		return s.audit(ctx, tx, &callerAddr, ActorInfluencer, "campaign_cancelled", c.ID, nil)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.EventCampaignStatusChanged, map[string]any{
		"campaign_id": id.String(),
		"old_status":  models.CampaignStatusPending,
		"new_status":  models.CampaignStatusCancelled,
	})

	return nil
}

// Expire settles a campaign whose deadline has passed. For an Active campaign
// the brand reclaims whatever the vault still holds and the remainder is
// recorded as a refund transfer. A Pending campaign is simply marked Expired
// by its influencer; there is nothing to refund.
func (s *CampaignService) Expire(ctx context.Context, id uuid.UUID, callerAddr string) (*models.Campaign, error) {
	var (
		campaign  *models.Campaign
		refunded  int64
		oldStatus models.CampaignStatus
	)

	err := s.inTx(ctx, func(tx pgx.Tx) error {
		c, err := s.campaignRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		oldStatus = c.Status

		var actorType string
		switch c.Status {
		case models.CampaignStatusPending:
			if callerAddr != c.InfluencerAddr {
				return &models.AuthorizationError{CampaignID: c.ID, Caller: callerAddr, Op: "expire"}
			}
			actorType = ActorInfluencer
		case models.CampaignStatusActive:
			if c.BrandAddr == nil || callerAddr != *c.BrandAddr {
				return &models.AuthorizationError{CampaignID: c.ID, Caller: callerAddr, Op: "expire"}
			}
			actorType = ActorBrand
		case models.CampaignStatusCompleted, models.CampaignStatusCancelled, models.CampaignStatusExpired:
			return &models.InvalidStateError{CampaignID: c.ID, Status: c.Status, Op: "expire"}
		default:
			return &models.InvalidStateError{CampaignID: c.ID, Status: c.Status, Op: "expire"}
		}

		if !c.DeadlinePassed(s.clock.Now()) {
			return &models.ValidationError{Field: "deadline_at", Reason: "deadline has not passed yet"}
		}

		if c.Status == models.CampaignStatusActive {
			vault, err := s.vaultRepo.GetForUpdate(ctx, tx, c.ID)
			if err != nil {
				return err
			}
			if vault.Balance > 0 {
				if err := s.vaultRepo.Debit(ctx, tx, c.ID, vault.Balance); err != nil {
					return fmt.Errorf("debit vault: %w", err)
				}
				if err := s.vaultRepo.AddTransfer(ctx, tx, &models.VaultTransfer{
					CampaignID:       c.ID,
					Direction:        models.TransferRefund,
					Amount:           vault.Balance,
					CounterpartyAddr: *c.BrandAddr,
				}); err != nil {
					return fmt.Errorf("record refund: %w", err)
				}
				refunded = vault.Balance
			}
		}

		if err := s.campaignRepo.UpdateStatus(ctx, tx, c.ID, models.CampaignStatusExpired); err != nil {
			return err
		}
		c.Status = models.CampaignStatusExpired
		campaign = c
		return s.audit(ctx, tx, &callerAddr, actorType, "campaign_expired", c.ID, map[string]any{"refunded": refunded})
	})
	if err != nil {
		return nil, err
	}

	if refunded > 0 {
		s.publish(ctx, events.EventStakeRefunded, map[string]any{
			"campaign_id": id.String(),
			"brand_addr":  callerAddr,
			"amount":      refunded,
		})
	}
	s.publish(ctx, events.EventCampaignStatusChanged, map[string]any{
		"campaign_id": id.String(),
		"old_status":  oldStatus,
		"new_status":  models.CampaignStatusExpired,
	})

	return campaign, nil
}

// ---- reads ----

func (s *CampaignService) Get(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	return s.campaignRepo.GetByID(ctx, id)
}

func (s *CampaignService) List(ctx context.Context, f repositories.CampaignFilter) ([]models.Campaign, error) {
	return s.campaignRepo.List(ctx, f)
}

func (s *CampaignService) GetPosts(ctx context.Context, id uuid.UUID) ([]models.CampaignPost, error) {
	return s.campaignRepo.ListPosts(ctx, id)
}

// GetVault returns the escrow balance and its full transfer history.
func (s *CampaignService) GetVault(ctx context.Context, id uuid.UUID) (*models.Vault, []models.VaultTransfer, error) {
	vault, err := s.vaultRepo.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	transfers, err := s.vaultRepo.ListTransfers(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return vault, transfers, nil
}

func (s *CampaignService) GetEvents(ctx context.Context, id uuid.UUID) ([]models.AuditLog, error) {
	return s.auditRepo.GetByEntity(ctx, "campaign", id, 100, 0)
}
