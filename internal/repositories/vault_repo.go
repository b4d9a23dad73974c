package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/influnest/backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// VaultRepo persists per-campaign escrow balances and the append-only
// transfer ledger. Balance checks happen in the service inside the same
// transaction that locked the row; the CHECK (balance >= 0) constraint is the
// backstop.
type VaultRepo struct {
	pool *pgxpool.Pool
}

func NewVaultRepo(pool *pgxpool.Pool) *VaultRepo {
	return &VaultRepo{pool: pool}
}

func (r *VaultRepo) Create(ctx context.Context, tx pgx.Tx, v *models.Vault) error {
	return tx.QueryRow(ctx, `
		INSERT INTO vaults (campaign_id, balance)
		VALUES ($1, $2)
		RETURNING funded_at
	`, v.CampaignID, v.Balance).Scan(&v.FundedAt)
}

func (r *VaultRepo) Exists(ctx context.Context, tx pgx.Tx, campaignID uuid.UUID) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM vaults WHERE campaign_id = $1)`, campaignID).Scan(&exists)
	return exists, err
}

func (r *VaultRepo) Get(ctx context.Context, campaignID uuid.UUID) (*models.Vault, error) {
	var v models.Vault
	err := r.pool.QueryRow(ctx, `
		SELECT campaign_id, balance, funded_at FROM vaults WHERE campaign_id = $1
	`, campaignID).Scan(&v.CampaignID, &v.Balance, &v.FundedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &models.NotFoundError{Entity: "vault", ID: campaignID.String()}
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// GetForUpdate locks the vault row alongside its campaign row for the funds
// movement part of an operation.
func (r *VaultRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, campaignID uuid.UUID) (*models.Vault, error) {
	var v models.Vault
	err := tx.QueryRow(ctx, `
		SELECT campaign_id, balance, funded_at FROM vaults WHERE campaign_id = $1 FOR UPDATE
	`, campaignID).Scan(&v.CampaignID, &v.Balance, &v.FundedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &models.NotFoundError{Entity: "vault", ID: campaignID.String()}
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *VaultRepo) Debit(ctx context.Context, tx pgx.Tx, campaignID uuid.UUID, amount int64) error {
	_, err := tx.Exec(ctx, `
		UPDATE vaults SET balance = balance - $1 WHERE campaign_id = $2
	`, amount, campaignID)
	return err
}

func (r *VaultRepo) AddTransfer(ctx context.Context, tx pgx.Tx, t *models.VaultTransfer) error {
	return tx.QueryRow(ctx, `
		INSERT INTO vault_transfers (campaign_id, direction, amount, counterparty_addr)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, t.CampaignID, t.Direction, t.Amount, t.CounterpartyAddr).Scan(&t.ID, &t.CreatedAt)
}

func (r *VaultRepo) ListTransfers(ctx context.Context, campaignID uuid.UUID) ([]models.VaultTransfer, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, campaign_id, direction, amount, counterparty_addr, created_at
		FROM vault_transfers WHERE campaign_id = $1 ORDER BY created_at ASC
	`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transfers []models.VaultTransfer
	for rows.Next() {
		var t models.VaultTransfer
		if err := rows.Scan(&t.ID, &t.CampaignID, &t.Direction, &t.Amount, &t.CounterpartyAddr, &t.CreatedAt); err != nil {
			return nil, err
		}
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}
