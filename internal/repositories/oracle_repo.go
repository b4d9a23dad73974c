package repositories

import (
	"context"
	"errors"

	"github.com/influnest/backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OracleRepo persists the singleton oracle registry row. The table is keyed
// by a constant so there can only ever be one row per deployment.
type OracleRepo struct {
	pool *pgxpool.Pool
}

func NewOracleRepo(pool *pgxpool.Pool) *OracleRepo {
	return &OracleRepo{pool: pool}
}

func (r *OracleRepo) Get(ctx context.Context) (*models.OracleConfig, error) {
	var cfg models.OracleConfig
	err := r.pool.QueryRow(ctx, `
		SELECT oracle_addr, authority_addr, updated_at FROM oracle_config WHERE singleton = true
	`).Scan(&cfg.OracleAddr, &cfg.AuthorityAddr, &cfg.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &models.NotFoundError{Entity: "oracle_config", ID: "singleton"}
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GetTx reads the registry inside an operation's transaction so the
// authorization check uses the authority value current at check time.
func (r *OracleRepo) GetTx(ctx context.Context, tx pgx.Tx) (*models.OracleConfig, error) {
	var cfg models.OracleConfig
	err := tx.QueryRow(ctx, `
		SELECT oracle_addr, authority_addr, updated_at FROM oracle_config WHERE singleton = true
	`).Scan(&cfg.OracleAddr, &cfg.AuthorityAddr, &cfg.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &models.NotFoundError{Entity: "oracle_config", ID: "singleton"}
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Seed creates the registry row at deployment initialization. It never
// overwrites an existing registration, so restarts are safe.
func (r *OracleRepo) Seed(ctx context.Context, oracleAddr, authorityAddr string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO oracle_config (singleton, oracle_addr, authority_addr)
		VALUES (true, $1, $2)
		ON CONFLICT (singleton) DO NOTHING
	`, oracleAddr, authorityAddr)
	return err
}

// Rotate atomically replaces the oracle address, guarded by the stored
// authority: the UPDATE matches zero rows if the caller is not the authority.
// Runs inside the caller's transaction so the audit row commits with it.
func (r *OracleRepo) Rotate(ctx context.Context, tx pgx.Tx, callerAddr, newOracleAddr string) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE oracle_config SET oracle_addr = $1, updated_at = now()
		WHERE singleton = true AND authority_addr = $2
	`, newOracleAddr, callerAddr)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
