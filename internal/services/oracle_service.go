package services

import (
	"context"
	"fmt"

	"github.com/influnest/backend/internal/addrs"
	"github.com/influnest/backend/internal/events"
	"github.com/influnest/backend/internal/models"
	"github.com/influnest/backend/internal/repositories"
	"go.uber.org/zap"
)

// OracleService manages the oracle authority registry: the single address
// allowed to submit metric updates and the administrative address allowed to
// replace it. The registry is an explicit dependency of the campaign state
// machine, not ambient global state.
type OracleService struct {
	db         txBeginner
	oracleRepo *repositories.OracleRepo
	auditRepo  auditStore
	publisher  events.Publisher
	log        *zap.Logger
}

func NewOracleService(
	db txBeginner,
	oracleRepo *repositories.OracleRepo,
	auditRepo auditStore,
	publisher events.Publisher,
	log *zap.Logger,
) *OracleService {
	return &OracleService{
		db:         db,
		oracleRepo: oracleRepo,
		auditRepo:  auditRepo,
		publisher:  publisher,
		log:        log,
	}
}

// EnsureInitialized seeds the singleton registry row from deployment config.
// It is idempotent: an existing registration is never overwritten, so a
// restart with different env values does not silently rotate the oracle.
func (s *OracleService) EnsureInitialized(ctx context.Context, oracleAddr, authorityAddr string) error {
	if oracleAddr == "" || authorityAddr == "" {
		s.log.Warn("oracle registry not seeded, addresses missing from config")
		return nil
	}
	oracle, err := addrs.Normalize(oracleAddr)
	if err != nil {
		return fmt.Errorf("oracle address: %w", err)
	}
	authority, err := addrs.Normalize(authorityAddr)
	if err != nil {
		return fmt.Errorf("authority address: %w", err)
	}
	if err := s.oracleRepo.Seed(ctx, oracle, authority); err != nil {
		return fmt.Errorf("seed oracle registry: %w", err)
	}
	s.log.Info("oracle registry ready", zap.String("oracle", oracle))
	return nil
}

func (s *OracleService) Get(ctx context.Context) (*models.OracleConfig, error) {
	return s.oracleRepo.Get(ctx)
}

// Rotate replaces the registered oracle address. Only the stored authority
// may rotate; the check and the swap are a single atomic statement, and the
// audit row commits in the same transaction as the swap.
func (s *OracleService) Rotate(ctx context.Context, callerAddr, newOracleAddr string) (*models.OracleConfig, error) {
	newOracle, err := addrs.Normalize(newOracleAddr)
	if err != nil {
		return nil, &models.ValidationError{Field: "oracle_addr", Reason: err.Error()}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	ok, err := s.oracleRepo.Rotate(ctx, tx, callerAddr, newOracle)
	if err != nil {
		return nil, fmt.Errorf("rotate oracle: %w", err)
	}
	if !ok {
		// Either the registry was never seeded or the caller is not the
		// authority; distinguish for the error taxonomy.
		if _, err := s.oracleRepo.GetTx(ctx, tx); err != nil {
			return nil, err
		}
		return nil, &models.AuthorizationError{Caller: callerAddr, Op: "rotate oracle"}
	}

	if err := s.auditRepo.LogTx(ctx, tx, models.AuditLog{
		ActorAddr:  &callerAddr,
		ActorType:  "authority",
		Action:     "oracle_rotated",
		EntityType: "oracle_config",
		Meta:       map[string]any{"new_oracle": newOracle},
	}); err != nil {
		return nil, fmt.Errorf("audit oracle_rotated: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	_ = s.publisher.Publish(ctx, events.StreamCampaign, events.Event{
		Type:    events.EventOracleRotated,
		Payload: map[string]any{"new_oracle": newOracle},
	})

	return s.oracleRepo.Get(ctx)
}
