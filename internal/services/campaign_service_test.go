package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/influnest/backend/internal/events"
	"github.com/influnest/backend/internal/models"
	"github.com/influnest/backend/internal/payout"
	"github.com/influnest/backend/internal/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	influencerAddr = "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T"
	brandAddr      = "So11111111111111111111111111111111111111112"
	oracleAddr     = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	strangerAddr   = "7nYabs9dUhvxYwdTnrWVBL9MYviKSfrEbdWCUbcnwkpF"
)

// memTx satisfies just enough of pgx.Tx for the service's transaction
// bracket; the fakes below never touch the connection.
type memTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (t *memTx) Commit(context.Context) error { t.committed = true; return nil }
func (t *memTx) Rollback(context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type memDB struct {
	lastTx *memTx
}

func (d *memDB) Begin(context.Context) (pgx.Tx, error) {
	d.lastTx = &memTx{}
	return d.lastTx, nil
}

type memCampaignStore struct {
	campaign *models.Campaign
	posts    []models.CampaignPost
}

func (s *memCampaignStore) Create(_ context.Context, _ pgx.Tx, c *models.Campaign) error {
	c.ID = uuid.New()
	cp := *c
	s.campaign = &cp
	return nil
}

func (s *memCampaignStore) GetByID(_ context.Context, id uuid.UUID) (*models.Campaign, error) {
	return s.getLocked(id)
}

func (s *memCampaignStore) GetByIDForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.Campaign, error) {
	return s.getLocked(id)
}

func (s *memCampaignStore) getLocked(id uuid.UUID) (*models.Campaign, error) {
	if s.campaign == nil || s.campaign.ID != id {
		return nil, &models.NotFoundError{Entity: "campaign", ID: id.String()}
	}
	cp := *s.campaign
	return &cp, nil
}

func (s *memCampaignStore) List(context.Context, repositories.CampaignFilter) ([]models.Campaign, error) {
	if s.campaign == nil {
		return nil, nil
	}
	return []models.Campaign{*s.campaign}, nil
}

func (s *memCampaignStore) SetFunded(_ context.Context, _ pgx.Tx, id uuid.UUID, brand string) error {
	s.campaign.BrandAddr = &brand
	s.campaign.Status = models.CampaignStatusActive
	return nil
}

func (s *memCampaignStore) UpdateStatus(_ context.Context, _ pgx.Tx, id uuid.UUID, status models.CampaignStatus) error {
	s.campaign.Status = status
	return nil
}

func (s *memCampaignStore) ApplyMetricUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID, m payout.MetricSet, amountPaid int64, status models.CampaignStatus) error {
	s.campaign.CurrentLikes = m.Likes
	s.campaign.CurrentComments = m.Comments
	s.campaign.CurrentViews = m.Views
	s.campaign.CurrentShares = m.Shares
	s.campaign.AmountPaid = amountPaid
	s.campaign.Status = status
	return nil
}

func (s *memCampaignStore) CountPosts(context.Context, pgx.Tx, uuid.UUID) (int, error) {
	return len(s.posts), nil
}

func (s *memCampaignStore) PostExists(_ context.Context, _ pgx.Tx, _ uuid.UUID, externalPostID string) (bool, error) {
	for _, p := range s.posts {
		if p.ExternalPostID == externalPostID {
			return true, nil
		}
	}
	return false, nil
}

func (s *memCampaignStore) AddPost(_ context.Context, _ pgx.Tx, p *models.CampaignPost) error {
	p.ID = uuid.New()
	s.posts = append(s.posts, *p)
	return nil
}

func (s *memCampaignStore) ListPosts(context.Context, uuid.UUID) ([]models.CampaignPost, error) {
	return s.posts, nil
}

type memVaultStore struct {
	vault     *models.Vault
	transfers []models.VaultTransfer
}

func (s *memVaultStore) Create(_ context.Context, _ pgx.Tx, v *models.Vault) error {
	cp := *v
	s.vault = &cp
	return nil
}

func (s *memVaultStore) Exists(context.Context, pgx.Tx, uuid.UUID) (bool, error) {
	return s.vault != nil, nil
}

func (s *memVaultStore) Get(_ context.Context, id uuid.UUID) (*models.Vault, error) {
	return s.getLocked(id)
}

func (s *memVaultStore) GetForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.Vault, error) {
	return s.getLocked(id)
}

func (s *memVaultStore) getLocked(id uuid.UUID) (*models.Vault, error) {
	if s.vault == nil {
		return nil, &models.NotFoundError{Entity: "vault", ID: id.String()}
	}
	cp := *s.vault
	return &cp, nil
}

func (s *memVaultStore) Debit(_ context.Context, _ pgx.Tx, _ uuid.UUID, amount int64) error {
	s.vault.Balance -= amount
	return nil
}

func (s *memVaultStore) AddTransfer(_ context.Context, _ pgx.Tx, t *models.VaultTransfer) error {
	t.ID = uuid.New()
	s.transfers = append(s.transfers, *t)
	return nil
}

func (s *memVaultStore) ListTransfers(context.Context, uuid.UUID) ([]models.VaultTransfer, error) {
	return s.transfers, nil
}

type memOracleStore struct {
	cfg *models.OracleConfig
}

func (s *memOracleStore) GetTx(context.Context, pgx.Tx) (*models.OracleConfig, error) {
	if s.cfg == nil {
		return nil, &models.NotFoundError{Entity: "oracle_config", ID: "singleton"}
	}
	return s.cfg, nil
}

type memAuditStore struct {
	entries []models.AuditLog
	failErr error
}

func (s *memAuditStore) LogTx(_ context.Context, _ pgx.Tx, entry models.AuditLog) error {
	if s.failErr != nil {
		return s.failErr
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *memAuditStore) GetByEntity(context.Context, string, uuid.UUID, int, int) ([]models.AuditLog, error) {
	return s.entries, nil
}

type memPublisher struct {
	published []events.Event
}

func (p *memPublisher) Publish(_ context.Context, _ string, e events.Event) error {
	p.published = append(p.published, e)
	return nil
}

type fixture struct {
	svc       *CampaignService
	db        *memDB
	campaigns *memCampaignStore
	vaults    *memVaultStore
	audits    *memAuditStore
	publisher *memPublisher
	clock     *clockwork.FakeClock
}

var testEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newFixture(t *testing.T, c *models.Campaign, v *models.Vault) *fixture {
	t.Helper()
	f := &fixture{
		db:        &memDB{},
		campaigns: &memCampaignStore{campaign: c},
		vaults:    &memVaultStore{vault: v},
		audits:    &memAuditStore{},
		publisher: &memPublisher{},
		clock:     clockwork.NewFakeClockAt(testEpoch),
	}
	oracle := &memOracleStore{cfg: &models.OracleConfig{OracleAddr: oracleAddr, AuthorityAddr: strangerAddr}}
	f.svc = NewCampaignService(f.db, f.campaigns, f.vaults, oracle, f.audits, f.publisher, f.clock, zap.NewNop())
	return f
}

func pendingCampaign() *models.Campaign {
	return &models.Campaign{
		ID:             uuid.New(),
		InfluencerAddr: influencerAddr,
		Name:           "spring launch",
		Handle:         "creator_handle",
		FundedAmount:   1000,
		TargetLikes:    100,
		TargetViews:    10000,
		DeadlineAt:     testEpoch.Add(30 * 24 * time.Hour),
		Status:         models.CampaignStatusPending,
	}
}

func activeCampaign() *models.Campaign {
	c := pendingCampaign()
	b := brandAddr
	c.BrandAddr = &b
	c.Status = models.CampaignStatusActive
	return c
}

func fundedVault(c *models.Campaign) *models.Vault {
	return &models.Vault{CampaignID: c.ID, Balance: c.FundedAmount - c.AmountPaid}
}

func TestFundActivatesPendingCampaign(t *testing.T) {
	c := pendingCampaign()
	f := newFixture(t, c, nil)

	got, err := f.svc.Fund(context.Background(), c.ID, brandAddr, 1000)
	require.NoError(t, err)
	require.Equal(t, models.CampaignStatusActive, got.Status)
	require.Equal(t, brandAddr, *got.BrandAddr)

	require.Equal(t, int64(1000), f.vaults.vault.Balance)
	require.Len(t, f.vaults.transfers, 1)
	require.Equal(t, models.TransferDeposit, f.vaults.transfers[0].Direction)
	require.Equal(t, brandAddr, f.vaults.transfers[0].CounterpartyAddr)

	require.True(t, f.db.lastTx.committed)
	require.Len(t, f.audits.entries, 1)
	require.Equal(t, "campaign_funded", f.audits.entries[0].Action)
}

func TestFundRejectsWrongAmount(t *testing.T) {
	c := pendingCampaign()
	f := newFixture(t, c, nil)

	_, err := f.svc.Fund(context.Background(), c.ID, brandAddr, 999)
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Nil(t, f.vaults.vault)
}

func TestFundRejectsSecondDeposit(t *testing.T) {
	c := activeCampaign()
	f := newFixture(t, c, fundedVault(c))

	_, err := f.svc.Fund(context.Background(), c.ID, strangerAddr, 1000)
	var serr *models.InvalidStateError
	require.ErrorAs(t, err, &serr)
	require.Len(t, f.vaults.transfers, 0)
}

func TestFundAfterDeadlineRejected(t *testing.T) {
	c := pendingCampaign()
	f := newFixture(t, c, nil)
	f.clock.Advance(31 * 24 * time.Hour)

	_, err := f.svc.Fund(context.Background(), c.ID, brandAddr, 1000)
	var eerr *models.ExpiryError
	require.ErrorAs(t, err, &eerr)
}

func TestUpdateMetricsRequiresRegisteredOracle(t *testing.T) {
	c := activeCampaign()
	f := newFixture(t, c, fundedVault(c))

	_, err := f.svc.UpdateMetrics(context.Background(), c.ID, strangerAddr, payout.MetricSet{Likes: 50})
	var aerr *models.AuthorizationError
	require.ErrorAs(t, err, &aerr)
	require.Equal(t, int64(1000), f.vaults.vault.Balance)
	require.Len(t, f.vaults.transfers, 0)
}

func TestNonOracleGetsAuthorizationErrorEvenPastDeadline(t *testing.T) {
	c := activeCampaign()
	f := newFixture(t, c, fundedVault(c))
	f.clock.Advance(31 * 24 * time.Hour)

	_, err := f.svc.UpdateMetrics(context.Background(), c.ID, strangerAddr, payout.MetricSet{Likes: 50})
	var aerr *models.AuthorizationError
	require.ErrorAs(t, err, &aerr, "authorization decides before expiry")

	_, err = f.svc.UpdateMetrics(context.Background(), c.ID, oracleAddr, payout.MetricSet{Likes: 50})
	var eerr *models.ExpiryError
	require.ErrorAs(t, err, &eerr)
}

func TestUpdateMetricsReleasesHalfway(t *testing.T) {
	c := activeCampaign()
	f := newFixture(t, c, fundedVault(c))

	res, err := f.svc.UpdateMetrics(context.Background(), c.ID, oracleAddr, payout.MetricSet{Likes: 50, Views: 5000})
	require.NoError(t, err)
	require.Equal(t, int64(500), res.Released)
	require.Equal(t, int64(500), res.Campaign.AmountPaid)
	require.Equal(t, models.CampaignStatusActive, res.Campaign.Status)
	require.Equal(t, int64(500), f.vaults.vault.Balance)

	require.Len(t, f.vaults.transfers, 1)
	require.Equal(t, models.TransferRelease, f.vaults.transfers[0].Direction)
	require.Equal(t, influencerAddr, f.vaults.transfers[0].CounterpartyAddr)
}

func TestUpdateMetricsReplayIsFundsNoOp(t *testing.T) {
	c := activeCampaign()
	f := newFixture(t, c, fundedVault(c))
	snapshot := payout.MetricSet{Likes: 50, Views: 5000}

	first, err := f.svc.UpdateMetrics(context.Background(), c.ID, oracleAddr, snapshot)
	require.NoError(t, err)
	require.Equal(t, int64(500), first.Released)

	second, err := f.svc.UpdateMetrics(context.Background(), c.ID, oracleAddr, snapshot)
	require.NoError(t, err)
	require.Equal(t, int64(0), second.Released)
	require.Equal(t, int64(500), second.Campaign.AmountPaid)
	require.Len(t, f.vaults.transfers, 1, "replay must not move funds twice")
}

func TestUpdateMetricsCompletesCampaign(t *testing.T) {
	c := activeCampaign()
	f := newFixture(t, c, fundedVault(c))

	res, err := f.svc.UpdateMetrics(context.Background(), c.ID, oracleAddr, payout.MetricSet{Likes: 100, Views: 10000})
	require.NoError(t, err)
	require.Equal(t, int64(1000), res.Released)
	require.Equal(t, models.CampaignStatusCompleted, res.Campaign.Status)
	require.Equal(t, int64(0), f.vaults.vault.Balance)
}

func TestCompletedCampaignRejectsFurtherUpdates(t *testing.T) {
	c := activeCampaign()
	c.Status = models.CampaignStatusCompleted
	c.AmountPaid = c.FundedAmount
	f := newFixture(t, c, &models.Vault{CampaignID: c.ID, Balance: 0})

	_, err := f.svc.UpdateMetrics(context.Background(), c.ID, oracleAddr, payout.MetricSet{Likes: 200, Views: 20000})
	var serr *models.InvalidStateError
	require.ErrorAs(t, err, &serr)
}

func TestUpdateMetricsRejectsDecrease(t *testing.T) {
	c := activeCampaign()
	c.CurrentLikes = 60
	f := newFixture(t, c, fundedVault(c))

	_, err := f.svc.UpdateMetrics(context.Background(), c.ID, oracleAddr, payout.MetricSet{Likes: 50, Views: 5000})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, f.vaults.transfers, 0)
}

func TestCancelPendingByInfluencer(t *testing.T) {
	c := pendingCampaign()
	f := newFixture(t, c, nil)

	require.NoError(t, f.svc.Cancel(context.Background(), c.ID, influencerAddr))
	require.Equal(t, models.CampaignStatusCancelled, f.campaigns.campaign.Status)
}

func TestCancelRejectsNonOwnerAndActive(t *testing.T) {
	c := pendingCampaign()
	f := newFixture(t, c, nil)

	var aerr *models.AuthorizationError
	require.ErrorAs(t, f.svc.Cancel(context.Background(), c.ID, strangerAddr), &aerr)

	a := activeCampaign()
	f = newFixture(t, a, fundedVault(a))
	var serr *models.InvalidStateError
	require.ErrorAs(t, f.svc.Cancel(context.Background(), a.ID, influencerAddr), &serr)
}

func TestExpireActiveRefundsBrandRemainder(t *testing.T) {
	c := activeCampaign()
	c.AmountPaid = 600
	f := newFixture(t, c, fundedVault(c))
	f.clock.Advance(31 * 24 * time.Hour)

	got, err := f.svc.Expire(context.Background(), c.ID, brandAddr)
	require.NoError(t, err)
	require.Equal(t, models.CampaignStatusExpired, got.Status)

	require.Equal(t, int64(0), f.vaults.vault.Balance)
	require.Len(t, f.vaults.transfers, 1)
	require.Equal(t, models.TransferRefund, f.vaults.transfers[0].Direction)
	require.Equal(t, int64(400), f.vaults.transfers[0].Amount)
	require.Equal(t, brandAddr, f.vaults.transfers[0].CounterpartyAddr)
}

func TestExpirePendingByInfluencerNoRefund(t *testing.T) {
	c := pendingCampaign()
	f := newFixture(t, c, nil)
	f.clock.Advance(31 * 24 * time.Hour)

	got, err := f.svc.Expire(context.Background(), c.ID, influencerAddr)
	require.NoError(t, err)
	require.Equal(t, models.CampaignStatusExpired, got.Status)
	require.Len(t, f.vaults.transfers, 0)
}

func TestExpireBeforeDeadlineRejected(t *testing.T) {
	c := activeCampaign()
	f := newFixture(t, c, fundedVault(c))

	_, err := f.svc.Expire(context.Background(), c.ID, brandAddr)
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, models.CampaignStatusActive, f.campaigns.campaign.Status)
}

func TestExpireAuthorization(t *testing.T) {
	c := activeCampaign()
	f := newFixture(t, c, fundedVault(c))
	f.clock.Advance(31 * 24 * time.Hour)

	var aerr *models.AuthorizationError
	_, err := f.svc.Expire(context.Background(), c.ID, influencerAddr)
	require.ErrorAs(t, err, &aerr, "only the brand may expire an active campaign")

	p := pendingCampaign()
	f = newFixture(t, p, nil)
	f.clock.Advance(31 * 24 * time.Hour)
	_, err = f.svc.Expire(context.Background(), p.ID, brandAddr)
	require.ErrorAs(t, err, &aerr, "only the influencer may expire a pending campaign")
}

func TestAuditFailureAbortsOperation(t *testing.T) {
	c := pendingCampaign()
	f := newFixture(t, c, nil)
	f.audits.failErr = errors.New("audit insert failed")

	_, err := f.svc.Fund(context.Background(), c.ID, brandAddr, 1000)
	require.Error(t, err)
	require.False(t, f.db.lastTx.committed, "state change must not commit without its audit row")
	require.True(t, f.db.lastTx.rolledBack)
	require.Len(t, f.publisher.published, 0, "no events for an aborted operation")
}

func TestCreateWritesAuditInTx(t *testing.T) {
	f := newFixture(t, nil, nil)

	c := pendingCampaign()
	c.ID = uuid.Nil
	require.NoError(t, f.svc.Create(context.Background(), influencerAddr, c))

	require.True(t, f.db.lastTx.committed)
	require.Len(t, f.audits.entries, 1)
	require.Equal(t, "campaign_created", f.audits.entries[0].Action)
	require.Equal(t, c.ID, *f.audits.entries[0].EntityID)
}
