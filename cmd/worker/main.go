package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/influnest/backend/internal/config"
	"github.com/influnest/backend/internal/db"
	"github.com/influnest/backend/internal/events"
	"github.com/influnest/backend/internal/repositories"
	"go.uber.org/zap"
)

// The worker never mutates campaign state. Expiry is enforced lazily by the
// engine at the start of every operation; this process only notifies
// subscribers that a deadline has passed so a brand or influencer client can
// call the expire endpoint.
func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	campaignRepo := repositories.NewCampaignRepo(pool)
	publisher := events.NewRedisPublisher(rdb, log)

	log.Info("worker started", zap.Duration("sweep_interval", cfg.ExpirySweepInterval))

	sweepTicker := time.NewTicker(cfg.ExpirySweepInterval)
	defer sweepTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-sweepTicker.C:
			runExpirySweep(ctx, campaignRepo, publisher, log)
		case <-sigCh:
			log.Info("shutting down worker")
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}

func runExpirySweep(ctx context.Context, campaignRepo *repositories.CampaignRepo, publisher events.Publisher, log *zap.Logger) {
	campaigns, err := campaignRepo.ListExpiryDue(ctx, 100)
	if err != nil {
		log.Error("failed to list expiry-due campaigns", zap.Error(err))
		return
	}

	for _, campaign := range campaigns {
		log.Info("campaign deadline passed",
			zap.String("campaign_id", campaign.ID.String()),
			zap.String("status", string(campaign.Status)),
			zap.Time("deadline_at", campaign.DeadlineAt),
		)
		_ = publisher.Publish(ctx, events.StreamCampaign, events.Event{
			Type: events.EventExpiryDue,
			Payload: map[string]any{
				"campaign_id": campaign.ID.String(),
				"status":      string(campaign.Status),
				"deadline_at": campaign.DeadlineAt,
			},
		})
	}
}
