package events

import "context"

// StreamCampaign is the channel collaborators (read-model, dashboard, bots)
// subscribe to. Every committed state change of a campaign is mirrored here
// after the transaction commits, never before.
const StreamCampaign = "events:campaign"

// Event types
const (
	EventCampaignCreated       = "campaign_created"
	EventCampaignFunded        = "campaign_funded"
	EventCampaignStatusChanged = "campaign_status_changed"
	EventCampaignPostAdded     = "campaign_post_added"
	EventMetricsUpdated        = "campaign_metrics_updated"
	EventPayoutReleased        = "payout_released"
	EventStakeRefunded         = "stake_refunded"
	EventOracleRotated         = "oracle_rotated"
	EventExpiryDue             = "campaign_expiry_due"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
