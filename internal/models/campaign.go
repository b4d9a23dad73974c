package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/influnest/backend/internal/payout"
)

// Campaign statuses
type CampaignStatus string

const (
	CampaignStatusPending   CampaignStatus = "pending"
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusCompleted CampaignStatus = "completed"
	CampaignStatusCancelled CampaignStatus = "cancelled"
	CampaignStatusExpired   CampaignStatus = "expired"
)

// AllCampaignStatuses lists every member of the closed status set.
var AllCampaignStatuses = []CampaignStatus{
	CampaignStatusPending,
	CampaignStatusActive,
	CampaignStatusCompleted,
	CampaignStatusCancelled,
	CampaignStatusExpired,
}

func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignStatusPending, CampaignStatusActive, CampaignStatusCompleted,
		CampaignStatusCancelled, CampaignStatusExpired:
		return true
	}
	return false
}

// Terminal reports whether no further mutation of the campaign is permitted.
func (s CampaignStatus) Terminal() bool {
	switch s {
	case CampaignStatusCompleted, CampaignStatusCancelled, CampaignStatusExpired:
		return true
	case CampaignStatusPending, CampaignStatusActive:
		return false
	}
	return false
}

// Valid state transitions: from -> []to. Transitions are one-directional;
// terminal statuses map to an empty set.
var ValidCampaignTransitions = map[CampaignStatus][]CampaignStatus{
	CampaignStatusPending:   {CampaignStatusActive, CampaignStatusCancelled, CampaignStatusExpired},
	CampaignStatusActive:    {CampaignStatusCompleted, CampaignStatusExpired},
	CampaignStatusCompleted: {},
	CampaignStatusCancelled: {},
	CampaignStatusExpired:   {},
}

func IsValidTransition(from, to CampaignStatus) bool {
	allowed, ok := ValidCampaignTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Input bounds
const (
	MaxNameLen          = 100
	MaxDescriptionLen   = 500
	MaxHandleLen        = 50
	MaxPostURLLen       = 200
	MaxPostIDLen        = 100
	MaxPostsPerCampaign = 50
)

type Campaign struct {
	ID              uuid.UUID      `json:"id"`
	InfluencerAddr  string         `json:"influencer_addr"`
	BrandAddr       *string        `json:"brand_addr,omitempty"` // unset until funded
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	Handle          string         `json:"handle"` // social handle the campaign posts belong to
	FundedAmount    int64          `json:"funded_amount"` // token base units
	AmountPaid      int64          `json:"amount_paid"`
	TargetLikes     int64          `json:"target_likes"`
	TargetComments  int64          `json:"target_comments"`
	TargetViews     int64          `json:"target_views"`
	TargetShares    int64          `json:"target_shares"`
	CurrentLikes    int64          `json:"current_likes"`
	CurrentComments int64          `json:"current_comments"`
	CurrentViews    int64          `json:"current_views"`
	CurrentShares   int64          `json:"current_shares"`
	DeadlineAt      time.Time      `json:"deadline_at"`
	Status          CampaignStatus `json:"status"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Targets returns the creation-time goals as a payout metric set.
func (c *Campaign) Targets() payout.MetricSet {
	return payout.MetricSet{
		Likes:    c.TargetLikes,
		Comments: c.TargetComments,
		Views:    c.TargetViews,
		Shares:   c.TargetShares,
	}
}

// Currents returns the latest oracle-attested counts as a payout metric set.
func (c *Campaign) Currents() payout.MetricSet {
	return payout.MetricSet{
		Likes:    c.CurrentLikes,
		Comments: c.CurrentComments,
		Views:    c.CurrentViews,
		Shares:   c.CurrentShares,
	}
}

// DeadlinePassed reports whether the campaign deadline is behind the given
// instant. Expiry is evaluated lazily at operation entry, never by a timer.
func (c *Campaign) DeadlinePassed(now time.Time) bool {
	return !now.Before(c.DeadlineAt)
}

// ValidateForCreate checks creation-time input bounds. The all-zero-targets
// case is rejected outright: a campaign without a measurable goal would
// complete on its first metric update.
func (c *Campaign) ValidateForCreate(now time.Time) error {
	if c.Name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if len(c.Name) > MaxNameLen {
		return &ValidationError{Field: "name", Reason: "too long (max 100 characters)"}
	}
	if len(c.Description) > MaxDescriptionLen {
		return &ValidationError{Field: "description", Reason: "too long (max 500 characters)"}
	}
	if c.Handle == "" {
		return &ValidationError{Field: "handle", Reason: "must not be empty"}
	}
	if len(c.Handle) > MaxHandleLen {
		return &ValidationError{Field: "handle", Reason: "too long (max 50 characters)"}
	}
	if c.FundedAmount <= 0 {
		return &ValidationError{Field: "funded_amount", Reason: "must be positive"}
	}
	if c.TargetLikes < 0 || c.TargetComments < 0 || c.TargetViews < 0 || c.TargetShares < 0 {
		return &ValidationError{Field: "targets", Reason: "must be non-negative"}
	}
	if c.TargetLikes == 0 && c.TargetComments == 0 && c.TargetViews == 0 && c.TargetShares == 0 {
		return &ValidationError{Field: "targets", Reason: "at least one target must be set"}
	}
	if !c.DeadlineAt.After(now) {
		return &ValidationError{Field: "deadline_at", Reason: "must be in the future"}
	}
	return nil
}

// ValidateMetricUpdate checks an incoming oracle snapshot against the stored
// counts. A decreasing value signals an upstream data error and is rejected,
// not clamped.
func (c *Campaign) ValidateMetricUpdate(next payout.MetricSet) error {
	if next.Likes < 0 || next.Comments < 0 || next.Views < 0 || next.Shares < 0 {
		return &ValidationError{Field: "metrics", Reason: "must be non-negative"}
	}
	switch {
	case next.Likes < c.CurrentLikes:
		return &ValidationError{Field: "likes", Reason: "metric cannot decrease"}
	case next.Comments < c.CurrentComments:
		return &ValidationError{Field: "comments", Reason: "metric cannot decrease"}
	case next.Views < c.CurrentViews:
		return &ValidationError{Field: "views", Reason: "metric cannot decrease"}
	case next.Shares < c.CurrentShares:
		return &ValidationError{Field: "shares", Reason: "metric cannot decrease"}
	}
	return nil
}
