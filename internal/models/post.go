package models

import (
	"time"

	"github.com/google/uuid"
)

// CampaignPost is one entry of a campaign's append-only post list. The
// external post id is the platform-side identifier and must be unique within
// the campaign (enforced by a unique index, checked again in the service for
// a typed error).
type CampaignPost struct {
	ID             uuid.UUID `json:"id"`
	CampaignID     uuid.UUID `json:"campaign_id"`
	ExternalPostID string    `json:"external_post_id"`
	PostURL        string    `json:"post_url"`
	AddedAt        time.Time `json:"added_at"`
}

// ValidatePost checks post input bounds before appending.
func ValidatePost(postURL, externalPostID string) error {
	if postURL == "" {
		return &ValidationError{Field: "post_url", Reason: "must not be empty"}
	}
	if len(postURL) > MaxPostURLLen {
		return &ValidationError{Field: "post_url", Reason: "too long (max 200 characters)"}
	}
	if externalPostID == "" {
		return &ValidationError{Field: "external_post_id", Reason: "must not be empty"}
	}
	if len(externalPostID) > MaxPostIDLen {
		return &ValidationError{Field: "external_post_id", Reason: "too long (max 100 characters)"}
	}
	return nil
}
