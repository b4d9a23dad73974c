package dto

import "time"

// TokenRequest is presented by the trusted identity layer: it resolves a
// caller to a wallet address out of band and exchanges the shared secret for
// a token carrying that address.
type TokenRequest struct {
	Secret  string `json:"secret"`
	Address string `json:"address"`
}

type CreateCampaignRequest struct {
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Handle         string    `json:"handle"`
	FundedAmount   int64     `json:"funded_amount"`
	TargetLikes    int64     `json:"target_likes"`
	TargetComments int64     `json:"target_comments"`
	TargetViews    int64     `json:"target_views"`
	TargetShares   int64     `json:"target_shares"`
	DeadlineAt     time.Time `json:"deadline_at"`
}

type FundCampaignRequest struct {
	Amount int64 `json:"amount"`
}

type AddPostRequest struct {
	PostURL        string `json:"post_url"`
	ExternalPostID string `json:"external_post_id"`
}

// UpdateMetricsRequest carries the oracle's snapshot of lifetime cumulative
// counts, never incremental deltas.
type UpdateMetricsRequest struct {
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
	Views    int64 `json:"views"`
	Shares   int64 `json:"shares"`
}

type RotateOracleRequest struct {
	NewOracleAddr string `json:"new_oracle_addr"`
}
