package dto

import "github.com/influnest/backend/internal/models"

type TokenResponse struct {
	Token   string `json:"token"`
	Address string `json:"address"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type CampaignResponse struct {
	Campaign *models.Campaign      `json:"campaign"`
	Posts    []models.CampaignPost `json:"posts,omitempty"`
}

type VaultResponse struct {
	Vault     *models.Vault          `json:"vault"`
	Transfers []models.VaultTransfer `json:"transfers"`
}

type MetricUpdateResponse struct {
	Campaign *models.Campaign `json:"campaign"`
	Released int64            `json:"released"`
}
