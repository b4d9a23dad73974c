package models

import (
	"time"

	"github.com/google/uuid"
)

// Transfer directions
const (
	TransferDeposit = "deposit" // brand -> vault, exactly once
	TransferRelease = "release" // vault -> influencer, milestone payout
	TransferRefund  = "refund"  // vault -> brand, expired remainder
)

// Vault is the escrow balance backing one campaign. It is created at funding
// time and owned exclusively by its campaign; balance never goes negative and
// always equals funded_amount - amount_paid while the campaign is Active.
type Vault struct {
	CampaignID uuid.UUID `json:"campaign_id"`
	Balance    int64     `json:"balance"`
	FundedAt   time.Time `json:"funded_at"`
}

// VaultTransfer is one row of the append-only movement ledger. Counterparty
// is the external party on the other side of the vault: the brand for
// deposits and refunds, the influencer for releases.
type VaultTransfer struct {
	ID               uuid.UUID `json:"id"`
	CampaignID       uuid.UUID `json:"campaign_id"`
	Direction        string    `json:"direction"`
	Amount           int64     `json:"amount"`
	CounterpartyAddr string    `json:"counterparty_addr"`
	CreatedAt        time.Time `json:"created_at"`
}
