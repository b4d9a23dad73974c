package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// The engine reports every failure synchronously through one of these typed
// errors. Handlers map them to HTTP codes; nothing here is retried internally.

// AuthorizationError: the caller is not permitted to perform the operation.
type AuthorizationError struct {
	CampaignID uuid.UUID
	Caller     string
	Op         string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("caller %s is not authorized for %s on campaign %s", e.Caller, e.Op, e.CampaignID)
}

// InvalidStateError: the campaign is not in the status the operation requires.
type InvalidStateError struct {
	CampaignID uuid.UUID
	Status     CampaignStatus
	Op         string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("campaign %s is %s, %s is not allowed", e.CampaignID, e.Status, e.Op)
}

// ValidationError: malformed or contradictory input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ExpiryError: the deadline has passed for a still-unterminated campaign.
type ExpiryError struct {
	CampaignID uuid.UUID
	DeadlineAt time.Time
}

func (e *ExpiryError) Error() string {
	return fmt.Sprintf("campaign %s expired at %s", e.CampaignID, e.DeadlineAt.UTC().Format(time.RFC3339))
}

// InsufficientVaultBalanceError: a release exceeded the vault balance. The
// payout ledger makes this unreachable; observing it means the accounting is
// broken, not that the user did anything wrong.
type InsufficientVaultBalanceError struct {
	CampaignID uuid.UUID
	Requested  int64
	Balance    int64
}

func (e *InsufficientVaultBalanceError) Error() string {
	return fmt.Sprintf("vault for campaign %s holds %d, cannot release %d", e.CampaignID, e.Balance, e.Requested)
}

// NotFoundError: the referenced entity does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}
