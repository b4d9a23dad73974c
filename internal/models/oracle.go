package models

import "time"

// OracleConfig is the process-wide registration of the single address allowed
// to submit metric updates, plus the administrative address allowed to rotate
// it. Exactly one row exists per deployment; it is seeded at startup and never
// deleted.
type OracleConfig struct {
	OracleAddr    string    `json:"oracle_addr"`
	AuthorityAddr string    `json:"authority_addr"`
	UpdatedAt     time.Time `json:"updated_at"`
}
