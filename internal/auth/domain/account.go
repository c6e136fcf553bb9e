package domain

import "time"

// AccountStatus is the activation state of an account. This subsystem only
// ever reads it; activation and deactivation live with account management.
type AccountStatus string

const (
	StatusActive   AccountStatus = "ACTIVE"
	StatusInactive AccountStatus = "INACTIVE"
)

type Account struct {
	ID           string
	Username     string
	Role         Role
	PasswordHash string // argon2id encoded
	Region       string // only meaningful for Importer accounts
	Status       AccountStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PreAuthUser is the unsigned bridge credential between password
// verification and the 2FA step. It only lives in a short-TTL cookie within
// one browser session and must never be trusted for anything else.
type PreAuthUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"acctRole"`
}
