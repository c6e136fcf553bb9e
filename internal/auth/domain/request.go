package domain

import "time"

// AccountRequest is a pending signup awaiting email verification. Confirming
// the mailed code promotes the request to a live account; unverified
// requests are reaped by housekeeping.
type AccountRequest struct {
	ID            string
	Username      string
	PasswordHash  string
	Role          Role
	Region        string // Importer signups carry a region, others leave it empty
	VerifyCode    string // verification code mailed to the user
	EmailVerified bool
	CreatedAt     time.Time
}
