package domain

import "time"

// DefaultTOTPPeriod is the standard code rotation window in seconds.
const DefaultTOTPPeriod = 30

// TOTPSecret is the per-account second-factor record. The secret itself is
// immutable after creation: re-enrollment while unverified re-displays the
// same secret, and a verified record is never regenerated through this flow.
type TOTPSecret struct {
	Username  string
	Role      Role
	Secret    string // base32 encoded, shown to the client once during enrollment
	Period    uint   // seconds
	Verified  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Enrollment is what the QR endpoint returns. An empty OtpURL means the
// account already completed enrollment and no provisioning is needed.
type Enrollment struct {
	OtpURL string
	Secret string
	Period uint
}
