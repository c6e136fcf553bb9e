// Package mailer abstracts outbound email. The gateway only ever sends one
// kind of message (the signup verification code), so the interface stays
// deliberately tiny.
package mailer

import (
	"context"
	"log/slog"
)

type Mailer interface {
	// SendVerificationCode delivers the signup verification link to the
	// address associated with the pending account request. The mail carries
	// both the request id and the code; /verify-email needs the pair.
	SendVerificationCode(ctx context.Context, email, username, requestID, code string) error
}

// LogMailer writes the message to the log instead of sending it. Used in
// development and tests; a real SMTP-backed implementation plugs in behind
// the same interface in deployment.
type LogMailer struct {
	Logger *slog.Logger
}

func (m *LogMailer) SendVerificationCode(ctx context.Context, email, username, requestID, code string) error {
	m.Logger.InfoContext(ctx, "verification code issued",
		"email", email,
		"username", username,
		"request_id", requestID,
		"code", code,
	)
	return nil
}
