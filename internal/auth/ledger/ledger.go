// Package ledger records account lifecycle events on the trade network's
// shared ledger. The gateway does not own that ledger; it only emits the
// onboarding record once an organisation account goes live.
package ledger

import (
	"context"
	"log/slog"
)

type Recorder interface {
	// RecordAccountCreated appends an onboarding record for a newly created
	// organisation account.
	RecordAccountCreated(ctx context.Context, accountID, username, role, network string) error
}

// LogRecorder logs the event instead of submitting it. Stands in wherever a
// ledger client is not configured.
type LogRecorder struct {
	Logger *slog.Logger
}

func (r *LogRecorder) RecordAccountCreated(ctx context.Context, accountID, username, role, network string) error {
	r.Logger.InfoContext(ctx, "account onboarding recorded",
		"account_id", accountID,
		"username", username,
		"role", role,
		"network", network,
	)
	return nil
}
