package notify

import (
	"context"

	"receptionist/pkg/logging"
)

// Dispatcher emits best-effort notifications. It is deliberately
// non-transactional: every failure is caught and logged, delivery is reported
// as a boolean, and nothing ever propagates into the caller's write path.
// A dispatcher without a configured sender is a no-op that reports false.
type Dispatcher struct {
	sender EmailSender
	logger *logging.Logger
}

// NewDispatcher builds a dispatcher. sender may be nil (unconfigured).
func NewDispatcher(sender EmailSender, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{sender: sender, logger: logger}
}

// Notify delivers a message to the recipient, returning true on delivery.
// Missing configuration is not an error, just a false result.
func (d *Dispatcher) Notify(ctx context.Context, recipient, subject, body string) (delivered bool) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("notification sender panicked", "recipient", recipient, "panic", r)
			delivered = false
		}
	}()

	if d.sender == nil {
		d.logger.Warn("notification credentials not configured, skipping", "recipient", recipient)
		return false
	}

	if err := d.sender.Send(ctx, EmailMessage{To: recipient, Subject: subject, Body: body}); err != nil {
		d.logger.Error("notification delivery failed", "error", err, "recipient", recipient)
		return false
	}
	return true
}
