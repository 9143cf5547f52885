// Package notify defines the fire-and-forget notification sink used to
// surface triage outcomes to the reviewer.
package notify

import "context"

// Severity classifies a notification for display purposes.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notifier delivers a message to the reviewer. Implementations are
// best-effort; callers do not depend on delivery.
type Notifier interface {
	Notify(ctx context.Context, message string, severity Severity) error
}

// Nop returns a Notifier that discards everything.
func Nop() Notifier { return nopNotifier{} }

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string, Severity) error { return nil }
