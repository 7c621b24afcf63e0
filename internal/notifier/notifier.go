// Package notifier
package notifier

import "time"

// Notifier sends out-of-band alerts about trading activity.
type Notifier interface {
	Send(msg string) error
	SendWithRetry(msg string) error
}

// Noop drops every message, used when no notifier is configured.
type Noop struct{}

func (Noop) Send(string) error          { return nil }
func (Noop) SendWithRetry(string) error { return nil }

const (
	defaultRetries = 3
	defaultDelay   = 5 * time.Second
)
