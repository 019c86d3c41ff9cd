// Package notify delivers best-effort desktop notifications. Delivery
// failure must never affect control flow; callers log and continue.
package notify

import (
	"time"

	"go.olrik.dev/rekindle/internal/core"
)

// Urgency maps onto the freedesktop notification urgency levels.
type Urgency byte

const (
	UrgencyLow Urgency = iota
	UrgencyNormal
	UrgencyCritical
)

// Notification is a single desktop notification.
type Notification struct {
	Title   string
	Message string
	Urgency Urgency
	Timeout time.Duration // Zero means server default
}

// Notifier displays notifications.
type Notifier interface {
	Send(n Notification) error
}

// Disabled is a Notifier that drops everything.
type Disabled struct{}

func (Disabled) Send(Notification) error { return nil }

// New returns the platform notifier, or Disabled when notifications are
// turned off or the platform has no supported notification channel.
func New(cfg core.NotificationConfig) Notifier {
	if !cfg.Enabled {
		return Disabled{}
	}
	return newPlatformNotifier(cfg)
}
