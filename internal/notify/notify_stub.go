//go:build !linux && !darwin

package notify

import "go.olrik.dev/rekindle/internal/core"

// No supported notification channel on this platform.
func newPlatformNotifier(cfg core.NotificationConfig) Notifier {
	return Disabled{}
}
