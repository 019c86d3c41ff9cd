package notify

import (
	"fmt"
	"os/exec"
	"strings"

	"go.olrik.dev/rekindle/internal/core"
)

// osascriptNotifier shells out to osascript for notification display.
type osascriptNotifier struct{}

func newPlatformNotifier(cfg core.NotificationConfig) Notifier {
	return osascriptNotifier{}
}

func (osascriptNotifier) Send(n Notification) error {
	script := fmt.Sprintf("display notification %q with title %q",
		sanitize(n.Message), sanitize(n.Title))
	return exec.Command("osascript", "-e", script).Run()
}

// sanitize strips characters that would escape the AppleScript string.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, `"`, "'")
	s = strings.ReplaceAll(s, "\\", "")
	return s
}
