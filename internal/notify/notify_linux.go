package notify

import (
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"

	"go.olrik.dev/rekindle/internal/core"
)

const (
	notifyService   = "org.freedesktop.Notifications"
	notifyPath      = "/org/freedesktop/Notifications"
	notifyInterface = "org.freedesktop.Notifications.Notify"
)

// dbusNotifier sends notifications over the D-Bus session bus. The
// connection is established lazily on first use; a headless session without
// a bus just makes every Send fail, which callers treat as non-fatal.
type dbusNotifier struct {
	cfg core.NotificationConfig

	mu   sync.Mutex
	conn *dbus.Conn
}

func newPlatformNotifier(cfg core.NotificationConfig) Notifier {
	return &dbusNotifier{cfg: cfg}
}

func (d *dbusNotifier) Send(n Notification) error {
	conn, err := d.connect()
	if err != nil {
		return err
	}

	timeout := int32(d.cfg.Timeout)
	if n.Timeout > 0 {
		timeout = int32(n.Timeout.Milliseconds())
	}

	hints := map[string]dbus.Variant{
		"urgency": dbus.MakeVariant(byte(n.Urgency)),
	}

	obj := conn.Object(notifyService, notifyPath)
	call := obj.Call(notifyInterface, 0,
		"rekindle", // app_name
		uint32(0),  // replaces_id
		"",         // app_icon
		n.Title,
		n.Message,
		[]string{}, // actions
		hints,
		timeout,
	)
	if call.Err != nil {
		return fmt.Errorf("notification dispatch failed: %w", call.Err)
	}
	return nil
}

func (d *dbusNotifier) connect() (*dbus.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn != nil {
		return d.conn, nil
	}

	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("D-Bus session bus unavailable: %w", err)
	}
	d.conn = conn
	return conn, nil
}
