package notify

import (
	"github.com/gen2brain/beeep"
)

// Notifier delivers a local alert to the user. The engine only decides when
// an alert is logically due; delivery mechanics live behind this interface.
type Notifier interface {
	Notify(title, message string) error
}

// DesktopNotifier sends cross-platform desktop notifications.
type DesktopNotifier struct{}

func NewDesktopNotifier() *DesktopNotifier {
	return &DesktopNotifier{}
}

func (n *DesktopNotifier) Notify(title, message string) error {
	return beeep.Notify(title, message, "")
}

// NopNotifier discards notifications. Used when desktop notifications are
// disabled and in tests.
type NopNotifier struct{}

func (NopNotifier) Notify(title, message string) error { return nil }
