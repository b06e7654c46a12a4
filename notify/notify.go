// Package notify emits desktop notifications for session switches and
// completion. Notification failures never interrupt the timer.
package notify

import (
	"fmt"
	"log/slog"

	"github.com/gen2brain/beeep"

	"github.com/takaotokuno/focusguard/internal/apperr"
	"github.com/takaotokuno/focusguard/internal/timeutil"
)

// Priority is carried on every notification.
const Priority = 2

// Notification is a single desktop notification. The ID is a prefix that is
// made unique per emission.
type Notification struct {
	ID      string
	Title   string
	Message string
}

// Complete is shown when the total session finishes.
func Complete() Notification {
	return Notification{
		ID:      "complete",
		Title:   "ポモドーロ完了",
		Message: "お疲れ様！また頑張ろう",
	}
}

// SwitchToBreak is shown when a work session gives way to a break.
func SwitchToBreak() Notification {
	return Notification{
		ID:      "switch",
		Title:   "休憩開始",
		Message: "ブロックを解除したよ。肩の力を抜こう",
	}
}

// SwitchToWork is shown when a break gives way to a work session.
func SwitchToWork() Notification {
	return Notification{
		ID:      "switch",
		Title:   "作業開始！",
		Message: "SNSをブロックしたよ。作業に集中しよう",
	}
}

// Notifier emits notifications.
type Notifier interface {
	Notify(n Notification) error
}

// Discard drops notifications. It stands in when notifications are disabled
// in the configuration.
type Discard struct{}

func (Discard) Notify(Notification) error { return nil }

// Desktop sends notifications through the system notification service.
type Desktop struct {
	iconPath string
	clock    timeutil.Clock
	log      *slog.Logger
}

// NewDesktop returns a Desktop notifier. iconPath may be empty.
func NewDesktop(iconPath string, clock timeutil.Clock, log *slog.Logger) *Desktop {
	return &Desktop{
		iconPath: iconPath,
		clock:    clock,
		log:      log,
	}
}

// Notify displays the notification. The emission id is the notification id
// suffixed with the current time so repeated notifications do not coalesce.
func (d *Desktop) Notify(n Notification) error {
	emissionID := fmt.Sprintf("%s-%d", n.ID, d.clock.Now().UnixMilli())

	d.log.Debug("emitting notification",
		slog.String("id", emissionID),
		slog.String("title", n.Title),
		slog.Int("priority", Priority),
	)

	err := beeep.Notify(n.Title, n.Message, d.iconPath)
	if err != nil {
		return apperr.Wrap(
			apperr.Notify,
			apperr.Warning,
			"displaying notification "+emissionID,
			err,
		)
	}

	return nil
}
