package notify

import (
	"github.com/TheMichaelB/nextsync/internal/events"
)

// Counts is the aggregate surfaced to the notification layer after passes
// complete. The engine never formats user-facing text; consumers render
// their own badges or toasts from these numbers.
type Counts struct {
	PendingConflicts int `json:"pending_conflicts"`
	RecentErrors     int `json:"recent_errors"`
	PassesCompleted  int `json:"passes_completed"`
}

// Notifier receives aggregate counts whenever they change.
type Notifier interface {
	Notify(counts Counts)
}

// LogNotifier writes count updates to the structured log. It is the default
// sink when no UI layer is attached.
type LogNotifier struct {
	logger *events.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(logger *events.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.WithField("component", "notifier")}
}

func (n *LogNotifier) Notify(counts Counts) {
	n.logger.WithFields(map[string]interface{}{
		"pending_conflicts": counts.PendingConflicts,
		"recent_errors":     counts.RecentErrors,
		"passes_completed":  counts.PassesCompleted,
	}).Info("Sync counts updated")
}
