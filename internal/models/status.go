package models

// Status labels understood by the calendar views. The store treats status as
// a free-form string; these are conventions, not an enforced enum.
const (
	StatusNone       = "none"
	StatusReady      = "ready"
	StatusInProgress = "in_progress"
	StatusPaused     = "paused"
	StatusCompleted  = "completed"
)

// DefaultStatus is written when a document is created without a status and
// assumed when a metadata file omits it.
const DefaultStatus = StatusNone

var statusCycle = []string{StatusReady, StatusInProgress, StatusPaused, StatusCompleted}

// NextStatus returns the status that follows s when a user cycles through
// the known statuses. "none" and unknown labels restart the cycle at "ready".
func NextStatus(s string) string {
	for i, st := range statusCycle {
		if st == s {
			return statusCycle[(i+1)%len(statusCycle)]
		}
	}
	return StatusReady
}

// KnownStatus reports whether s is one of the conventional labels.
func KnownStatus(s string) bool {
	if s == StatusNone {
		return true
	}
	for _, st := range statusCycle {
		if st == s {
			return true
		}
	}
	return false
}
