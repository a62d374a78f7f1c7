package schedule

import "planner/internal/models"

// IsCompleted reports whether the task was marked done on the exact date.
// Missing entries read as not completed.
func IsCompleted(status models.CompletionStatus, taskID int64, date string) bool {
	return status[taskID][date]
}

// ToggleCompletion flips the done flag for one task occurrence and returns a
// new map. The input map and its inner maps are never mutated, so callers
// holding the old snapshot keep seeing the old state.
func ToggleCompletion(status models.CompletionStatus, taskID int64, date string) models.CompletionStatus {
	next := make(models.CompletionStatus, len(status)+1)
	for id, dates := range status {
		next[id] = dates
	}
	dates := make(map[string]bool, len(status[taskID])+1)
	for d, done := range status[taskID] {
		dates[d] = done
	}
	dates[date] = !dates[date]
	next[taskID] = dates
	return next
}

// PurgeCompletion removes every completion entry recorded for the task.
// Returns the input unchanged when the task has no entries.
func PurgeCompletion(status models.CompletionStatus, taskID int64) models.CompletionStatus {
	if _, ok := status[taskID]; !ok {
		return status
	}
	next := make(models.CompletionStatus, len(status))
	for id, dates := range status {
		if id != taskID {
			next[id] = dates
		}
	}
	return next
}
