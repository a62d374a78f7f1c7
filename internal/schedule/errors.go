package schedule

import "errors"

// Validation errors: reported before any state changes.
var (
	ErrTitleRequired  = errors.New("task title must not be empty")
	ErrTimeRequired   = errors.New("task time must not be empty")
	ErrNoDaysSelected = errors.New("recurring task needs at least one weekday")
	ErrNoDateSelected = errors.New("exact-date task needs a date")
	ErrUnknownKind    = errors.New("unknown task kind")
	ErrUnknownWeekday = errors.New("unknown weekday abbreviation")
)

// Precondition errors: the operation is refused outright, nothing mutates.
var (
	ErrOffline    = errors.New("deleting tasks requires an internet connection")
	ErrNoIdentity = errors.New("deleting tasks requires a signed-in user")
)

// ErrTaskNotFound is returned when an id matches no task; state is untouched.
var ErrTaskNotFound = errors.New("task not found")

// IsValidationError reports whether err is one of the input validation
// failures, as opposed to a precondition or remote failure.
func IsValidationError(err error) bool {
	for _, v := range []error{
		ErrTitleRequired, ErrTimeRequired, ErrNoDaysSelected,
		ErrNoDateSelected, ErrUnknownKind, ErrUnknownWeekday,
	} {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}

// RemoteError wraps a failed write-through to the remote record so callers
// can distinguish it from local failures and report the underlying cause.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return "remote " + e.Op + ": " + e.Err.Error()
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}
