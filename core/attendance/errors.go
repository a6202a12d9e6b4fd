package attendance

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind discriminates business-rule rejections so the API layer can map them
// to HTTP statuses without parsing messages.
type Kind int

const (
	KindStudentNotFound Kind = iota + 1
	KindGroupNotFound
	KindGroupMismatch
	KindNotScheduledToday
	KindSessionNotStarted
	KindNoActiveGroup
	KindAlreadyPresent
	KindDuplicateInDayGroup
	KindAttendanceNotFound
	KindInvalidDayOrTime
)

// NotFound reports whether the kind maps to a missing entity.
func (k Kind) NotFound() bool {
	switch k {
	case KindStudentNotFound, KindGroupNotFound, KindAttendanceNotFound:
		return true
	}
	return false
}

// Error is a typed business-rule rejection. Messages embed the conflicting
// entity's identifying details so front-desk rejections are self-explanatory.
type Error struct {
	Kind    Kind
	message string
}

func (e *Error) Error() string { return e.message }

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, message: fmt.Sprintf(format, args...)}
}

// AsError unwraps err to an attendance *Error if it is one.
func AsError(err error) (*Error, bool) {
	e, ok := errors.Cause(err).(*Error)
	return e, ok
}
