// Package store is the data-access boundary to the relational backend that
// owns class groups and lessons.
package store

import (
	"context"

	"github.com/pkg/errors"

	"aulacal/internal/model"
)

// Backend is what the rest of the service consumes: fetch groups, fetch
// joined lessons and persist lesson edits. Every method either succeeds or
// returns a *Error carrying a human-readable message.
type Backend interface {
	FetchClassGroups(ctx context.Context) ([]model.ClassGroup, error)
	// FetchLessonsByGroups returns lessons joined with their group summary.
	// No group ids means every group. Lessons whose group no longer exists
	// come back with a nil Group.
	FetchLessonsByGroups(ctx context.Context, groupIDs []string) ([]model.Lesson, error)
	UpdateLessonType(ctx context.Context, lessonID string, t model.LessonType) error
	// InsertLessons stores new lessons, assigning ids to those without one.
	InsertLessons(ctx context.Context, lessons []model.Lesson) ([]model.Lesson, error)
	DeleteLesson(ctx context.Context, lessonID string) error
}

// ErrNotFound is wrapped by errors for missing rows.
var ErrNotFound = errors.New("not found")

// Error is the structured error returned by Backend implementations.
type Error struct {
	// Op names the failed operation, e.g. "fetch-lessons".
	Op string
	// Message is safe to show to a user.
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Message
	}
	return e.Op + ": " + e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(op, msg string, err error) error {
	return &Error{Op: op, Message: msg, Err: err}
}

// Message returns the user-facing message of err, or fallback if err is
// not a *Error.
func Message(err error, fallback string) string {
	var se *Error
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return fallback
}

// IsNotFound reports whether err stems from a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
