package model

import "time"

// DateLayout is the layout of Lesson.Date (date-only, no time component).
const DateLayout = "2006-01-02"

// ClassGroupSummary is the display projection of a ClassGroup that the
// data-fetch layer joins onto every Lesson.
type ClassGroupSummary struct {
	Name           string    `json:"name" db:"name"`
	Language       Language  `json:"language" db:"language"`
	Level          string    `json:"level" db:"level"`
	ClassroomColor string    `json:"classroom_color" db:"classroom_color"`
	Kind           GroupKind `json:"group_kind" db:"group_kind"`
	TeacherName    string    `json:"teacher_name" db:"teacher_name"`
}

// ClassGroup is a recurring cohort of students sharing a schedule, teacher
// and language. A private ("particular") group is a 1:1 arrangement.
type ClassGroup struct {
	ID        string `json:"id" db:"id"`
	TeacherID string `json:"teacher_id" db:"teacher_id"`

	ClassGroupSummary
}

// Summary returns the display projection of g.
func (g ClassGroup) Summary() ClassGroupSummary {
	return g.ClassGroupSummary
}

// Lesson is one scheduled occurrence belonging to a class group.
type Lesson struct {
	ID           string `json:"id" validate:"required"`
	ClassGroupID string `json:"class_group_id" validate:"required"`

	// Date is the calendar day in DateLayout.
	Date string `json:"date" validate:"required,datetime=2006-01-02"`

	// StartTime / EndTime are "HH:MM" or "HH:MM:SS"; empty when unknown.
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`

	Status     LessonStatus `json:"status" validate:"required,oneof=scheduled in-progress completed cancelled"`
	LessonType LessonType   `json:"lesson_type" validate:"required,oneof=normal graded final-exam"`

	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`

	// Group is nil when ClassGroupID resolves to no known class group.
	Group *ClassGroupSummary `json:"group,omitempty" validate:"-"`
}

// Day parses l.Date in loc. ok is false when the date is malformed.
func (l Lesson) Day(loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout, l.Date, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Cancelled reports whether the lesson was cancelled.
func (l Lesson) Cancelled() bool {
	return l.Status == StatusCancelled
}

// CalendarEvent is the derived, ephemeral view of one or more lessons ready
// for a calendar widget. It is rebuilt on every render pass and never
// persisted.
type CalendarEvent struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	// AllDay is set when the event has no time-of-day (lessons without a
	// start time, and aggregated day entries).
	AllDay bool `json:"all_day"`

	BackgroundStyle string   `json:"background"`
	BorderColor     string   `json:"border_color"`
	Tags            []string `json:"tags"`

	Payload EventPayload `json:"payload"`
}

// Aggregated reports whether the event summarizes several lessons.
func (e CalendarEvent) Aggregated() bool {
	return e.Payload.Lesson == nil && len(e.Payload.LessonList) > 0
}

// EventPayload carries the originating lesson(s) plus denormalized group
// fields so that consumers can display details without refetching.
type EventPayload struct {
	// Lesson is set for a single-lesson event.
	Lesson *Lesson `json:"lesson,omitempty"`
	// LessonList is set for an aggregated day entry.
	LessonList []Lesson `json:"lesson_list,omitempty"`

	ClassGroupID string       `json:"class_group_id"`
	Date         string       `json:"date"`
	GroupName    string       `json:"group_name"`
	Language     Language     `json:"language"`
	Level        string       `json:"level"`
	Status       LessonStatus `json:"status"`
	LessonType   LessonType   `json:"lesson_type"`

	// Sequence is the lesson's ordinal within its group; zero when the
	// lesson has none (cancelled, or aggregated entries).
	Sequence int `json:"sequence,omitempty"`
}

// Lessons returns the lessons behind the event: the single lesson for a
// plain event, the member list for an aggregated entry.
func (p EventPayload) Lessons() []Lesson {
	if p.Lesson != nil {
		return []Lesson{*p.Lesson}
	}
	return p.LessonList
}
