// Package calendar turns loaded lessons into calendar events: per-group
// lesson numbering, title/color/tag mapping, month-view day aggregation and
// the day-detail dialog state.
//
// Everything except Selector is a pure function of its inputs. Callers
// rebuild on every change of lessons, selection or view and never keep
// intermediate results around.
package calendar

import (
	"sort"
	"time"

	"aulacal/internal/model"
)

// ViewState is the calendar state a render depends on.
type ViewState struct {
	View model.View

	// RangeStart / RangeEnd bound the visible days, inclusive. A zero value
	// leaves that side open.
	RangeStart time.Time
	RangeEnd   time.Time

	// GroupIDs, when non-empty, restricts the events to these class groups.
	GroupIDs []string

	// Location interprets lesson dates and times. UTC when nil.
	Location *time.Location
}

// Result is one render's output.
type Result struct {
	Events   []model.CalendarEvent `json:"events"`
	Sequence map[string]int        `json:"sequence"`
}

// Build derives the calendar events for lessons.
//
// Sequence numbers are computed over every lesson passed in, so that a
// lesson keeps its number whatever range or group filter is on screen.
func Build(lessons []model.Lesson, sel Selection, vs ViewState) Result {
	seq := Sequence(lessons)

	visible := Visible(lessons, vs)
	sort.SliceStable(visible, func(i, j int) bool {
		return lessLessonChrono(visible[i], visible[j])
	})

	events := make([]model.CalendarEvent, 0, len(visible))
	for _, l := range visible {
		events = append(events, MapLesson(l, seq, sel, vs.Location))
	}

	return Result{
		Events:   Aggregate(events, vs.View),
		Sequence: seq,
	}
}

// Visible returns the lessons that fall in the view's range and group
// filter, in input order.
func Visible(lessons []model.Lesson, vs ViewState) []model.Lesson {
	loc := vs.Location
	if loc == nil {
		loc = time.UTC
	}
	var from, to string
	if !vs.RangeStart.IsZero() {
		from = vs.RangeStart.In(loc).Format(model.DateLayout)
	}
	if !vs.RangeEnd.IsZero() {
		to = vs.RangeEnd.In(loc).Format(model.DateLayout)
	}
	var groups map[string]struct{}
	if len(vs.GroupIDs) > 0 {
		groups = make(map[string]struct{}, len(vs.GroupIDs))
		for _, id := range vs.GroupIDs {
			groups[id] = struct{}{}
		}
	}

	out := make([]model.Lesson, 0, len(lessons))
	for _, l := range lessons {
		if from != "" && l.Date < from {
			continue
		}
		if to != "" && l.Date > to {
			continue
		}
		if groups != nil {
			if _, ok := groups[l.ClassGroupID]; !ok {
				continue
			}
		}
		out = append(out, l)
	}
	return out
}

// LessonsOn returns the lessons dated date, in input order.
func LessonsOn(lessons []model.Lesson, date string) []model.Lesson {
	out := make([]model.Lesson, 0)
	for _, l := range lessons {
		if l.Date == date {
			out = append(out, l)
		}
	}
	return out
}
