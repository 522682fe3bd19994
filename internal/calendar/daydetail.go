package calendar

import (
	"errors"
	"sort"

	"aulacal/internal/model"
)

// ShowAllThreshold is the number of same-day lessons above which day and
// week views offer a "show all N lessons" entry.
const ShowAllThreshold = 8

// SelectorState is the state of a Selector.
type SelectorState int

const (
	StateClosed SelectorState = iota
	StateListing
)

func (s SelectorState) String() string {
	if s == StateListing {
		return "listing"
	}
	return "closed"
}

var (
	ErrNotAggregated = errors.New("daydetail: event is not an aggregated day entry")
	ErrNotListing    = errors.New("daydetail: selector is not listing")
	ErrListing       = errors.New("daydetail: selector is already listing")
	ErrUnknownLesson = errors.New("daydetail: lesson is not in the listing")
)

// DayDetail is what the day dialog shows: the day and its lessons in
// (start, end) order.
type DayDetail struct {
	Date    string         `json:"date"`
	Lessons []model.Lesson `json:"lessons"`
}

// Selector drives the day dialog opened from an aggregated month entry or
// from the "show all" affordance. It is not safe for concurrent use; a UI
// owns one per calendar.
//
// closed --Open/OpenDay--> listing --Select/Dismiss--> closed
type Selector struct {
	openLesson func(model.Lesson)

	state  SelectorState
	detail DayDetail
}

// NewSelector returns a closed selector. openLesson is the action a plain
// calendar click triggers; Select hands the chosen lesson to it.
func NewSelector(openLesson func(model.Lesson)) *Selector {
	return &Selector{openLesson: openLesson}
}

// State returns the current state.
func (s *Selector) State() SelectorState {
	return s.state
}

// Open lists the lessons behind an aggregated month entry.
func (s *Selector) Open(ev model.CalendarEvent) error {
	if s.state != StateClosed {
		return ErrListing
	}
	if !ev.Aggregated() {
		return ErrNotAggregated
	}
	s.open(ev.Payload.Date, ev.Payload.LessonList)
	return nil
}

// OpenDay lists every lesson of a day, for the "show all" affordance.
func (s *Selector) OpenDay(date string, lessons []model.Lesson) error {
	if s.state != StateClosed {
		return ErrListing
	}
	s.open(date, lessons)
	return nil
}

func (s *Selector) open(date string, lessons []model.Lesson) {
	list := make([]model.Lesson, len(lessons))
	copy(list, lessons)
	SortByTime(list)
	s.detail = DayDetail{Date: date, Lessons: list}
	s.state = StateListing
}

// Listing returns the open listing. ok is false when the selector is
// closed.
func (s *Selector) Listing() (DayDetail, bool) {
	if s.state != StateListing {
		return DayDetail{}, false
	}
	return s.detail, true
}

// Select opens the lesson with the given id and closes the listing.
func (s *Selector) Select(id string) error {
	if s.state != StateListing {
		return ErrNotListing
	}
	for _, l := range s.detail.Lessons {
		if l.ID != id {
			continue
		}
		s.close()
		if s.openLesson != nil {
			s.openLesson(l)
		}
		return nil
	}
	return ErrUnknownLesson
}

// Dismiss closes the listing without opening anything.
func (s *Selector) Dismiss() {
	s.close()
}

func (s *Selector) close() {
	s.state = StateClosed
	s.detail = DayDetail{}
}

// SortByTime orders lessons by (start, end); absent or malformed times come
// first.
func SortByTime(lessons []model.Lesson) {
	sort.SliceStable(lessons, func(i, j int) bool {
		si, sj := parseClock(lessons[i].StartTime).sortKey(), parseClock(lessons[j].StartTime).sortKey()
		if si != sj {
			return si < sj
		}
		return parseClock(lessons[i].EndTime).sortKey() < parseClock(lessons[j].EndTime).sortKey()
	})
}

// NeedsShowAll reports whether a day with these lessons gets the "show all"
// affordance in the given view.
func NeedsShowAll(view model.View, sameDay int) bool {
	return view != model.ViewMonth && sameDay > ShowAllThreshold
}
