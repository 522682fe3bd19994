package ics

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	appLog "aulacal/internal/log"
	"aulacal/internal/model"
)

const defaultMaxOccurrences = 500

// ImportConfig controls how an ICS schedule becomes lessons.
type ImportConfig struct {
	// ClassGroupID owns every imported lesson.
	ClassGroupID string

	// Location is the school's zone; lesson dates and wall-clock times are
	// taken in it. time.Local when nil.
	Location *time.Location

	// RangeStart / RangeEnd bound recurrence expansion, inclusive.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrences caps the lessons produced per VEVENT.
	MaxOccurrences int
}

// ImportResult is the outcome of ParseLessons.
type ImportResult struct {
	Lessons []model.Lesson
	// Truncated lists UIDs whose expansion hit MaxOccurrences.
	Truncated []string
	// Skipped counts occurrences that failed validation.
	Skipped int
}

var validate = validator.New()

// ParseLessons turns the VEVENTs of an ICS payload into lesson drafts for
// one class group. Recurring events are expanded with their RRULE and
// EXDATEs inside the configured range; RECURRENCE-ID overrides replace the
// instance they name. Drafts get fresh ids, status scheduled (cancelled if
// the VEVENT says so) and type normal.
func ParseLessons(body []byte, cfg ImportConfig) (ImportResult, error) {
	var res ImportResult
	if cfg.ClassGroupID == "" {
		return res, errors.New("ics: class group id is required")
	}
	if !cfg.RangeEnd.IsZero() && cfg.RangeEnd.Before(cfg.RangeStart) {
		return res, errors.New("ics: range end is before range start")
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.MaxOccurrences <= 0 {
		cfg.MaxOccurrences = defaultMaxOccurrences
	}

	events, err := parseCalendar(body)
	if err != nil {
		return res, err
	}

	bases := make([]vevent, 0, len(events))
	overrides := make(map[string][]vevent)
	for _, ev := range events {
		if ev.isOverride() {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
			continue
		}
		bases = append(bases, ev)
	}

	for _, ev := range bases {
		occ, capped := occurrences(ev, overrides[ev.UID], cfg)
		if capped {
			res.Truncated = append(res.Truncated, ev.UID)
		}
		for _, o := range occ {
			l := toLesson(o, cfg)
			if err := validate.Struct(l); err != nil {
				appLog.Warn("ics: dropping invalid lesson", "uid", o.UID, "err", err)
				res.Skipped++
				continue
			}
			res.Lessons = append(res.Lessons, l)
		}
	}

	appLog.Info("ics import parsed",
		"group", cfg.ClassGroupID,
		"vevents", len(events),
		"lessons", len(res.Lessons),
		"skipped", res.Skipped,
	)
	return res, nil
}

// occurrences expands one base VEVENT. Each returned vevent has Start/End
// set to a concrete instance.
func occurrences(ev vevent, overrides []vevent, cfg ImportConfig) ([]vevent, bool) {
	if ev.RawRRule == "" {
		if !inRange(ev.Start, cfg) {
			return nil, false
		}
		return []vevent{applyOverride(ev, overrides, ev.Start)}, false
	}

	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("ics: bad RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// An open range side is bounded by a year from DTSTART so unbounded
	// rules terminate.
	from, to := ev.Start, ev.Start.AddDate(1, 0, 0)
	if !cfg.RangeStart.IsZero() {
		from = startOfDay(cfg.RangeStart.In(ev.Start.Location()))
	}
	if !cfg.RangeEnd.IsZero() {
		to = startOfDay(cfg.RangeEnd.In(ev.Start.Location())).AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	starts := set.Between(from, to, true)

	capped := false
	if len(starts) > cfg.MaxOccurrences {
		starts = starts[:cfg.MaxOccurrences]
		capped = true
	}

	dur := ev.End.Sub(ev.Start)
	out := make([]vevent, 0, len(starts))
	for _, s := range starts {
		inst := ev
		inst.Start = s
		inst.End = s.Add(dur)
		out = append(out, applyOverride(inst, overrides, s))
	}
	return out, capped
}

func applyOverride(inst vevent, overrides []vevent, start time.Time) vevent {
	for _, ov := range overrides {
		if ov.Recurrence.Equal(start) {
			return ov
		}
	}
	return inst
}

func inRange(t time.Time, cfg ImportConfig) bool {
	day := t.In(cfg.Location).Format(model.DateLayout)
	if !cfg.RangeStart.IsZero() && day < cfg.RangeStart.In(cfg.Location).Format(model.DateLayout) {
		return false
	}
	if !cfg.RangeEnd.IsZero() && day > cfg.RangeEnd.In(cfg.Location).Format(model.DateLayout) {
		return false
	}
	return true
}

func toLesson(o vevent, cfg ImportConfig) model.Lesson {
	l := model.Lesson{
		ID:           uuid.NewString(),
		ClassGroupID: cfg.ClassGroupID,
		Status:       model.StatusScheduled,
		LessonType:   model.LessonNormal,
		Title:        o.Summary,
		Description:  o.Description,
	}
	if o.Cancelled {
		l.Status = model.StatusCancelled
	}
	if o.AllDay {
		// DATE values carry no zone; keep the calendar day as written.
		l.Date = o.Start.Format(model.DateLayout)
		return l
	}
	start, end := o.Start.In(cfg.Location), o.End.In(cfg.Location)
	l.Date = start.Format(model.DateLayout)
	l.StartTime = start.Format("15:04")
	if end.After(start) && end.Format(model.DateLayout) == l.Date {
		l.EndTime = end.Format("15:04")
	}
	return l
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
