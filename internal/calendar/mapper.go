package calendar

import (
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"aulacal/internal/model"
)

// FallbackTitle is shown for lessons whose class group no longer exists.
const FallbackTitle = "Private Lesson"

// maxTitleLen is the group-name length above which filler words are
// dropped from regular lesson titles.
const maxTitleLen = 35

const selectedMark = "✓ "

// Solid colors used for borders and as gradient stops.
const (
	ColorNeutral   = "#9ca3af"
	ColorSelected  = "#dc2626"
	ColorGraded    = "#16a34a"
	ColorFinalExam = "#f59e0b"
)

// Classification tags. They drive styling hooks only.
const (
	TagCancelled = "cancelled"
	TagSelected  = "selected"
	TagOrphan    = "orphan"
	TagGraded    = "type-graded"
	TagFinalExam = "type-final-exam"
	TagPrivate   = "lang-private"
	TagNoLang    = "lang-none"
)

type palette struct {
	base     string
	gradient string
	tag      string
}

var languagePalettes = map[model.Language]palette{
	model.LanguageEnglish: {
		base:     "#2563eb",
		gradient: "linear-gradient(135deg, #3b82f6 0%, #1d4ed8 100%)",
		tag:      "lang-english",
	},
	model.LanguageJapanese: {
		base:     "#b91c1c",
		gradient: "linear-gradient(135deg, #ef4444 0%, #b91c1c 100%)",
		tag:      "lang-japanese",
	},
	model.LanguageEnglishJapanese: {
		base:     "#2563eb",
		gradient: "linear-gradient(135deg, #3b82f6 0%, #ef4444 100%)",
		tag:      "lang-english-japanese",
	},
	model.LanguagePrivate: {
		base:     "#7e22ce",
		gradient: "linear-gradient(135deg, #a855f7 0%, #7e22ce 100%)",
		tag:      TagPrivate,
	},
}

var (
	privateNameRe   = regexp.MustCompile(`(?i)^\s*(turma\s+)?particular\s*-`)
	privatePrefixRe = regexp.MustCompile(`(?i)^\s*(turma\s+)?particular\b\s*(-\s*)?`)
	timeRangeRe     = regexp.MustCompile(`(?i),?\s*das\s+\d{1,2}:\d{2}\s+[àa]s\s+\d{1,2}:\d{2}\s*$`)
	fillerWordsRe   = regexp.MustCompile(`(?i)\b(turma|classe|grupo)\b`)
	spacesRe        = regexp.MustCompile(`\s+`)
)

// Selection is the multi-select state of the calendar.
type Selection struct {
	// Active is true while the calendar is in multi-select mode.
	Active bool
	IDs    map[string]struct{}
}

// NewSelection returns an active selection holding ids.
func NewSelection(ids ...string) Selection {
	s := Selection{Active: true, IDs: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.IDs[id] = struct{}{}
	}
	return s
}

// Has reports whether id is selected while selection mode is active.
func (s Selection) Has(id string) bool {
	if !s.Active {
		return false
	}
	_, ok := s.IDs[id]
	return ok
}

// IsPrivate classifies a class group as private. Kind is authoritative; the
// language sentinel and the "particular - " name prefix are only consulted
// for rows that predate the group_kind column.
func IsPrivate(g model.ClassGroupSummary) bool {
	switch g.Kind {
	case model.GroupKindPrivate:
		return true
	case model.GroupKindRegular:
		return false
	}
	return g.Language == model.LanguagePrivate || privateNameRe.MatchString(g.Name)
}

// PersonName extracts the student's name from a private group name such as
// "Particular - João Silva, das 14:00 às 15:00".
func PersonName(groupName string) string {
	name := privatePrefixRe.ReplaceAllString(groupName, "")
	name = timeRangeRe.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}

// MapLesson converts one lesson into a calendar event. seq supplies the
// lesson's sequence number, sel the multi-select state and loc the zone
// the lesson's wall-clock times are interpreted in (UTC when nil).
func MapLesson(l model.Lesson, seq map[string]int, sel Selection, loc *time.Location) model.CalendarEvent {
	if loc == nil {
		loc = time.UTC
	}
	selected := sel.Has(l.ID)
	start, end := parseClock(l.StartTime), parseClock(l.EndTime)

	lc := l
	ev := model.CalendarEvent{
		ID: l.ID,
		Payload: model.EventPayload{
			Lesson:       &lc,
			ClassGroupID: l.ClassGroupID,
			Date:         l.Date,
			Status:       l.Status,
			LessonType:   l.LessonType,
			Sequence:     seq[l.ID],
		},
	}

	if day, ok := l.Day(loc); ok {
		if start.ok {
			ev.Start = start.on(day)
			ev.End = ev.Start
			if end.ok && !end.on(day).Before(ev.Start) {
				ev.End = end.on(day)
			}
		} else {
			ev.Start, ev.End, ev.AllDay = day, day, true
		}
	} else {
		ev.AllDay = true
	}

	tags := make([]string, 0, 4)
	background, border := ColorNeutral, ColorNeutral

	if l.Group == nil {
		ev.Title = FallbackTitle
		tags = append(tags, TagOrphan)
	} else {
		g := *l.Group
		ev.Payload.GroupName = g.Name
		ev.Payload.Language = g.Language
		ev.Payload.Level = g.Level

		private := IsPrivate(g)
		if private {
			ev.Title = privateTitle(g.Name, l.Date, start, end)
		} else {
			ev.Title = regularTitle(g.Name, selected)
		}

		pal, hasPal := languagePalettes[g.Language]
		if private {
			pal, hasPal = languagePalettes[model.LanguagePrivate], true
		}
		if hasPal {
			background, border = pal.gradient, pal.base
			tags = append(tags, pal.tag)
		} else {
			tags = append(tags, TagNoLang)
		}
		if g.ClassroomColor != "" {
			border = g.ClassroomColor
		}

		base := ColorNeutral
		if hasPal {
			base = pal.base
		}
		switch l.LessonType {
		case model.LessonGraded:
			background, border = blend(ColorGraded, base), ColorGraded
		case model.LessonFinalExam:
			background, border = blend(ColorFinalExam, base), ColorFinalExam
		}
	}

	switch l.LessonType {
	case model.LessonGraded:
		tags = append(tags, TagGraded)
	case model.LessonFinalExam:
		tags = append(tags, TagFinalExam)
	}
	if l.Cancelled() {
		tags = append(tags, TagCancelled)
	}
	if selected {
		background, border = ColorSelected, ColorSelected
		tags = append(tags, TagSelected)
	}

	ev.BackgroundStyle = background
	ev.BorderColor = border
	ev.Tags = normalizeTags(tags)
	return ev
}

func privateTitle(groupName, date string, start, end clock) string {
	person := PersonName(groupName)
	if person == "" {
		person = FallbackTitle
	}
	return person + " - " + WeekdayName(date) + " - " + start.hhmm() + " as " + end.hhmm()
}

func regularTitle(groupName string, selected bool) string {
	title := groupName
	if utf8.RuneCountInString(title) > maxTitleLen {
		title = fillerWordsRe.ReplaceAllString(title, " ")
		title = strings.TrimSpace(spacesRe.ReplaceAllString(title, " "))
	}
	if selected {
		title = selectedMark + title
	}
	return title
}

// blend paints a type color over the language base, keeping a sliver of the
// base so the group stays recognizable.
func blend(dominant, base string) string {
	return "linear-gradient(135deg, " + dominant + " 0%, " + dominant + " 65%, " + base + " 100%)"
}

func normalizeTags(tags []string) []string {
	sort.Strings(tags)
	out := tags[:0]
	for i, t := range tags {
		if i > 0 && t == tags[i-1] {
			continue
		}
		out = append(out, t)
	}
	return out
}
