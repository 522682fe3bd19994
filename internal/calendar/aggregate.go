package calendar

import (
	"sort"
	"strconv"
	"time"

	"aulacal/internal/model"
)

// Aggregate collapses same-group same-day events into one summary entry
// when view is month. Other views get a copy of events back.
//
// Groups are emitted in the position of their first member, so the output
// order is a function of the input order alone. Running Aggregate twice on
// the same input yields identical output.
func Aggregate(events []model.CalendarEvent, view model.View) []model.CalendarEvent {
	out := make([]model.CalendarEvent, 0, len(events))
	if view != model.ViewMonth {
		return append(out, events...)
	}

	type bucket struct {
		key     string
		members []model.CalendarEvent
	}
	index := make(map[string]int)
	buckets := make([]*bucket, 0, len(events))
	for _, ev := range events {
		key := dayKey(ev)
		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, &bucket{key: key})
		}
		buckets[i].members = append(buckets[i].members, ev)
	}

	for _, b := range buckets {
		if len(b.members) == 1 {
			out = append(out, b.members[0])
			continue
		}
		out = append(out, summarize(b.members))
	}
	return out
}

func dayKey(ev model.CalendarEvent) string {
	date := ev.Payload.Date
	if date == "" && !ev.Start.IsZero() {
		date = ev.Start.Format(model.DateLayout)
	}
	return ev.Payload.ClassGroupID + "|" + date
}

// summarize builds the "N aulas" entry for members, which share group and
// day. Colors and group fields come from the first member.
func summarize(members []model.CalendarEvent) model.CalendarEvent {
	first := members[0]

	lessons := make([]model.Lesson, 0, len(members))
	for _, m := range members {
		lessons = append(lessons, m.Payload.Lessons()...)
	}
	sort.SliceStable(lessons, func(i, j int) bool {
		return parseClock(lessons[i].StartTime).sortKey() < parseClock(lessons[j].StartTime).sortKey()
	})

	day := first.Start
	if !day.IsZero() {
		day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	}

	tags := make([]string, len(first.Tags))
	copy(tags, first.Tags)

	return model.CalendarEvent{
		ID:              "day-" + first.Payload.ClassGroupID + "-" + first.Payload.Date,
		Title:           first.Title + " • " + strconv.Itoa(len(lessons)) + " aulas",
		Start:           day,
		End:             day,
		AllDay:          true,
		BackgroundStyle: first.BackgroundStyle,
		BorderColor:     first.BorderColor,
		Tags:            tags,
		Payload: model.EventPayload{
			LessonList:   lessons,
			ClassGroupID: first.Payload.ClassGroupID,
			Date:         first.Payload.Date,
			GroupName:    first.Payload.GroupName,
			Language:     first.Payload.Language,
			Level:        first.Payload.Level,
			Status:       first.Payload.Status,
			LessonType:   first.Payload.LessonType,
		},
	}
}
