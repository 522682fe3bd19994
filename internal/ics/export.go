// Package ics imports lesson schedules from iCalendar data and exports a
// class group's lessons as an iCalendar subscription feed.
package ics

import (
	"io"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"aulacal/internal/calendar"
	"aulacal/internal/model"
)

// Feed describes the exported calendar.
type Feed struct {
	ProductID string
	Name      string
	// Location interprets lesson dates and times. UTC when nil.
	Location *time.Location
	// Now stamps DTSTAMP. time.Now when zero.
	Now time.Time
}

// WriteFeed writes lessons as a VCALENDAR subscription feed: one VEVENT per
// lesson, titled the way the calendar shows it, with the lesson number in
// the description. Cancelled lessons stay in the feed with
// STATUS:CANCELLED so subscribers drop them.
func WriteFeed(w io.Writer, feed Feed, lessons []model.Lesson) error {
	if feed.Location == nil {
		feed.Location = time.UTC
	}
	if feed.Now.IsZero() {
		feed.Now = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(feed.ProductID)
	cal.SetXWRCalName(feed.Name)
	cal.SetXWRTimezone(feed.Location.String())
	cal.SetXPublishedTTL("PT1H")

	seq := calendar.Sequence(lessons)
	for _, l := range lessons {
		ev := calendar.MapLesson(l, seq, calendar.Selection{}, feed.Location)

		ve := cal.AddEvent(l.ID + "@aulacal")
		ve.SetDtStampTime(feed.Now)
		ve.SetSummary(ev.Title)
		if desc := description(l, ev); desc != "" {
			ve.SetDescription(desc)
		}
		if ev.AllDay {
			ve.SetAllDayStartAt(ev.Start)
			ve.SetAllDayEndAt(ev.Start.AddDate(0, 0, 1))
		} else {
			ve.SetStartAt(ev.Start)
			ve.SetEndAt(ev.End)
		}
		if len(ev.Tags) > 0 {
			ve.SetProperty(ical.ComponentPropertyCategories, strings.Join(ev.Tags, ","))
		}
		if strings.HasPrefix(ev.BorderColor, "#") {
			ve.SetProperty(ical.ComponentProperty("COLOR"), ev.BorderColor)
		}
		if l.Cancelled() {
			ve.SetStatus(ical.ObjectStatusCancelled)
		} else {
			ve.SetStatus(ical.ObjectStatusConfirmed)
		}
	}

	_, err := io.WriteString(w, cal.Serialize())
	return err
}

func description(l model.Lesson, ev model.CalendarEvent) string {
	parts := make([]string, 0, 3)
	if n := ev.Payload.Sequence; n > 0 {
		parts = append(parts, "Aula "+strconv.Itoa(n))
	}
	if l.Title != "" {
		parts = append(parts, l.Title)
	}
	if l.Description != "" {
		parts = append(parts, l.Description)
	}
	return strings.Join(parts, " - ")
}
