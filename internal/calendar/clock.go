package calendar

import (
	"strconv"
	"strings"
	"time"
)

// clock is a parsed time-of-day. A zero clock with ok == false stands for
// an absent or malformed value.
type clock struct {
	h, m, s int
	ok      bool
}

// parseClock parses "HH:MM" or "HH:MM:SS". Malformed values come back as
// absent instead of an error.
func parseClock(v string) clock {
	v = strings.TrimSpace(v)
	if v == "" {
		return clock{}
	}
	parts := strings.Split(v, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return clock{}
	}
	nums := [3]int{}
	for i, p := range parts {
		if len(p) == 0 || len(p) > 2 {
			return clock{}
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return clock{}
		}
		nums[i] = n
	}
	if nums[0] > 23 || nums[1] > 59 || nums[2] > 59 {
		return clock{}
	}
	return clock{h: nums[0], m: nums[1], s: nums[2], ok: true}
}

// sortKey orders absent clocks before every present one.
func (c clock) sortKey() string {
	if !c.ok {
		return ""
	}
	return c.pad(true)
}

// hhmm formats the clock for display, "" when absent.
func (c clock) hhmm() string {
	if !c.ok {
		return ""
	}
	return c.pad(false)
}

func (c clock) pad(seconds bool) string {
	two := func(n int) string {
		if n < 10 {
			return "0" + strconv.Itoa(n)
		}
		return strconv.Itoa(n)
	}
	out := two(c.h) + ":" + two(c.m)
	if seconds {
		out += ":" + two(c.s)
	}
	return out
}

func (c clock) on(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.h, c.m, c.s, 0, day.Location())
}

// weekdayPT holds the short Brazilian Portuguese weekday names used in
// private lesson titles.
var weekdayPT = [...]string{
	time.Sunday:    "Domingo",
	time.Monday:    "Segunda",
	time.Tuesday:   "Terça",
	time.Wednesday: "Quarta",
	time.Thursday:  "Quinta",
	time.Friday:    "Sexta",
	time.Saturday:  "Sábado",
}

// WeekdayName returns the Portuguese weekday name of a "YYYY-MM-DD" date,
// or "" if the date does not parse.
func WeekdayName(date string) string {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(date))
	if err != nil {
		return ""
	}
	return weekdayPT[t.Weekday()]
}
