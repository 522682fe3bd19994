package calendar

import (
	"sort"

	"aulacal/internal/model"
)

// Sequence numbers lessons per class group in chronological order.
//
// Lessons are stable-sorted by (date, start time), with an absent or
// malformed start time ordering first and the lesson id breaking ties,
// then numbered 1..K within each class group. Cancelled lessons get no
// number and do not advance the counter. Lessons without a class group share the "" partition.
func Sequence(lessons []model.Lesson) map[string]int {
	sorted := make([]model.Lesson, len(lessons))
	copy(sorted, lessons)
	sort.SliceStable(sorted, func(i, j int) bool {
		return lessLessonChrono(sorted[i], sorted[j])
	})

	seq := make(map[string]int, len(sorted))
	next := make(map[string]int)
	for _, l := range sorted {
		if l.Cancelled() {
			continue
		}
		next[l.ClassGroupID]++
		seq[l.ID] = next[l.ClassGroupID]
	}
	return seq
}

func lessLessonChrono(a, b model.Lesson) bool {
	if a.Date != b.Date {
		return a.Date < b.Date
	}
	ka, kb := parseClock(a.StartTime).sortKey(), parseClock(b.StartTime).sortKey()
	if ka != kb {
		return ka < kb
	}
	// Same slot: the id decides, independent of row order.
	return a.ID < b.ID
}
