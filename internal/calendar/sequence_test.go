package calendar

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"aulacal/internal/model"
)

func lesson(id, group, date, start string) model.Lesson {
	return model.Lesson{
		ID:           id,
		ClassGroupID: group,
		Date:         date,
		StartTime:    start,
		Status:       model.StatusScheduled,
		LessonType:   model.LessonNormal,
	}
}

func TestSequence_TwoDaysNoTime(t *testing.T) {
	seq := Sequence([]model.Lesson{
		lesson("b", "G1", "2024-03-05", ""),
		lesson("a", "G1", "2024-03-01", ""),
	})
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, seq)
}

func TestSequence_GapFreeSkippingCancelled(t *testing.T) {
	cancelled := lesson("c2", "G1", "2024-03-02", "10:00")
	cancelled.Status = model.StatusCancelled

	seq := Sequence([]model.Lesson{
		lesson("c4", "G1", "2024-03-04", "10:00"),
		cancelled,
		lesson("c1", "G1", "2024-03-01", "10:00"),
		lesson("c3", "G1", "2024-03-03", "10:00"),
	})

	assert.Equal(t, map[string]int{"c1": 1, "c3": 2, "c4": 3}, seq)
	_, ok := seq["c2"]
	assert.False(t, ok, "cancelled lesson must not be numbered")
}

func TestSequence_PerGroup(t *testing.T) {
	seq := Sequence([]model.Lesson{
		lesson("a1", "A", "2024-03-01", "09:00"),
		lesson("b1", "B", "2024-03-01", "08:00"),
		lesson("a2", "A", "2024-03-02", "09:00"),
		lesson("b2", "B", "2024-03-03", "08:00"),
		lesson("x", "", "2024-03-01", ""),
	})
	assert.Equal(t, map[string]int{"a1": 1, "a2": 2, "b1": 1, "b2": 2, "x": 1}, seq)
}

func TestSequence_StartTimeOrdering(t *testing.T) {
	seq := Sequence([]model.Lesson{
		lesson("late", "G", "2024-03-01", "18:30"),
		lesson("early", "G", "2024-03-01", "7:05"),
		lesson("none", "G", "2024-03-01", ""),
		lesson("bad", "G", "2024-03-01", "25:99"),
		lesson("secs", "G", "2024-03-01", "07:05:30"),
	})
	// Absent and malformed times sort first; ids break the tie.
	assert.Equal(t, 1, seq["bad"])
	assert.Equal(t, 2, seq["none"])
	assert.Equal(t, 3, seq["early"])
	assert.Equal(t, 4, seq["secs"])
	assert.Equal(t, 5, seq["late"])
}

func TestSequence_ShuffleInvariant(t *testing.T) {
	base := []model.Lesson{
		lesson("1", "G1", "2024-03-01", "10:00"),
		lesson("2", "G1", "2024-03-01", "10:00"),
		lesson("3", "G1", "2024-03-02", ""),
		lesson("4", "G2", "2024-03-01", "08:00"),
		lesson("5", "G2", "2024-02-28", "08:00"),
		lesson("6", "G1", "2024-03-02", "09:00"),
	}
	base[2].Status = model.StatusCancelled
	want := Sequence(base)

	rnd := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		shuffled := make([]model.Lesson, len(base))
		copy(shuffled, base)
		rnd.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want, Sequence(shuffled))
	}
}

func TestSequence_DoesNotReorderInput(t *testing.T) {
	in := []model.Lesson{
		lesson("b", "G", "2024-03-02", ""),
		lesson("a", "G", "2024-03-01", ""),
	}
	Sequence(in)
	assert.Equal(t, "b", in[0].ID)
}
