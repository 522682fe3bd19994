package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aulacal/internal/model"
)

func grouped(l model.Lesson, g model.ClassGroupSummary) model.Lesson {
	l.Group = &g
	return l
}

func TestMapLesson_PrivateTitle(t *testing.T) {
	l := lesson("p1", "G", "2024-03-04", "14:00") // a Monday
	l.EndTime = "15:00"
	l = grouped(l, model.ClassGroupSummary{
		Name: "Particular - João Silva, das 14:00 às 15:00",
		Kind: model.GroupKindPrivate,
	})

	ev := MapLesson(l, nil, Selection{}, nil)

	assert.Equal(t, "João Silva - Segunda - 14:00 as 15:00", ev.Title)
	assert.Equal(t, languagePalettes[model.LanguagePrivate].gradient, ev.BackgroundStyle)
	assert.Contains(t, ev.Tags, TagPrivate)
}

func TestMapLesson_PrivateTitleWithoutTimes(t *testing.T) {
	l := grouped(lesson("p1", "G", "2024-03-09", ""), model.ClassGroupSummary{
		Name: "Turma Particular - Ana",
		Kind: model.GroupKindPrivate,
	})
	ev := MapLesson(l, nil, Selection{}, nil)
	assert.Equal(t, "Ana - Sábado -  as ", ev.Title)
	assert.True(t, ev.AllDay)
}

func TestIsPrivate(t *testing.T) {
	tests := []struct {
		name string
		g    model.ClassGroupSummary
		want bool
	}{
		{name: "kind private", g: model.ClassGroupSummary{Name: "Ana", Kind: model.GroupKindPrivate}, want: true},
		{name: "kind regular wins over name", g: model.ClassGroupSummary{Name: "Particular - Ana", Kind: model.GroupKindRegular}},
		{name: "language sentinel", g: model.ClassGroupSummary{Name: "Ana", Language: model.LanguagePrivate}, want: true},
		{name: "name prefix", g: model.ClassGroupSummary{Name: "particular - Ana"}, want: true},
		{name: "turma particular prefix", g: model.ClassGroupSummary{Name: "Turma Particular - Ana"}, want: true},
		{name: "regular", g: model.ClassGroupSummary{Name: "Inglês Básico", Language: model.LanguageEnglish}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPrivate(tt.g))
		})
	}
}

func TestPersonName(t *testing.T) {
	assert.Equal(t, "João Silva", PersonName("Particular - João Silva, das 14:00 às 15:00"))
	assert.Equal(t, "Maria", PersonName("Turma particular - Maria"))
	assert.Equal(t, "Kenji", PersonName("Kenji das 9:00 as 10:00"))
	assert.Equal(t, "Kenji", PersonName("Kenji"))
}

func TestMapLesson_LanguageColors(t *testing.T) {
	tests := []struct {
		lang    model.Language
		wantBg  string
		wantTag string
	}{
		{model.LanguageEnglish, "linear-gradient(135deg, #3b82f6 0%, #1d4ed8 100%)", "lang-english"},
		{model.LanguageJapanese, "linear-gradient(135deg, #ef4444 0%, #b91c1c 100%)", "lang-japanese"},
		{model.LanguageEnglishJapanese, "linear-gradient(135deg, #3b82f6 0%, #ef4444 100%)", "lang-english-japanese"},
		{model.LanguageNone, ColorNeutral, TagNoLang},
	}
	for _, tt := range tests {
		t.Run(string(tt.lang), func(t *testing.T) {
			l := grouped(lesson("x", "G", "2024-03-04", "10:00"), model.ClassGroupSummary{Name: "Turma A", Language: tt.lang, Kind: model.GroupKindRegular})
			ev := MapLesson(l, nil, Selection{}, nil)
			assert.Equal(t, tt.wantBg, ev.BackgroundStyle)
			assert.Equal(t, []string{tt.wantTag}, ev.Tags)
			assert.Equal(t, "Turma A", ev.Title)
		})
	}
}

func TestMapLesson_LessonTypeBlend(t *testing.T) {
	l := grouped(lesson("x", "G", "2024-03-04", "10:00"), model.ClassGroupSummary{Name: "A", Language: model.LanguageEnglish})
	l.LessonType = model.LessonGraded
	ev := MapLesson(l, nil, Selection{}, nil)
	assert.Equal(t, blend(ColorGraded, "#2563eb"), ev.BackgroundStyle)
	assert.Equal(t, ColorGraded, ev.BorderColor)
	assert.Equal(t, []string{"lang-english", TagGraded}, ev.Tags)

	l = grouped(lesson("y", "G", "2024-03-04", "10:00"), model.ClassGroupSummary{Name: "B"})
	l.LessonType = model.LessonFinalExam
	ev = MapLesson(l, nil, Selection{}, nil)
	assert.Equal(t, blend(ColorFinalExam, ColorNeutral), ev.BackgroundStyle)
	assert.Equal(t, []string{TagNoLang, TagFinalExam}, ev.Tags)
}

func TestMapLesson_SelectionOverridesColor(t *testing.T) {
	sel := NewSelection("x")
	for _, lt := range []model.LessonType{model.LessonNormal, model.LessonGraded, model.LessonFinalExam} {
		for _, lang := range []model.Language{model.LanguageEnglish, model.LanguageJapanese, model.LanguagePrivate, model.LanguageNone} {
			l := grouped(lesson("x", "G", "2024-03-04", "10:00"), model.ClassGroupSummary{Name: "Turma", Language: lang})
			l.LessonType = lt
			ev := MapLesson(l, nil, sel, nil)
			assert.Equal(t, ColorSelected, ev.BackgroundStyle, "%s/%s", lt, lang)
			assert.Equal(t, ColorSelected, ev.BorderColor)
			assert.Contains(t, ev.Tags, TagSelected)
		}
	}

	orphan := lesson("x", "gone", "2024-03-04", "")
	assert.Equal(t, ColorSelected, MapLesson(orphan, nil, sel, nil).BackgroundStyle)
}

func TestMapLesson_SelectionInactive(t *testing.T) {
	sel := NewSelection("x")
	sel.Active = false
	l := grouped(lesson("x", "G", "2024-03-04", "10:00"), model.ClassGroupSummary{Name: "Turma A", Language: model.LanguageEnglish})
	ev := MapLesson(l, nil, sel, nil)
	assert.Equal(t, "Turma A", ev.Title)
	assert.NotEqual(t, ColorSelected, ev.BackgroundStyle)
}

func TestMapLesson_SelectedMark(t *testing.T) {
	l := grouped(lesson("x", "G", "2024-03-04", "10:00"), model.ClassGroupSummary{Name: "Turma A"})
	assert.Equal(t, "✓ Turma A", MapLesson(l, nil, NewSelection("x"), nil).Title)
}

func TestMapLesson_LongNameShortened(t *testing.T) {
	name := "Turma de Inglês Intermediário Grupo Sábado Manhã"
	l := grouped(lesson("x", "G", "2024-03-04", ""), model.ClassGroupSummary{Name: name})
	assert.Equal(t, "de Inglês Intermediário Sábado Manhã", MapLesson(l, nil, Selection{}, nil).Title)

	short := "Turma Japonês N5"
	l = grouped(lesson("x", "G", "2024-03-04", ""), model.ClassGroupSummary{Name: short})
	assert.Equal(t, short, MapLesson(l, nil, Selection{}, nil).Title)
}

func TestMapLesson_OrphanFallsBack(t *testing.T) {
	l := lesson("x", "deleted-group", "2024-03-04", "10:00")
	l.LessonType = model.LessonGraded

	var ev model.CalendarEvent
	require.NotPanics(t, func() { ev = MapLesson(l, nil, Selection{}, nil) })

	assert.Equal(t, FallbackTitle, ev.Title)
	assert.Equal(t, ColorNeutral, ev.BackgroundStyle)
	assert.Equal(t, ColorNeutral, ev.BorderColor)
	assert.Equal(t, []string{TagOrphan, TagGraded}, ev.Tags)
	assert.Empty(t, ev.Payload.GroupName)
}

func TestMapLesson_TimesAndPayload(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	l := grouped(lesson("x", "G", "2024-03-04", "09:30:00"), model.ClassGroupSummary{
		Name: "Turma A", Language: model.LanguageJapanese, Level: "N4", ClassroomColor: "#123456",
	})
	l.EndTime = "11:00"
	l.Status = model.StatusCancelled

	ev := MapLesson(l, map[string]int{"x": 7}, Selection{}, loc)

	assert.Equal(t, time.Date(2024, 3, 4, 9, 30, 0, 0, loc), ev.Start)
	assert.Equal(t, time.Date(2024, 3, 4, 11, 0, 0, 0, loc), ev.End)
	assert.False(t, ev.AllDay)
	assert.Equal(t, "#123456", ev.BorderColor)
	assert.Equal(t, []string{TagCancelled, "lang-japanese"}, ev.Tags)

	require.NotNil(t, ev.Payload.Lesson)
	assert.Equal(t, "x", ev.Payload.Lesson.ID)
	assert.Equal(t, "Turma A", ev.Payload.GroupName)
	assert.Equal(t, model.LanguageJapanese, ev.Payload.Language)
	assert.Equal(t, "N4", ev.Payload.Level)
	assert.Equal(t, model.StatusCancelled, ev.Payload.Status)
	assert.Equal(t, 7, ev.Payload.Sequence)
}

func TestMapLesson_MalformedTimes(t *testing.T) {
	l := grouped(lesson("x", "G", "2024-03-04", "noon"), model.ClassGroupSummary{Name: "Particular - Rui", Kind: model.GroupKindPrivate})
	l.EndTime = "13:61"
	ev := MapLesson(l, nil, Selection{}, nil)
	assert.True(t, ev.AllDay)
	assert.Equal(t, "Rui - Segunda -  as ", ev.Title)
}
