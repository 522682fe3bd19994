package model

import "strings"

type LessonStatus string

const (
	StatusScheduled  LessonStatus = "scheduled"
	StatusInProgress LessonStatus = "in-progress"
	StatusCompleted  LessonStatus = "completed"
	StatusCancelled  LessonStatus = "cancelled"
)

type LessonType string

const (
	LessonNormal    LessonType = "normal"
	LessonGraded    LessonType = "graded"
	LessonFinalExam LessonType = "final-exam"
)

// ParseLessonType accepts the canonical values plus the backend's legacy
// Portuguese spellings. Unknown values map to LessonNormal.
func ParseLessonType(s string) LessonType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "graded", "avaliativa", "avaliacao", "avaliação":
		return LessonGraded
	case "final-exam", "final_exam", "prova_final", "prova final":
		return LessonFinalExam
	default:
		return LessonNormal
	}
}

// Language is the teaching language of a class group. LanguagePrivate is
// the sentinel the backend uses for 1:1 groups.
type Language string

const (
	LanguageNone            Language = ""
	LanguageEnglish         Language = "english"
	LanguageJapanese        Language = "japanese"
	LanguageEnglishJapanese Language = "english/japanese"
	LanguagePrivate         Language = "private"
)

// ParseLanguage normalizes a stored language value. The backend keeps
// Portuguese labels ("Inglês", "Japonês", "Inglês/Japonês", "Particular").
func ParseLanguage(s string) Language {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.NewReplacer("ê", "e", " ", "").Replace(v)
	switch v {
	case "english", "ingles":
		return LanguageEnglish
	case "japanese", "japones":
		return LanguageJapanese
	case "english/japanese", "ingles/japones", "japanese/english", "japones/ingles":
		return LanguageEnglishJapanese
	case "private", "particular":
		return LanguagePrivate
	default:
		return LanguageNone
	}
}

// GroupKind is the authoritative regular/private classification of a
// class group. GroupKindUnknown means the backend did not record it.
type GroupKind string

const (
	GroupKindUnknown GroupKind = ""
	GroupKindRegular GroupKind = "regular"
	GroupKindPrivate GroupKind = "private"
)

// ParseGroupKind normalizes a stored group-kind value.
func ParseGroupKind(s string) GroupKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "regular", "turma":
		return GroupKindRegular
	case "private", "particular":
		return GroupKindPrivate
	default:
		return GroupKindUnknown
	}
}

// View is the calendar's view granularity.
type View string

const (
	ViewMonth View = "month"
	ViewWeek  View = "week"
	ViewDay   View = "day"
)

// ParseView returns the view named by s, or def when s is not a known view.
func ParseView(s string, def View) View {
	switch View(strings.ToLower(strings.TrimSpace(s))) {
	case ViewMonth:
		return ViewMonth
	case ViewWeek:
		return ViewWeek
	case ViewDay:
		return ViewDay
	default:
		return def
	}
}
