package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // postgres driver for the hosted backend
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver for local runs and tests
	"github.com/pkg/errors"

	appLog "aulacal/internal/log"
	"aulacal/internal/model"
)

// SQLStore implements Backend over sqlx for the sqlite3 and postgres
// drivers.
type SQLStore struct {
	db *sqlx.DB
}

var _ Backend = (*SQLStore)(nil)

// Open connects to the database and pings it.
func Open(driver, dsn string) (*SQLStore, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, newError("open", "could not connect to the database", errors.Wrapf(err, "connect %s", driver))
	}
	if driver == "sqlite3" {
		// One connection keeps ":memory:" databases alive and avoids
		// "database is locked" on concurrent writers.
		db.SetMaxOpenConns(1)
	}
	appLog.Info("database connected", "driver", driver)
	return &SQLStore{db: db}, nil
}

// NewSQLStore wraps an existing connection.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Migrate creates missing tables and indexes.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return newError("migrate", "could not prepare the database schema", errors.WithStack(err))
		}
	}
	return nil
}

// SaveTeacher inserts or updates a teacher.
func (s *SQLStore) SaveTeacher(ctx context.Context, id, name string) error {
	const q = `INSERT INTO teachers (id, name) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name`
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(q), id, name); err != nil {
		return newError("save-teacher", "could not save the teacher", errors.Wrapf(err, "teacher %s", id))
	}
	return nil
}

type groupRecord struct {
	ID             string         `db:"id"`
	Name           string         `db:"name"`
	Language       string         `db:"language"`
	Level          string         `db:"level"`
	ClassroomColor string         `db:"classroom_color"`
	GroupKind      string         `db:"group_kind"`
	TeacherID      sql.NullString `db:"teacher_id"`
	TeacherName    sql.NullString `db:"teacher_name"`
}

func (r groupRecord) toModel() model.ClassGroup {
	return model.ClassGroup{
		ID:        r.ID,
		TeacherID: r.TeacherID.String,
		ClassGroupSummary: model.ClassGroupSummary{
			Name:           r.Name,
			Language:       model.ParseLanguage(r.Language),
			Level:          r.Level,
			ClassroomColor: r.ClassroomColor,
			Kind:           model.ParseGroupKind(r.GroupKind),
			TeacherName:    r.TeacherName.String,
		},
	}
}

// SaveClassGroup inserts or updates a class group.
func (s *SQLStore) SaveClassGroup(ctx context.Context, g model.ClassGroup) error {
	const q = `INSERT INTO class_groups (id, name, language, level, classroom_color, group_kind, teacher_id)
		VALUES (:id, :name, :language, :level, :classroom_color, :group_kind, :teacher_id)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name, language = excluded.language, level = excluded.level,
			classroom_color = excluded.classroom_color, group_kind = excluded.group_kind,
			teacher_id = excluded.teacher_id`
	rec := groupRecord{
		ID:             g.ID,
		Name:           g.Name,
		Language:       string(g.Language),
		Level:          g.Level,
		ClassroomColor: g.ClassroomColor,
		GroupKind:      string(g.Kind),
		TeacherID:      nullString(g.TeacherID),
	}
	if _, err := s.db.NamedExecContext(ctx, q, rec); err != nil {
		return newError("save-class-group", "could not save the class group", errors.Wrapf(err, "class group %s", g.ID))
	}
	return nil
}

func (s *SQLStore) FetchClassGroups(ctx context.Context) ([]model.ClassGroup, error) {
	const q = `SELECT g.id, g.name, g.language, g.level, g.classroom_color, g.group_kind,
			g.teacher_id, t.name AS teacher_name
		FROM class_groups g
		LEFT JOIN teachers t ON t.id = g.teacher_id
		ORDER BY g.name, g.id`

	var recs []groupRecord
	if err := s.db.SelectContext(ctx, &recs, q); err != nil {
		return nil, newError("fetch-class-groups", "could not load class groups", errors.WithStack(err))
	}
	out := make([]model.ClassGroup, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.toModel())
	}
	return out, nil
}

type lessonRecord struct {
	ID           string         `db:"id"`
	ClassGroupID string         `db:"class_group_id"`
	Date         string         `db:"date"`
	StartTime    sql.NullString `db:"start_time"`
	EndTime      sql.NullString `db:"end_time"`
	Status       string         `db:"status"`
	LessonType   string         `db:"lesson_type"`
	Title        string         `db:"title"`
	Description  string         `db:"description"`
}

// joinedLessonRecord is a lessons row LEFT JOINed with its group; the group
// columns are NULL for orphaned lessons.
type joinedLessonRecord struct {
	lessonRecord

	GroupID        sql.NullString `db:"group_id"`
	GroupName      sql.NullString `db:"group_name"`
	GroupLanguage  sql.NullString `db:"group_language"`
	GroupLevel     sql.NullString `db:"group_level"`
	GroupColor     sql.NullString `db:"group_color"`
	GroupKind      sql.NullString `db:"group_kind"`
	GroupTeacherNm sql.NullString `db:"teacher_name"`
}

func (r joinedLessonRecord) toModel() model.Lesson {
	l := model.Lesson{
		ID:           r.ID,
		ClassGroupID: r.ClassGroupID,
		Date:         r.Date,
		StartTime:    r.StartTime.String,
		EndTime:      r.EndTime.String,
		Status:       model.LessonStatus(r.Status),
		LessonType:   model.ParseLessonType(r.LessonType),
		Title:        r.Title,
		Description:  r.Description,
	}
	if r.GroupID.Valid {
		l.Group = &model.ClassGroupSummary{
			Name:           r.GroupName.String,
			Language:       model.ParseLanguage(r.GroupLanguage.String),
			Level:          r.GroupLevel.String,
			ClassroomColor: r.GroupColor.String,
			Kind:           model.ParseGroupKind(r.GroupKind.String),
			TeacherName:    r.GroupTeacherNm.String,
		}
	}
	return l
}

func (s *SQLStore) FetchLessonsByGroups(ctx context.Context, groupIDs []string) ([]model.Lesson, error) {
	q := `SELECT l.id, l.class_group_id, l.date, l.start_time, l.end_time, l.status, l.lesson_type,
			l.title, l.description,
			g.id AS group_id, g.name AS group_name, g.language AS group_language,
			g.level AS group_level, g.classroom_color AS group_color, g.group_kind AS group_kind,
			t.name AS teacher_name
		FROM lessons l
		LEFT JOIN class_groups g ON g.id = l.class_group_id
		LEFT JOIN teachers t ON t.id = g.teacher_id`
	var args []any
	if len(groupIDs) > 0 {
		var err error
		q, args, err = sqlx.In(q+` WHERE l.class_group_id IN (?)`, groupIDs)
		if err != nil {
			return nil, newError("fetch-lessons", "could not load lessons", errors.WithStack(err))
		}
	}
	q = s.db.Rebind(q + ` ORDER BY l.date, l.start_time, l.id`)

	var recs []joinedLessonRecord
	if err := s.db.SelectContext(ctx, &recs, q, args...); err != nil {
		return nil, newError("fetch-lessons", "could not load lessons", errors.WithStack(err))
	}
	out := make([]model.Lesson, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (s *SQLStore) UpdateLessonType(ctx context.Context, lessonID string, t model.LessonType) error {
	q := s.db.Rebind(`UPDATE lessons SET lesson_type = ? WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, q, string(t), lessonID)
	if err != nil {
		return newError("update-lesson-type", "could not update the lesson type", errors.Wrapf(err, "lesson %s", lessonID))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return newError("update-lesson-type", "lesson not found", errors.Wrapf(ErrNotFound, "lesson %s", lessonID))
	}
	return nil
}

func (s *SQLStore) InsertLessons(ctx context.Context, lessons []model.Lesson) ([]model.Lesson, error) {
	const q = `INSERT INTO lessons (id, class_group_id, date, start_time, end_time, status, lesson_type, title, description)
		VALUES (:id, :class_group_id, :date, :start_time, :end_time, :status, :lesson_type, :title, :description)`

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, newError("insert-lessons", "could not save lessons", errors.WithStack(err))
	}
	defer tx.Rollback() //nolint:errcheck

	out := make([]model.Lesson, 0, len(lessons))
	for _, l := range lessons {
		if l.ID == "" {
			l.ID = uuid.NewString()
		}
		if l.Status == "" {
			l.Status = model.StatusScheduled
		}
		if l.LessonType == "" {
			l.LessonType = model.LessonNormal
		}
		rec := lessonRecord{
			ID:           l.ID,
			ClassGroupID: l.ClassGroupID,
			Date:         l.Date,
			StartTime:    nullString(l.StartTime),
			EndTime:      nullString(l.EndTime),
			Status:       string(l.Status),
			LessonType:   string(l.LessonType),
			Title:        l.Title,
			Description:  l.Description,
		}
		if _, err := tx.NamedExecContext(ctx, q, rec); err != nil {
			return nil, newError("insert-lessons", "could not save lessons", errors.Wrapf(err, "lesson %s", l.ID))
		}
		out = append(out, l)
	}
	if err := tx.Commit(); err != nil {
		return nil, newError("insert-lessons", "could not save lessons", errors.WithStack(err))
	}
	appLog.Debug("lessons inserted", "count", len(out))
	return out, nil
}

func (s *SQLStore) DeleteLesson(ctx context.Context, lessonID string) error {
	q := s.db.Rebind(`DELETE FROM lessons WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, q, lessonID)
	if err != nil {
		return newError("delete-lesson", "could not delete the lesson", errors.Wrapf(err, "lesson %s", lessonID))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return newError("delete-lesson", "lesson not found", errors.Wrapf(ErrNotFound, "lesson %s", lessonID))
	}
	return nil
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}
