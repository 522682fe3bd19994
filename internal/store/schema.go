package store

// schema creates the tables this service reads and writes. It is valid for
// both SQLite and PostgreSQL. lessons.class_group_id has no foreign key;
// deleting a group keeps its lessons.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS teachers (
		id   TEXT PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS class_groups (
		id              TEXT PRIMARY KEY,
		name            TEXT NOT NULL,
		language        TEXT NOT NULL DEFAULT '',
		level           TEXT NOT NULL DEFAULT '',
		classroom_color TEXT NOT NULL DEFAULT '',
		group_kind      TEXT NOT NULL DEFAULT '',
		teacher_id      TEXT REFERENCES teachers(id)
	)`,
	`CREATE TABLE IF NOT EXISTS lessons (
		id             TEXT PRIMARY KEY,
		class_group_id TEXT NOT NULL,
		date           TEXT NOT NULL,
		start_time     TEXT,
		end_time       TEXT,
		status         TEXT NOT NULL DEFAULT 'scheduled',
		lesson_type    TEXT NOT NULL DEFAULT 'normal',
		title          TEXT NOT NULL DEFAULT '',
		description    TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS lessons_group_date ON lessons (class_group_id, date)`,
}
