package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS judgements (
	message_id  TEXT PRIMARY KEY,
	thread_id   TEXT NOT NULL DEFAULT '',
	sender      TEXT NOT NULL DEFAULT '',
	subject     TEXT NOT NULL DEFAULT '',
	action      TEXT NOT NULL,
	priority    TEXT NOT NULL DEFAULT '',
	reason      TEXT NOT NULL DEFAULT '',
	summary     TEXT NOT NULL DEFAULT '',
	reply       TEXT NOT NULL DEFAULT '',
	date        TEXT NOT NULL DEFAULT '',
	start_time  TEXT NOT NULL DEFAULT '',
	end_time    TEXT NOT NULL DEFAULT '',
	classified_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS bookings (
	id             TEXT PRIMARY KEY,
	message_id     TEXT NOT NULL,
	event_id       TEXT NOT NULL DEFAULT '',
	meeting_link   TEXT NOT NULL DEFAULT '',
	has_conflict   INTEGER NOT NULL DEFAULT 0,
	conflicts      TEXT NOT NULL DEFAULT '[]',
	original_time  TEXT NOT NULL DEFAULT '',
	scheduled_time TEXT NOT NULL,
	scheduled_end  TEXT NOT NULL DEFAULT '',
	datetime_full  TEXT NOT NULL DEFAULT '',
	created_at     DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS pending_conflicts (
	message_id     TEXT PRIMARY KEY,
	email_json     TEXT NOT NULL,
	requested_time TEXT NOT NULL DEFAULT '',
	conflicts      TEXT NOT NULL DEFAULT '[]',
	next_start     DATETIME NOT NULL,
	next_end       DATETIME NOT NULL,
	next_date      TEXT NOT NULL DEFAULT '',
	next_time      TEXT NOT NULL DEFAULT '',
	created_at     DATETIME NOT NULL,
	updated_at     DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_judgements_action ON judgements(action);
CREATE INDEX IF NOT EXISTS idx_bookings_message_id ON bookings(message_id);
CREATE INDEX IF NOT EXISTS idx_pending_created_at ON pending_conflicts(created_at);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
