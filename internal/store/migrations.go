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

CREATE TABLE IF NOT EXISTS days (
	id                     TEXT PRIMARY KEY,
	user_id                TEXT NOT NULL,
	date                   TEXT NOT NULL,
	completed              INTEGER NOT NULL DEFAULT 0 CHECK(completed IN (0, 1)),
	completed_blocks_count INTEGER NOT NULL DEFAULT 0,
	created_at             DATETIME NOT NULL,
	updated_at             DATETIME NOT NULL,
	UNIQUE(user_id, date)
);

CREATE TABLE IF NOT EXISTS projects (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	color       TEXT NOT NULL DEFAULT '',
	archived    INTEGER NOT NULL DEFAULT 0 CHECK(archived IN (0, 1)),
	sort_order  INTEGER NOT NULL DEFAULT 0,
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL,
	UNIQUE(user_id, name)
);

CREATE TABLE IF NOT EXISTS routines (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	name       TEXT NOT NULL,
	days       TEXT NOT NULL,
	start_time TEXT NOT NULL,
	end_time   TEXT NOT NULL,
	active     INTEGER NOT NULL DEFAULT 1 CHECK(active IN (0, 1)),
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS routine_tasks (
	id          TEXT PRIMARY KEY,
	routine_id  TEXT NOT NULL REFERENCES routines(id) ON DELETE CASCADE,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	duration    INTEGER NOT NULL DEFAULT 0,
	priority    INTEGER NOT NULL DEFAULT 3 CHECK(priority BETWEEN 1 AND 5),
	position    INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS events (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	date        TEXT NOT NULL,
	start_time  TEXT NOT NULL,
	duration    INTEGER NOT NULL,
	recurrence  TEXT NOT NULL DEFAULT '',
	completed   INTEGER NOT NULL DEFAULT 0 CHECK(completed IN (0, 1)),
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS blocks (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	day_id       TEXT NOT NULL REFERENCES days(id) ON DELETE CASCADE,
	title        TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	start_time   TEXT NOT NULL,
	duration     INTEGER NOT NULL,
	type         TEXT NOT NULL,
	idx          INTEGER NOT NULL,
	status       TEXT NOT NULL DEFAULT 'pending' CHECK(status IN ('pending', 'completed')),
	routine_id   TEXT REFERENCES routines(id) ON DELETE SET NULL,
	event_id     TEXT REFERENCES events(id) ON DELETE SET NULL,
	completed_at DATETIME,
	created_at   DATETIME NOT NULL,
	updated_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	title        TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	duration     INTEGER NOT NULL DEFAULT 0,
	status       TEXT NOT NULL DEFAULT 'todo' CHECK(status IN ('todo', 'completed')),
	priority     INTEGER NOT NULL DEFAULT 3 CHECK(priority BETWEEN 1 AND 5),
	project_id   TEXT REFERENCES projects(id) ON DELETE SET NULL,
	routine_id   TEXT REFERENCES routines(id) ON DELETE SET NULL,
	block_id     TEXT REFERENCES blocks(id) ON DELETE SET NULL,
	position     INTEGER NOT NULL DEFAULT 0,
	completed_at DATETIME,
	created_at   DATETIME NOT NULL,
	updated_at   DATETIME NOT NULL,
	CHECK(project_id IS NULL OR routine_id IS NULL)
);

CREATE TABLE IF NOT EXISTS event_instances (
	event_id   TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
	block_id   TEXT NOT NULL,
	date       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'pending' CHECK(status IN ('pending', 'completed', 'incomplete')),
	updated_at DATETIME NOT NULL,
	PRIMARY KEY (event_id, block_id)
);

CREATE INDEX IF NOT EXISTS idx_blocks_day_idx ON blocks(day_id, idx);
CREATE INDEX IF NOT EXISTS idx_blocks_routine_id ON blocks(routine_id);
CREATE INDEX IF NOT EXISTS idx_blocks_event_id ON blocks(event_id);
CREATE INDEX IF NOT EXISTS idx_tasks_block_position ON tasks(block_id, position);
CREATE INDEX IF NOT EXISTS idx_tasks_user_id ON tasks(user_id);
CREATE INDEX IF NOT EXISTS idx_tasks_project_id ON tasks(project_id);
CREATE INDEX IF NOT EXISTS idx_routine_tasks_routine_id ON routine_tasks(routine_id);
CREATE INDEX IF NOT EXISTS idx_events_user_id ON events(user_id);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS posts (
	id                    TEXT PRIMARY KEY,
	user_id               TEXT NOT NULL,
	topic                 TEXT NOT NULL,
	title                 TEXT NOT NULL DEFAULT '',
	body                  TEXT NOT NULL DEFAULT '',
	status                TEXT NOT NULL DEFAULT 'draft'
		CHECK(status IN ('draft', 'pending', 'generating', 'published', 'failed')),
	scheduled_at          DATETIME,
	generation_started_at DATETIME,
	retry_count           INTEGER NOT NULL DEFAULT 0,
	last_error            TEXT NOT NULL DEFAULT '',
	created_at            DATETIME NOT NULL,
	updated_at            DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_posts_status_scheduled ON posts(status, scheduled_at);
CREATE INDEX IF NOT EXISTS idx_posts_user_id ON posts(user_id);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
	{
		version: 3,
		sql: `
CREATE TABLE IF NOT EXISTS api_keys (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	name         TEXT NOT NULL,
	prefix       TEXT NOT NULL,
	key_hash     TEXT NOT NULL UNIQUE,
	created_at   DATETIME NOT NULL,
	last_used_at DATETIME
);

CREATE TABLE IF NOT EXISTS rate_windows (
	bucket       TEXT NOT NULL,
	window_start INTEGER NOT NULL,
	hits         INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (bucket, window_start)
);

CREATE INDEX IF NOT EXISTS idx_api_keys_user_id ON api_keys(user_id);

INSERT INTO schema_version (version) VALUES (3);
`,
	},
	{
		version: 4,
		sql: `
CREATE TABLE IF NOT EXISTS materializations (
	day_id     TEXT NOT NULL REFERENCES days(id) ON DELETE CASCADE,
	kind       TEXT NOT NULL CHECK(kind IN ('routine', 'event')),
	source_id  TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	PRIMARY KEY (day_id, kind, source_id)
);

INSERT OR IGNORE INTO materializations (day_id, kind, source_id, created_at)
	SELECT day_id, 'routine', routine_id, created_at FROM blocks WHERE routine_id IS NOT NULL;
INSERT OR IGNORE INTO materializations (day_id, kind, source_id, created_at)
	SELECT day_id, 'event', event_id, created_at FROM blocks WHERE event_id IS NOT NULL;

INSERT INTO schema_version (version) VALUES (4);
`,
	},
}
