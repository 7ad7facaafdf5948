package store

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the archiver schema.
const Schema = `
CREATE TABLE IF NOT EXISTS archive_rules (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    tag_id INTEGER NOT NULL UNIQUE,
    time_unit INTEGER NOT NULL,
    time_amount INTEGER NOT NULL,
    time_after INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS system_tags (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    user_visible BOOLEAN NOT NULL DEFAULT 1,
    user_assignable BOOLEAN NOT NULL DEFAULT 1,
    UNIQUE (name, user_visible, user_assignable)
);

-- Tag index
CREATE TABLE IF NOT EXISTS tag_objects (
    tag_id INTEGER NOT NULL,
    object_type TEXT NOT NULL,
    object_id INTEGER NOT NULL,
    PRIMARY KEY (tag_id, object_type, object_id)
);

-- Node index, paths are relative to the owner's root
CREATE TABLE IF NOT EXISTS file_nodes (
    object_id INTEGER PRIMARY KEY AUTOINCREMENT,
    owner_id TEXT NOT NULL,
    path TEXT NOT NULL,
    name TEXT NOT NULL,
    mtime INTEGER NOT NULL DEFAULT 0,
    upload_time INTEGER NOT NULL DEFAULT 0,
    UNIQUE (owner_id, path)
);

CREATE TABLE IF NOT EXISTS mounts (
    mount_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    object_id INTEGER NOT NULL,
    access_path TEXT NOT NULL,
    deletable BOOLEAN NOT NULL DEFAULT 0,
    updateable BOOLEAN NOT NULL DEFAULT 0,
    PRIMARY KEY (mount_id, object_id)
);

-- Recurring invocations keyed by (job_type, argument)
CREATE TABLE IF NOT EXISTS jobs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    job_type TEXT NOT NULL,
    argument TEXT NOT NULL,
    last_run INTEGER NOT NULL DEFAULT 0,
    reserved_at INTEGER NOT NULL DEFAULT 0,
    UNIQUE (job_type, argument)
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tag_objects_object ON tag_objects(object_type, object_id);
CREATE INDEX IF NOT EXISTS idx_mounts_object_id ON mounts(object_id);
CREATE INDEX IF NOT EXISTS idx_jobs_last_run ON jobs(last_run);
`

// InsertSchemaVersion inserts the schema version into the schema_version table.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version from the database.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`
