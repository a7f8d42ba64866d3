package store

// initSchema creates all tables and indexes. Statements are idempotent so
// Open can run them on every start.
func (s *Store) initSchema() error {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id         TEXT PRIMARY KEY,
			owner_id   TEXT NOT NULL,
			title      TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS people (
			id             TEXT PRIMARY KEY,
			owner_id       TEXT NOT NULL,
			normalized_key TEXT NOT NULL,
			display_name   TEXT NOT NULL,
			aliases        TEXT NOT NULL DEFAULT '[]'
		)`,
		`CREATE TABLE IF NOT EXISTS session_people (
			session_id TEXT NOT NULL,
			person_id  TEXT NOT NULL,
			PRIMARY KEY (session_id, person_id)
		)`,
		`CREATE TABLE IF NOT EXISTS transcript_segments (
			id           TEXT PRIMARY KEY,
			session_id   TEXT NOT NULL,
			speaker_name TEXT NOT NULL DEFAULT '',
			text         TEXT NOT NULL,
			start_time   REAL NOT NULL DEFAULT 0,
			end_time     REAL NOT NULL DEFAULT 0,
			is_deleted   INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS attachment_chunks (
			id            TEXT PRIMARY KEY,
			session_id    TEXT NOT NULL,
			attachment_id TEXT NOT NULL,
			content       TEXT NOT NULL,
			page_number   INTEGER NOT NULL DEFAULT 0,
			sheet_name    TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS summaries (
			id         TEXT PRIMARY KEY,
			session_id TEXT NOT NULL UNIQUE,
			overview   TEXT NOT NULL DEFAULT '',
			key_points TEXT NOT NULL DEFAULT '',
			decisions  TEXT NOT NULL DEFAULT '',
			notes      TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS embeddings (
			id         TEXT PRIMARY KEY,
			owner_id   TEXT NOT NULL,
			session_id TEXT NOT NULL,
			content    TEXT NOT NULL,
			vector     BLOB NOT NULL,
			metadata   TEXT NOT NULL DEFAULT '{}'
		)`,
		`CREATE TABLE IF NOT EXISTS threads (
			id              TEXT PRIMARY KEY,
			owner_id        TEXT NOT NULL,
			title           TEXT NOT NULL DEFAULT '',
			is_default      INTEGER NOT NULL DEFAULT 0,
			created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_message_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id         TEXT PRIMARY KEY,
			thread_id  TEXT NOT NULL,
			role       TEXT NOT NULL,
			content    TEXT NOT NULL,
			evidence   TEXT NOT NULL DEFAULT '[]',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		// Indexes for the hot paths: owner scoping, session scoping, and
		// person resolution.
		`CREATE INDEX IF NOT EXISTS idx_sessions_owner ON sessions(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_people_owner_key ON people(owner_id, normalized_key)`,
		`CREATE INDEX IF NOT EXISTS idx_session_people_person ON session_people(person_id)`,
		`CREATE INDEX IF NOT EXISTS idx_segments_session ON transcript_segments(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_session ON attachment_chunks(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_embeddings_owner ON embeddings(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_threads_owner ON threads(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(thread_id, created_at)`,
	}

	for _, schema := range schemas {
		if _, err := s.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}
