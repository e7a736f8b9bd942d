package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Sessions table - one row per driven clip or camera run
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			mode TEXT NOT NULL CHECK(mode IN ('pretrained', 'manual')),
			model_path TEXT NOT NULL,
			mapping_dir TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT '',
			started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			ended_at DATETIME,
			frames INTEGER NOT NULL DEFAULT 0
		)`,

		// Session frames table - tracker input and engine output per processed frame
		`CREATE TABLE IF NOT EXISTS session_frames (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			timestamp_ms INTEGER NOT NULL,
			blendshapes TEXT NOT NULL,
			landmarks TEXT NOT NULL DEFAULT '{}',
			yaw REAL NOT NULL DEFAULT 0,
			pitch REAL NOT NULL DEFAULT 0,
			expression TEXT NOT NULL DEFAULT '[]'
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE UNIQUE INDEX IF NOT EXISTS idx_session_frames_session_seq ON session_frames(session_id, seq)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
