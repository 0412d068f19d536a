package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Shape templates matched against completed paths by the shape models
		`CREATE TABLE IF NOT EXISTS templates (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			tolerance REAL NOT NULL DEFAULT 0.15,
			samples INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Trained reference path of each template
		`CREATE TABLE IF NOT EXISTS template_points (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			template_id TEXT NOT NULL REFERENCES templates(id) ON DELETE CASCADE,
			sequence INTEGER NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL
		)`,

		// Raw training paths for a template
		`CREATE TABLE IF NOT EXISTS template_samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			template_id TEXT NOT NULL REFERENCES templates(id) ON DELETE CASCADE,
			sample_index INTEGER NOT NULL,
			data TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Saved input recordings used as replay fixtures
		`CREATE TABLE IF NOT EXISTS recordings (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			touchpoints INTEGER NOT NULL DEFAULT 0,
			duration_ms REAL NOT NULL DEFAULT 0,
			data TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Plugin actions run when a gesture model is recognized
		`CREATE TABLE IF NOT EXISTS actions (
			id TEXT PRIMARY KEY,
			model_id TEXT NOT NULL,
			item TEXT NOT NULL DEFAULT '',
			plugin_name TEXT NOT NULL,
			action_name TEXT NOT NULL,
			config TEXT NOT NULL DEFAULT '{}',
			enabled INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_template_points_template_id ON template_points(template_id)`,
		`CREATE INDEX IF NOT EXISTS idx_template_samples_template_id ON template_samples(template_id)`,
		`CREATE INDEX IF NOT EXISTS idx_actions_model_id ON actions(model_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
