package probecache

import (
	"database/sql"
)

const currentSchemaVersion = 1

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS probes (
			path TEXT PRIMARY KEY,
			size INTEGER NOT NULL,
			mtime INTEGER NOT NULL,
			sample_rate INTEGER NOT NULL,
			channels INTEGER NOT NULL,
			block_small INTEGER NOT NULL,
			block_large INTEGER NOT NULL,
			vendor TEXT,
			audio_start INTEGER,
			last_page_start INTEGER,
			last_page_end INTEGER,
			total_samples INTEGER,
			probed_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_probes_probed_at ON probes(probed_at);
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		INSERT OR IGNORE INTO schema_version (version) VALUES (?)
	`, currentSchemaVersion)
	return err
}
