package migrations

func init() {
	Register(Migration{
		Timestamp:   "20250601-000000",
		Description: "Initial schema",
		Up: []string{
			// User profiles - credit ledger and tier state.
			// user_id is the auth token subject (no FK; identity lives upstream).
			`CREATE TABLE IF NOT EXISTS user_profiles (
				user_id TEXT PRIMARY KEY,
				email TEXT,
				display_name TEXT,
				credits INTEGER NOT NULL DEFAULT 0,
				max_credits INTEGER NOT NULL DEFAULT 0,
				tier TEXT NOT NULL DEFAULT 'Free',
				last_reset_date TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,

			// Batches - one row per submission, carrying the settings snapshot
			`CREATE TABLE IF NOT EXISTS batches (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'pending',
				settings_json TEXT NOT NULL,
				total_records INTEGER NOT NULL DEFAULT 0,
				completed_count INTEGER NOT NULL DEFAULT 0,
				failed_count INTEGER NOT NULL DEFAULT 0,
				halt_reason TEXT,
				halt_message TEXT,
				started_at TEXT,
				completed_at TEXT,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_batches_user_id ON batches(user_id)`,
			`CREATE INDEX IF NOT EXISTS idx_batches_status ON batches(status)`,

			// Records - one row per uploaded asset
			`CREATE TABLE IF NOT EXISTS records (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				batch_id TEXT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
				file_name TEXT NOT NULL,
				thumbnail TEXT,
				status TEXT NOT NULL DEFAULT 'pending',
				title TEXT,
				keywords_json TEXT,
				categories_json TEXT,
				description TEXT,
				prompt TEXT,
				engine TEXT,
				error_message TEXT,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_records_user_id ON records(user_id)`,
			`CREATE INDEX IF NOT EXISTS idx_records_batch_id ON records(batch_id)`,
			`CREATE INDEX IF NOT EXISTS idx_records_status ON records(status)`,

			// Provider keys - per-user BYOK vision provider credentials
			`CREATE TABLE IF NOT EXISTS provider_keys (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				provider TEXT NOT NULL,
				api_key_encrypted TEXT NOT NULL,
				is_enabled INTEGER NOT NULL DEFAULT 1,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				UNIQUE(user_id, provider)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_provider_keys_user_id ON provider_keys(user_id)`,

			// Service keys - admin-managed system-wide provider credentials
			`CREATE TABLE IF NOT EXISTS service_keys (
				provider TEXT PRIMARY KEY,
				api_key_encrypted TEXT NOT NULL,
				is_enabled INTEGER NOT NULL DEFAULT 1,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
		},
	})
}
