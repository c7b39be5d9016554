package repository

import "database/sql"

// NewRepositories creates all SQLite-backed repositories sharing one connection.
func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Records:      NewSQLiteRecordRepository(db),
		Batches:      NewSQLiteBatchRepository(db),
		Profiles:     NewSQLiteProfileRepository(db),
		ProviderKeys: NewSQLiteProviderKeyRepository(db),
		ServiceKeys:  NewSQLiteServiceKeyRepository(db),
	}
}
