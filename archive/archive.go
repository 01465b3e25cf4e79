package archive

import (
	"database/sql"
	"encoding/json"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/plume-cli/plume/chat/store"
)

// Export writes chat records into a single sqlite database, for backup or
// offline querying. Re-exporting upserts by creation key.
func Export(databasePath string, records []*store.Record) error {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS chats (
			key INTEGER PRIMARY KEY,
			title TEXT,
			created_at INTEGER NOT NULL,
			last_accessed_at INTEGER NOT NULL,
			messages TEXT NOT NULL
		)
	`)
	if err != nil {
		return errors.Wrap(err, "creating chats table")
	}

	for _, record := range records {
		messages, err := json.Marshal(record.Messages)
		if err != nil {
			return errors.Wrap(err, "marshaling messages")
		}
		_, err = db.Exec(`
			REPLACE INTO chats (key, title, created_at, last_accessed_at, messages)
			VALUES (?, ?, ?, ?, ?)
		`, record.Key, record.Metadata.Title, record.Metadata.CreatedAt.UnixMilli(),
			record.Metadata.LastAccessedAt.UnixMilli(), string(messages))
		if err != nil {
			return errors.Wrap(err, "writing chat to database")
		}
	}
	return nil
}
