package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// OpenSQLite открывает базу истории отчётов и создаёт схему.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Один писатель: sqlite не любит параллельные соединения на запись.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return conn, nil
}

func migrate(conn *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		domain TEXT NOT NULL,
		image_count INTEGER NOT NULL DEFAULT 0,
		value TEXT NOT NULL,
		unit TEXT NOT NULL,
		status TEXT NOT NULL,
		severity TEXT NOT NULL,
		counts TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reports_user_created ON reports(user_id, created_at);
	`
	_, err := conn.Exec(schema)
	return err
}
