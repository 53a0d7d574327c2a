// Package db keeps a local history of sensor readings and applied commands
// in SQLite. History only: zone and timer state are rebuilt from scratch on
// every restart and are never read back from here.
package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

func Open(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	if err := createTables(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func createTables(conn *sql.DB) error {
	_, err := conn.Exec(`CREATE TABLE IF NOT EXISTS readings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		device_id TEXT NOT NULL,
		zone TEXT NOT NULL,
		raw_moisture INTEGER NOT NULL,
		moisture_percent INTEGER NOT NULL,
		pump_on BOOLEAN NOT NULL,
		recorded_at TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to create readings table: %w", err)
	}

	_, err = conn.Exec(`CREATE TABLE IF NOT EXISTS command_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		action TEXT NOT NULL,
		zone TEXT,
		duration_seconds INTEGER,
		outcome TEXT NOT NULL,
		reason TEXT,
		received_at TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to create command_log table: %w", err)
	}

	return nil
}
