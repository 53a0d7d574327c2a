package db

import (
	"database/sql"
	"fmt"
	"time"
)

type ReadingRow struct {
	DeviceID        string
	Zone            string
	RawMoisture     int
	MoisturePercent int
	PumpOn          bool
	RecordedAt      time.Time
}

func RecordReading(conn *sql.DB, deviceID, zone string, raw, percent int, pumpOn bool, at time.Time) error {
	_, err := conn.Exec(
		`INSERT INTO readings (device_id, zone, raw_moisture, moisture_percent, pump_on, recorded_at) VALUES (?, ?, ?, ?, ?, ?)`,
		deviceID, zone, raw, percent, pumpOn, at.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to record reading for zone %s: %w", zone, err)
	}
	return nil
}

func RecordCommand(conn *sql.DB, action, zone string, durationSeconds int, outcome, reason string, at time.Time) error {
	_, err := conn.Exec(
		`INSERT INTO command_log (action, zone, duration_seconds, outcome, reason, received_at) VALUES (?, ?, ?, ?, ?, ?)`,
		action, zone, durationSeconds, outcome, reason, at.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to record command %s: %w", action, err)
	}
	return nil
}

// ReadingsForDay returns all readings recorded on the given UTC calendar day,
// oldest first.
func ReadingsForDay(conn *sql.DB, day time.Time) ([]ReadingRow, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	rows, err := conn.Query(
		`SELECT device_id, zone, raw_moisture, moisture_percent, pump_on, recorded_at
		 FROM readings WHERE recorded_at >= ? AND recorded_at < ? ORDER BY recorded_at, id`,
		start.Format(time.RFC3339), end.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	var out []ReadingRow
	for rows.Next() {
		var r ReadingRow
		var recorded string
		if err := rows.Scan(&r.DeviceID, &r.Zone, &r.RawMoisture, &r.MoisturePercent, &r.PumpOn, &recorded); err != nil {
			return nil, fmt.Errorf("failed to scan reading row: %w", err)
		}
		r.RecordedAt, err = time.Parse(time.RFC3339, recorded)
		if err != nil {
			return nil, fmt.Errorf("malformed recorded_at %q: %w", recorded, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PruneReadings deletes readings older than the retention window.
func PruneReadings(conn *sql.DB, olderThan time.Time) (int64, error) {
	res, err := conn.Exec(`DELETE FROM readings WHERE recorded_at < ?`, olderThan.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("failed to prune readings: %w", err)
	}
	return res.RowsAffected()
}
