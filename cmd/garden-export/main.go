package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/groveworks/garden-controller/db"
)

// garden-export dumps one UTC day of readings from the local history
// database as CSV, for offline analysis.
func main() {
	var dbPath, dateStr, outPath string
	flag.StringVar(&dbPath, "db", "data/garden.db", "Path to the history database")
	flag.StringVar(&dateStr, "date", "", "UTC day to export (YYYY-MM-DD, default yesterday)")
	flag.StringVar(&outPath, "out", "", "Output CSV file (default stdout)")
	flag.Parse()

	day := time.Now().UTC().AddDate(0, 0, -1)
	if dateStr != "" {
		var err error
		day, err = time.Parse("2006-01-02", dateStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid date %q: %v\n", dateStr, err)
			os.Exit(1)
		}
	}

	conn, err := db.Open(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	readings, err := db.ReadingsForDay(conn, day)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to query readings: %v\n", err)
		os.Exit(1)
	}
	if len(readings) == 0 {
		fmt.Fprintf(os.Stderr, "no readings for %s\n", day.Format("2006-01-02"))
		os.Exit(0)
	}

	out := os.Stdout
	if outPath != "" {
		out, err = os.Create(outPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create output file: %v\n", err)
			os.Exit(1)
		}
		defer out.Close()
	}

	w := csv.NewWriter(out)
	w.Write([]string{"recorded_at", "device_id", "zone", "raw_moisture", "moisture_percent", "pump_on"})
	for _, r := range readings {
		w.Write([]string{
			r.RecordedAt.Format(time.RFC3339),
			r.DeviceID,
			r.Zone,
			strconv.Itoa(r.RawMoisture),
			strconv.Itoa(r.MoisturePercent),
			strconv.FormatBool(r.PumpOn),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write CSV: %v\n", err)
		os.Exit(1)
	}

	if outPath != "" {
		fmt.Printf("Exported %d readings to %s\n", len(readings), outPath)
	}
}
