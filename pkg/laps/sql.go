package laps

import (
	"database/sql"
	"time"

	"simtelemetry/pkg/model"
)

func buildCreateLapsTable() string {
	return `CREATE TABLE IF NOT EXISTS laps (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		producer TEXT NOT NULL,
		lap INTEGER NOT NULL,
		laptime REAL NOT NULL,
		fuelused REAL NOT NULL,
		position INTEGER NOT NULL,
		recordedat INTEGER NOT NULL);
	CREATE INDEX IF NOT EXISTS laps_producer_laptime ON laps (producer, laptime);`
}

func buildInsertLapCommand(l Lap) (string, []any) {
	return `INSERT INTO laps (producer, lap, laptime, fuelused, position, recordedat) VALUES (?, ?, ?, ?, ?, ?)`,
		[]any{l.Producer.String(), l.Lap, l.LapTime, l.FuelUsed, l.Position, l.RecordedAt.UnixMilli()}
}

const lapFields = "id, producer, lap, laptime, fuelused, position, recordedat"

func buildSelectBestLapsCommand(producer model.ProducerID, limit int) (string, []any, func(*sql.Rows) ([]Lap, error)) {
	if producer == model.ProducerUnknown {
		return `SELECT ` + lapFields + ` FROM laps ORDER BY laptime ASC, id ASC LIMIT ?`,
			[]any{limit}, processLapRows
	}
	return `SELECT ` + lapFields + ` FROM laps WHERE producer = ? ORDER BY laptime ASC, id ASC LIMIT ?`,
		[]any{producer.String(), limit}, processLapRows
}

func buildSelectRecentLapsCommand(limit int) (string, []any, func(*sql.Rows) ([]Lap, error)) {
	return `SELECT ` + lapFields + ` FROM laps ORDER BY id DESC LIMIT ?`, []any{limit}, processLapRows
}

func processLapRows(rows *sql.Rows) ([]Lap, error) {
	defer rows.Close()

	laps := make([]Lap, 0)
	for rows.Next() {
		var l Lap
		var producer string
		var recordedAt int64
		err := rows.Scan(&l.ID, &producer, &l.Lap, &l.LapTime, &l.FuelUsed, &l.Position, &recordedAt)
		if err != nil {
			return laps, err
		}
		if l.Producer, err = model.ParseProducer(producer); err != nil {
			return laps, err
		}
		l.RecordedAt = time.UnixMilli(recordedAt)
		laps = append(laps, l)
	}
	return laps, rows.Err()
}
