// Package laps records completed laps from the published telemetry into a
// sqlite database.
package laps

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"simtelemetry/pkg/model"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// Lap is one completed lap.
type Lap struct {
	ID         int64            `json:"id"`
	Producer   model.ProducerID `json:"producer"`
	Lap        int32            `json:"lap"`
	LapTime    float64          `json:"lapTime"`
	FuelUsed   float64          `json:"fuelUsed"`
	Position   int32            `json:"position"`
	RecordedAt time.Time        `json:"recordedAt"`
}

type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open lap database %s", path)
	}
	if _, err := db.Exec(buildCreateLapsTable()); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "init lap database")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Close()
}

// Save stores l and returns its id.
func (s *Store) Save(ctx context.Context, l Lap) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query, args := buildInsertLapCommand(l)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "insert lap")
	}
	id, err := res.LastInsertId()
	return id, errors.Wrap(err, "insert lap")
}

// BestLaps returns the fastest laps of producer, or of every producer when
// producer is ProducerUnknown.
func (s *Store) BestLaps(ctx context.Context, producer model.ProducerID, limit int) ([]Lap, error) {
	query, args, read := buildSelectBestLapsCommand(producer, limit)
	return s.query(ctx, query, args, read)
}

// RecentLaps returns the last recorded laps, newest first.
func (s *Store) RecentLaps(ctx context.Context, limit int) ([]Lap, error) {
	query, args, read := buildSelectRecentLapsCommand(limit)
	return s.query(ctx, query, args, read)
}

func (s *Store) query(ctx context.Context, query string, args []any, read func(*sql.Rows) ([]Lap, error)) ([]Lap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query laps")
	}
	laps, err := read(rows)
	return laps, errors.Wrap(err, "read laps")
}
