// Package storage keeps a history of report runs in a BoltDB file so that
// accuracies and selected features can be compared across runs.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const (
	dbFile     = "har-runs.db"
	runsBucket = "runs" // Bucket name for run records
)

// ErrRunNotFound is returned by GetRun for unknown ids.
var ErrRunNotFound = errors.New("run not found")

// RunRecord is the persisted outcome of one run.
type RunRecord struct {
	ID             string             `json:"id"`
	StartedAt      time.Time          `json:"startedAt"`
	Duration       time.Duration      `json:"duration"`
	TrainPath      string             `json:"trainPath"`
	ValidationPath string             `json:"validationPath"`
	Seed           uint64             `json:"seed"`
	TrainRows      int                `json:"trainRows"`
	TestRows       int                `json:"testRows"`
	Features       []string           `json:"features"`
	DroppedColumns int                `json:"droppedColumns"`
	Accuracy       map[string]float64 `json:"accuracy"`
	BestModel      string             `json:"bestModel"`
	Predictions    []string           `json:"predictions"`
	OutputDir      string             `json:"outputDir"`
}

// Store persists run records using BoltDB.
type Store struct {
	db *bbolt.DB // BoltDB database instance
}

// New opens (creating if needed) the run database under dataPath.
func New(dataPath string) (*Store, error) {
	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	dbPath := filepath.Join(dataPath, dbFile)

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(runsBucket)); err != nil {
			return fmt.Errorf("create runs bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection gracefully.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RunKey returns the key under which a run started at ts is stored.
func RunKey(ts time.Time) string {
	return fmt.Sprintf("run_%d", ts.UnixNano())
}

// SaveRun stores rec, assigning an id from StartedAt when it has none.
// It returns the id used.
func (s *Store) SaveRun(rec RunRecord) (string, error) {
	if rec.ID == "" {
		if rec.StartedAt.IsZero() {
			rec.StartedAt = time.Now()
		}
		rec.ID = RunKey(rec.StartedAt)
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(runsBucket))

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal run: %w", err)
		}
		return b.Put([]byte(rec.ID), data)
	})
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

// GetRun loads one run by id.
func (s *Store) GetRun(id string) (RunRecord, error) {
	var rec RunRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(runsBucket)).Get([]byte(id))
		if v == nil {
			return fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return json.Unmarshal(v, &rec)
	})
	return rec, err
}

// ListRuns returns up to limit runs, newest first. limit <= 0 returns all.
func (s *Store) ListRuns(limit int) ([]RunRecord, error) {
	var runs []RunRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(runsBucket)).Cursor()

		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(runs) >= limit {
				break
			}
			var rec RunRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				continue // Skip malformed records
			}
			runs = append(runs, rec)
		}
		return nil
	})

	return runs, err
}
