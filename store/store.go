// Package store persists the timer snapshot in a Bolt database.
package store

import (
	"encoding/json"
	"errors"
	"io/fs"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/takaotokuno/focusguard/internal/apperr"
	"github.com/takaotokuno/focusguard/timer"
)

const (
	timerBucket = "timer"
	snapshotKey = "pomodoroTimerSnapshot"
)

var errAlreadyRunning = errors.New(
	"the database is locked: is focusguard already running?",
)

// Client is a BoltDB-backed snapshot store. A single snapshot lives under a
// fixed key; there is no history.
type Client struct {
	db *bolt.DB
}

// Open creates or opens the database at path and ensures the timer bucket
// exists.
func Open(path string) (*Client, error) {
	var fileMode fs.FileMode = 0o600

	db, err := bolt.Open(path, fileMode, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		if errors.Is(err, bolt.ErrDatabaseOpen) ||
			errors.Is(err, bolt.ErrTimeout) {
			return nil, errAlreadyRunning
		}

		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(timerBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Client{db: db}, nil
}

// Save writes the snapshot, replacing any previous one. Bolt updates are
// transactional so the write is atomic.
func (c *Client) Save(snap *timer.Snapshot) error {
	value, err := json.Marshal(snap)
	if err != nil {
		return apperr.Wrap(
			apperr.Persistence,
			apperr.Warning,
			"marshalling timer snapshot",
			err,
		)
	}

	err = c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(timerBucket)).Put([]byte(snapshotKey), value)
	})
	if err != nil {
		return apperr.Wrap(
			apperr.Persistence,
			apperr.Warning,
			"saving timer snapshot",
			err,
		)
	}

	return nil
}

// Load returns the last saved snapshot, or nil when none exists.
func (c *Client) Load() (*timer.Snapshot, error) {
	var snap *timer.Snapshot

	err := c.db.View(func(tx *bolt.Tx) error {
		value := tx.Bucket([]byte(timerBucket)).Get([]byte(snapshotKey))
		if len(value) == 0 {
			return nil
		}

		snap = &timer.Snapshot{}

		return json.Unmarshal(value, snap)
	})
	if err != nil {
		return nil, apperr.Wrap(
			apperr.Persistence,
			apperr.Warning,
			"loading timer snapshot",
			err,
		)
	}

	return snap, nil
}

// Close releases the database handle.
func (c *Client) Close() error {
	return c.db.Close()
}
