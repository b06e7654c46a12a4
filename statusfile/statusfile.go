// Package statusfile mirrors the projected timer state to a JSON file so
// the status subcommand can report without talking to the daemon.
package statusfile

import (
	"encoding/json"
	"os"
	"time"

	"github.com/google/renameio/v2"

	"github.com/takaotokuno/focusguard/internal/timeutil"
	"github.com/takaotokuno/focusguard/timer"
)

// Status is the file layout.
type Status struct {
	Mode             timer.Mode        `json:"mode"`
	SessionType      timer.SessionType `json:"sessionType"`
	TotalRemaining   int64             `json:"totalRemaining"`
	SessionRemaining int64             `json:"sessionRemaining"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// Writer persists the status file atomically on every successful command.
type Writer struct {
	path  string
	clock timeutil.Clock
}

// NewWriter returns a Writer targeting path.
func NewWriter(path string, clock timeutil.Clock) *Writer {
	return &Writer{path: path, clock: clock}
}

// Write replaces the status file with the current projection.
func (w *Writer) Write(state *timer.State) error {
	s := Status{
		Mode:             state.Mode(),
		SessionType:      state.SessionType(),
		TotalRemaining:   state.TotalRemaining().Milliseconds(),
		SessionRemaining: state.SessionRemaining().Milliseconds(),
		UpdatedAt:        w.clock.Now(),
	}

	b, err := json.Marshal(s)
	if err != nil {
		return err
	}

	return renameio.WriteFile(w.path, b, 0o600)
}

// Read loads the status file. A missing file returns nil without error.
func Read(path string) (*Status, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, err
	}

	var s Status

	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}

	return &s, nil
}
