package timer

import (
	"fmt"
	"time"

	"github.com/takaotokuno/focusguard/internal/apperr"
	"github.com/takaotokuno/focusguard/internal/timeutil"
)

// Snapshot is the persisted projection of a State. Elapsed values are
// deliberately omitted: they are recomputed from the wall clock on restore,
// which is what makes the timer survive process suspension.
type Snapshot struct {
	Mode             Mode        `json:"mode"`
	SessionType      SessionType `json:"sessionType"`
	TotalStartTime   int64       `json:"totalStartTime"`
	TotalDuration    int64       `json:"totalDuration"`
	SessionStartTime int64       `json:"sessionStartTime"`
	SessionDuration  int64       `json:"sessionDuration"`
	PausedAt         int64       `json:"pausedAt"`
	SoundEnabled     bool        `json:"soundEnabled"`
	SoundVolume      int         `json:"soundVolume"`
}

// ToSnapshot serializes the state. Instants are stored as Unix milliseconds
// with 0 standing for "not set".
func (s *State) ToSnapshot() *Snapshot {
	return &Snapshot{
		Mode:             s.mode,
		SessionType:      s.sessionType,
		TotalStartTime:   timeutil.ToMillis(s.totalStartTime),
		TotalDuration:    s.totalDuration.Milliseconds(),
		SessionStartTime: timeutil.ToMillis(s.sessionStartTime),
		SessionDuration:  s.sessionDuration.Milliseconds(),
		PausedAt:         timeutil.ToMillis(s.pausedAt),
		SoundEnabled:     s.soundEnabled,
		SoundVolume:      s.soundVolume,
	}
}

func (snap *Snapshot) validate() error {
	switch snap.Mode {
	case Setup, Running, Paused, Completed:
	default:
		return fmt.Errorf("unknown mode %q", snap.Mode)
	}

	switch snap.SessionType {
	case Work, Break:
	default:
		return fmt.Errorf("unknown session type %q", snap.SessionType)
	}

	if snap.SoundVolume < 0 || snap.SoundVolume > 100 {
		return fmt.Errorf("sound volume %d out of range", snap.SoundVolume)
	}

	if snap.Mode != Setup && (snap.TotalStartTime == 0 || snap.TotalDuration <= 0) {
		return fmt.Errorf("%s mode requires total session fields", snap.Mode)
	}

	if snap.Mode == Paused && snap.PausedAt == 0 {
		return fmt.Errorf("paused mode requires pausedAt")
	}

	return nil
}

// FromSnapshot reconstructs a State and immediately runs one Update so a
// snapshot that crossed a session or total boundary while the process was
// asleep converges to the correct post-boundary state. The resulting
// transition is returned so the caller can replay its side effects.
func FromSnapshot(clock timeutil.Clock, snap *Snapshot) (*State, Transition, error) {
	if err := snap.validate(); err != nil {
		return nil, Transition{}, apperr.Wrap(
			apperr.Persistence,
			apperr.Warning,
			"invalid timer snapshot",
			err,
		)
	}

	s := &State{
		clock:            clock,
		mode:             snap.Mode,
		sessionType:      snap.SessionType,
		totalStartTime:   timeutil.FromMillis(snap.TotalStartTime),
		totalDuration:    time.Duration(snap.TotalDuration) * time.Millisecond,
		sessionStartTime: timeutil.FromMillis(snap.SessionStartTime),
		sessionDuration:  time.Duration(snap.SessionDuration) * time.Millisecond,
		pausedAt:         timeutil.FromMillis(snap.PausedAt),
		soundEnabled:     snap.SoundEnabled,
		soundVolume:      snap.SoundVolume,
	}

	tr := s.Update()

	return s, tr, nil
}
