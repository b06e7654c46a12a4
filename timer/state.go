// Package timer implements the focus-session state machine. It alternates
// fixed work and break intervals inside a user-chosen total duration and
// keeps all time accounting as wall-clock differences so that the process
// may be suspended and resumed at any point without drift.
package timer

import (
	"fmt"
	"time"

	"github.com/takaotokuno/focusguard/internal/apperr"
	"github.com/takaotokuno/focusguard/internal/timeutil"
)

// Mode is the lifecycle state of the timer.
type Mode string

const (
	Setup     Mode = "setup"
	Running   Mode = "running"
	Paused    Mode = "paused"
	Completed Mode = "completed"
)

// SessionType distinguishes work intervals from break intervals.
type SessionType string

const (
	Work  SessionType = "work"
	Break SessionType = "break"
)

// Session and total bounds.
const (
	WorkSession  = 25 * time.Minute
	BreakSession = 5 * time.Minute

	MinTotalMinutes     = 5
	MaxTotalMinutes     = 300
	DefaultTotalMinutes = 60

	DefaultSoundVolume = 50
)

// TransitionKind tags the outcome of an Update call.
type TransitionKind int

const (
	// TransitionNone means no boundary was crossed.
	TransitionNone TransitionKind = iota
	// TransitionSwitched means the work/break session toggled.
	TransitionSwitched
	// TransitionCompleted means the total duration elapsed. Completion
	// dominates a simultaneous session boundary.
	TransitionCompleted
)

// Transition describes what an Update observed.
type Transition struct {
	Kind    TransitionKind
	NewType SessionType
}

// State is the timer state machine. It is pure apart from reading the
// injected clock; all side effects live in the orchestrator.
type State struct {
	clock timeutil.Clock

	mode             Mode
	sessionType      SessionType
	totalStartTime   time.Time
	totalDuration    time.Duration
	sessionStartTime time.Time
	sessionDuration  time.Duration
	pausedAt         time.Time

	soundEnabled bool
	soundVolume  int
}

// New returns a State in setup mode.
func New(clock timeutil.Clock) *State {
	s := &State{
		clock:       clock,
		soundVolume: DefaultSoundVolume,
	}
	s.reinit()

	return s
}

// reinit restores the setup shape, leaving sound settings untouched.
func (s *State) reinit() {
	s.mode = Setup
	s.sessionType = Work
	s.totalStartTime = time.Time{}
	s.totalDuration = 0
	s.sessionStartTime = time.Time{}
	s.sessionDuration = 0
	s.pausedAt = time.Time{}
}

func (s *State) Mode() Mode               { return s.mode }
func (s *State) SessionType() SessionType { return s.sessionType }
func (s *State) SoundEnabled() bool       { return s.soundEnabled }
func (s *State) SoundVolume() int         { return s.soundVolume }

// TotalElapsed reports the time spent in the current total session. It is
// frozen while the timer is paused and clamped to the total duration.
func (s *State) TotalElapsed() time.Duration {
	return s.elapsedSince(s.totalStartTime, s.totalDuration)
}

// SessionElapsed reports the time spent in the current sub-session.
func (s *State) SessionElapsed() time.Duration {
	return s.elapsedSince(s.sessionStartTime, s.sessionDuration)
}

func (s *State) elapsedSince(start time.Time, limit time.Duration) time.Duration {
	if s.mode == Setup || start.IsZero() {
		return 0
	}

	ref := s.clock.Now()
	if s.mode == Paused {
		ref = s.pausedAt
	}

	elapsed := ref.Sub(start)
	if elapsed < 0 {
		elapsed = 0
	}

	if s.mode == Completed || elapsed > limit {
		elapsed = limit
	}

	return elapsed
}

// TotalRemaining is the time left in the total session.
func (s *State) TotalRemaining() time.Duration {
	return remaining(s.totalDuration, s.TotalElapsed())
}

// SessionRemaining is the time left in the current sub-session.
func (s *State) SessionRemaining() time.Duration {
	return remaining(s.sessionDuration, s.SessionElapsed())
}

func remaining(duration, elapsed time.Duration) time.Duration {
	r := duration - elapsed
	if r < 0 {
		r = 0
	}

	return r
}

// Start begins a new total session of the given length. The session always
// opens with a work interval, truncated to the total when the total is
// shorter than a full work session.
func (s *State) Start(minutes int) error {
	if minutes < MinTotalMinutes || minutes > MaxTotalMinutes {
		return apperr.New(
			apperr.InvalidInput,
			apperr.Fatal,
			fmt.Sprintf(
				"minutes must be between %d and %d, got %d",
				MinTotalMinutes, MaxTotalMinutes, minutes,
			),
		)
	}

	s.reinit()

	now := s.clock.Now()

	s.mode = Running
	s.sessionType = Work
	s.totalStartTime = now
	s.totalDuration = time.Duration(minutes) * time.Minute
	s.sessionStartTime = now
	s.sessionDuration = minDuration(WorkSession, s.totalDuration)

	return nil
}

// Pause freezes a running timer. Pausing an already paused timer is a no-op.
func (s *State) Pause() error {
	switch s.mode {
	case Paused:
		return nil
	case Running:
		s.mode = Paused
		s.pausedAt = s.clock.Now()

		return nil
	default:
		return apperr.New(
			apperr.InvalidInput,
			apperr.Fatal,
			fmt.Sprintf("cannot pause timer in %s mode", s.mode),
		)
	}
}

// Resume continues a paused timer by shifting the start instants forward by
// the paused span, so elapsed time is preserved exactly. Resuming a running
// timer is a no-op.
func (s *State) Resume() error {
	switch s.mode {
	case Running:
		return nil
	case Paused:
		pausedFor := s.clock.Now().Sub(s.pausedAt)

		s.totalStartTime = s.totalStartTime.Add(pausedFor)
		s.sessionStartTime = s.sessionStartTime.Add(pausedFor)
		s.mode = Running
		s.pausedAt = time.Time{}

		return nil
	default:
		return apperr.New(
			apperr.InvalidInput,
			apperr.Fatal,
			fmt.Sprintf("cannot resume timer in %s mode", s.mode),
		)
	}
}

// Reset returns the timer to setup unconditionally, preserving the sound
// settings.
func (s *State) Reset() {
	s.reinit()
}

// Update recomputes elapsed time against the wall clock and crosses at most
// one boundary: completion of the total session, or a work/break switch.
// Completion dominates when both land on the same instant.
func (s *State) Update() Transition {
	if s.mode != Running {
		return Transition{Kind: TransitionNone}
	}

	now := s.clock.Now()

	if now.Sub(s.totalStartTime) >= s.totalDuration {
		s.mode = Completed

		return Transition{Kind: TransitionCompleted}
	}

	if now.Sub(s.sessionStartTime) >= s.sessionDuration {
		next := Break
		if s.sessionType == Break {
			next = Work
		}

		sessionLen := WorkSession
		if next == Break {
			sessionLen = BreakSession
		}

		remainingTotal := s.totalDuration - now.Sub(s.totalStartTime)

		s.sessionType = next
		s.sessionStartTime = now
		s.sessionDuration = minDuration(sessionLen, remainingTotal)

		return Transition{Kind: TransitionSwitched, NewType: next}
	}

	return Transition{Kind: TransitionNone}
}

// SetSound stores the sound preference.
func (s *State) SetSound(enabled bool, volume int) error {
	if volume < 0 || volume > 100 {
		return apperr.New(
			apperr.InvalidInput,
			apperr.Fatal,
			fmt.Sprintf("sound volume must be between 0 and 100, got %d", volume),
		)
	}

	s.soundEnabled = enabled
	s.soundVolume = volume

	return nil
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}

	return b
}
