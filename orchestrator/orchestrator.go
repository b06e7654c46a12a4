// Package orchestrator accepts user commands and minute ticks, sequences the
// resulting side effects across the timer state machine, block guard, tick
// driver, sound controller and notifier, and classifies every step's failure
// as fatal or recoverable so one failure cannot corrupt timer state.
package orchestrator

import (
	"context"
	"log/slog"
	"os/exec"
	"sync"

	"github.com/kballard/go-shellquote"

	"github.com/takaotokuno/focusguard/internal/apperr"
	"github.com/takaotokuno/focusguard/internal/timeutil"
	"github.com/takaotokuno/focusguard/notify"
	"github.com/takaotokuno/focusguard/timer"
)

// SnapshotStore persists one timer snapshot.
type SnapshotStore interface {
	Save(snap *timer.Snapshot) error
	Load() (*timer.Snapshot, error)
}

// BlockGuard toggles the distraction block list.
type BlockGuard interface {
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
}

// TickDriver runs the once-per-minute wake-up alarm.
type TickDriver interface {
	Start() error
	Stop() error
}

// SoundController reconciles ambient audio with the timer state.
type SoundController interface {
	Apply(ctx context.Context, state *timer.State) error
}

// StatusWriter mirrors the projected state for external consumers. Optional.
type StatusWriter interface {
	Write(state *timer.State) error
}

// Config wires the orchestrator's collaborators.
type Config struct {
	Clock      timeutil.Clock
	Store      SnapshotStore
	Guard      BlockGuard
	Tick       TickDriver
	Sound      SoundController
	Notifier   notify.Notifier
	Status     StatusWriter
	SessionCmd string
	Logger     *slog.Logger
}

// Orchestrator serialises commands: while one command is in flight, another
// waits on the lock. The tick path runs on the same lock.
type Orchestrator struct {
	mu    sync.Mutex
	clock timeutil.Clock
	state *timer.State

	store      SnapshotStore
	guard      BlockGuard
	tick       TickDriver
	sound      SoundController
	notifier   notify.Notifier
	status     StatusWriter
	sessionCmd string
	log        *slog.Logger
}

// New returns an Orchestrator. The timer state is rehydrated lazily from the
// snapshot store on the first command.
func New(cfg Config) *Orchestrator {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Orchestrator{
		clock:      cfg.Clock,
		store:      cfg.Store,
		guard:      cfg.Guard,
		tick:       cfg.Tick,
		sound:      cfg.Sound,
		notifier:   cfg.Notifier,
		status:     cfg.Status,
		sessionCmd: cfg.SessionCmd,
		log:        log,
	}
}

// ensureInit rehydrates the timer state from the snapshot store. A missing
// or unreadable snapshot yields a fresh timer; restoring runs one update so
// boundaries crossed while the process was down converge silently.
func (o *Orchestrator) ensureInit(ctx context.Context) error {
	_ = ctx

	if o.state != nil {
		return nil
	}

	snap, err := o.store.Load()
	if err != nil {
		o.log.Warn("loading snapshot failed, starting fresh", slog.Any("error", err))

		o.state = timer.New(o.clock)

		return nil
	}

	if snap == nil {
		o.state = timer.New(o.clock)

		return nil
	}

	state, _, err := timer.FromSnapshot(o.clock, snap)
	if err != nil {
		o.log.Warn("restoring snapshot failed, starting fresh", slog.Any("error", err))

		o.state = timer.New(o.clock)

		return nil
	}

	o.state = state

	return nil
}

// Start begins a new total session. A fatal failure after the state mutation
// rolls the timer back to setup before the error surfaces, and nothing is
// persisted.
func (o *Orchestrator) Start(ctx context.Context, minutes int) *Response {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.ensureInit(ctx); err != nil {
		return Fatal(err)
	}

	out := o.runSteps(ctx, []step{
		{"validateAndStart", apperr.Fatal, func(context.Context) error {
			return o.state.Start(minutes)
		}},
		{"enableBlock", apperr.Fatal, o.guard.Enable},
		{"startTick", apperr.Fatal, func(context.Context) error {
			return o.tick.Start()
		}},
	})

	if out.failed() {
		if out.fatalStep != "validateAndStart" {
			o.rollback(ctx)
		}

		return Fatal(out.fatalErr)
	}

	return o.finish(ctx, out)
}

// rollback abandons a half-started session: the timer returns to setup, the
// block rules come off and the tick alarm stops. Failures here are logged and
// swallowed; the original fatal error is the one that surfaces.
func (o *Orchestrator) rollback(ctx context.Context) {
	o.state.Reset()

	if err := o.guard.Disable(ctx); err != nil {
		o.log.Warn("rolling back block rules", slog.Any("error", err))
	}

	if err := o.tick.Stop(); err != nil {
		o.log.Warn("rolling back tick alarm", slog.Any("error", err))
	}
}

// Pause freezes the timer and stops the tick alarm.
func (o *Orchestrator) Pause(ctx context.Context) *Response {
	return o.simpleCommand(ctx, []step{
		{"pause", apperr.Fatal, func(context.Context) error {
			return o.state.Pause()
		}},
		{"stopTick", apperr.Fatal, func(context.Context) error {
			return o.tick.Stop()
		}},
	})
}

// Resume continues a paused timer and restarts the tick alarm.
func (o *Orchestrator) Resume(ctx context.Context) *Response {
	return o.simpleCommand(ctx, []step{
		{"resume", apperr.Fatal, func(context.Context) error {
			return o.state.Resume()
		}},
		{"startTick", apperr.Fatal, func(context.Context) error {
			return o.tick.Start()
		}},
	})
}

// Reset abandons the current session, removes the block rules and stops the
// tick alarm.
func (o *Orchestrator) Reset(ctx context.Context) *Response {
	return o.simpleCommand(ctx, []step{
		{"reset", apperr.Fatal, func(context.Context) error {
			o.state.Reset()
			return nil
		}},
		{"disableBlock", apperr.Fatal, o.guard.Disable},
		{"stopTick", apperr.Fatal, func(context.Context) error {
			return o.tick.Stop()
		}},
	})
}

// SaveSound stores the sound preference. The epilogue re-applies the sound
// decision table, so toggling while a work session runs takes effect at once.
func (o *Orchestrator) SaveSound(ctx context.Context, enabled bool, volume int) *Response {
	return o.simpleCommand(ctx, []step{
		{"saveSound", apperr.Fatal, func(context.Context) error {
			return o.state.SetSound(enabled, volume)
		}},
	})
}

// Update recomputes elapsed time and handles at most one boundary
// transition: a work/break switch or completion of the total session.
func (o *Orchestrator) Update(ctx context.Context) *Response {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.ensureInit(ctx); err != nil {
		return Fatal(err)
	}

	var tr timer.Transition

	out := o.runSteps(ctx, []step{
		{"update", apperr.Fatal, func(context.Context) error {
			tr = o.state.Update()
			return nil
		}},
	})
	if out.failed() {
		return Fatal(out.fatalErr)
	}

	fanout := o.runSteps(ctx, o.transitionSteps(tr))

	out.warnings = append(out.warnings, fanout.warnings...)

	if fanout.failed() {
		// A work session must never run unblocked. The transition is already
		// consumed, so no later tick would retry the install; abandon the
		// session instead of surfacing the error over a running timer.
		if fanout.fatalStep == "enableBlock" {
			o.rollback(ctx)
		}

		return Fatal(fanout.fatalErr)
	}

	return o.finish(ctx, out)
}

// Tick is the alarm callback. Outcomes are logged, not returned: there is no
// foreground to respond to.
func (o *Orchestrator) Tick(ctx context.Context) {
	resp := o.Update(ctx)

	if resp.Success {
		o.log.Debug("tick update", slog.String("mode", string(resp.Mode)))

		return
	}

	o.log.Warn("tick update failed",
		slog.String("severity", string(resp.Severity)),
		slog.String("error", resp.Error),
	)
}

// Recover re-establishes side effects after a cold start: the block rules,
// tick alarm and audio are brought into agreement with the restored state.
func (o *Orchestrator) Recover(ctx context.Context) *Response {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.ensureInit(ctx); err != nil {
		return Fatal(err)
	}

	blocking := o.state.SessionType() == timer.Work &&
		(o.state.Mode() == timer.Running || o.state.Mode() == timer.Paused)

	steps := []step{}

	if blocking {
		steps = append(steps, step{"enableBlock", apperr.Fatal, o.guard.Enable})
	} else {
		steps = append(steps, step{"disableBlock", apperr.Fatal, o.guard.Disable})
	}

	if o.state.Mode() == timer.Running {
		steps = append(steps, step{"startTick", apperr.Fatal, func(context.Context) error {
			return o.tick.Start()
		}})
	}

	out := o.runSteps(ctx, steps)
	if out.failed() {
		return Fatal(out.fatalErr)
	}

	return o.finish(ctx, out)
}

// transitionSteps maps an update transition to its compound side effects.
func (o *Orchestrator) transitionSteps(tr timer.Transition) []step {
	switch tr.Kind {
	case timer.TransitionCompleted:
		return []step{
			{"notifyComplete", apperr.Warning, func(context.Context) error {
				return o.notifier.Notify(notify.Complete())
			}},
			{"disableBlock", apperr.Fatal, o.guard.Disable},
			{"stopTick", apperr.Fatal, func(context.Context) error {
				return o.tick.Stop()
			}},
			{"sessionCmd", apperr.Warning, o.runSessionCmd},
		}

	case timer.TransitionSwitched:
		steps := []step{}

		if tr.NewType == timer.Work {
			steps = append(steps,
				step{"notifySwitch", apperr.Warning, func(context.Context) error {
					return o.notifier.Notify(notify.SwitchToWork())
				}},
				step{"enableBlock", apperr.Fatal, o.guard.Enable},
			)
		} else {
			steps = append(steps,
				step{"notifySwitch", apperr.Warning, func(context.Context) error {
					return o.notifier.Notify(notify.SwitchToBreak())
				}},
				step{"disableBlock", apperr.Fatal, o.guard.Disable},
			)
		}

		return append(steps, step{"sessionCmd", apperr.Warning, o.runSessionCmd})

	default:
		return nil
	}
}

// simpleCommand runs a pipeline under the command lock followed by the
// common epilogue.
func (o *Orchestrator) simpleCommand(ctx context.Context, steps []step) *Response {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.ensureInit(ctx); err != nil {
		return Fatal(err)
	}

	out := o.runSteps(ctx, steps)
	if out.failed() {
		return Fatal(out.fatalErr)
	}

	return o.finish(ctx, out)
}

// finish runs the common epilogue: reconcile audio with the new state and
// persist a snapshot. Neither step is fatal because the user's primary
// outcome has already been achieved. Fatal failures never reach here, which
// is what guarantees no snapshot is persisted for a failed command.
func (o *Orchestrator) finish(ctx context.Context, out *outcome) *Response {
	epilogue := o.runSteps(ctx, []step{
		{"handleSound", apperr.Warning, func(ctx context.Context) error {
			return o.sound.Apply(ctx, o.state)
		}},
		{"saveSnapshot", apperr.Warning, func(context.Context) error {
			return o.store.Save(o.state.ToSnapshot())
		}},
		{"writeStatus", apperr.Warning, func(context.Context) error {
			if o.status == nil {
				return nil
			}

			return o.status.Write(o.state)
		}},
	})

	out.warnings = append(out.warnings, epilogue.warnings...)

	return merged(out.warnings, o.project())
}

// runSessionCmd executes the configured hook command on session boundaries.
func (o *Orchestrator) runSessionCmd(context.Context) error {
	if o.sessionCmd == "" {
		return nil
	}

	cmdSlice, err := shellquote.Split(o.sessionCmd)
	if err != nil {
		return apperr.Wrap(
			apperr.InvalidInput,
			apperr.Warning,
			"parsing session command",
			err,
		)
	}

	if len(cmdSlice) == 0 {
		return nil
	}

	return exec.Command(cmdSlice[0], cmdSlice[1:]...).Run()
}
