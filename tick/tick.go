// Package tick wraps a coarse repeating alarm that drives the orchestrator's
// update path once per minute.
package tick

import (
	"sync"
	"time"

	"github.com/takaotokuno/focusguard/internal/apperr"
)

// AlarmName identifies the repeating alarm.
const AlarmName = "POMODORO_TICK"

// Period is the default firing interval.
const Period = time.Minute

// Driver is a dumb scheduler: it keeps no timer state and only invokes the
// callback on every firing. Start and Stop are idempotent, so concurrent
// calls collapse to a single underlying alarm.
type Driver struct {
	mu       sync.Mutex
	interval time.Duration
	onTick   func()
	stop     chan struct{}
}

// New returns a Driver firing at the given interval.
func New(interval time.Duration, onTick func()) *Driver {
	return &Driver{
		interval: interval,
		onTick:   onTick,
	}
}

// Start creates the alarm if it is not already running.
func (d *Driver) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.interval <= 0 || d.onTick == nil {
		return apperr.New(
			apperr.Alarm,
			apperr.Fatal,
			"tick driver is not configured",
		)
	}

	if d.stop != nil {
		return nil
	}

	stop := make(chan struct{})
	d.stop = stop

	go d.loop(stop)

	return nil
}

// Stop clears the alarm if it is running.
func (d *Driver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stop == nil {
		return nil
	}

	close(d.stop)
	d.stop = nil

	return nil
}

// Running reports whether the alarm is active.
func (d *Driver) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.stop != nil
}

func (d *Driver) loop(stop chan struct{}) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.onTick()
		case <-stop:
			return
		}
	}
}
