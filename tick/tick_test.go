package tick_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/takaotokuno/focusguard/tick"
)

func TestStartStopIdempotence(t *testing.T) {
	d := tick.New(time.Hour, func() {})

	require.False(t, d.Running())

	require.NoError(t, d.Start())
	require.NoError(t, d.Start())
	require.True(t, d.Running())

	require.NoError(t, d.Stop())
	require.NoError(t, d.Stop())
	require.False(t, d.Running())
}

func TestStartFailsWithoutCallback(t *testing.T) {
	require.Error(t, tick.New(time.Hour, nil).Start())
	require.Error(t, tick.New(0, func() {}).Start())
}

func TestFiresRepeatedly(t *testing.T) {
	var fired atomic.Int32

	d := tick.New(5*time.Millisecond, func() {
		fired.Add(1)
	})

	require.NoError(t, d.Start())

	require.Eventually(t, func() bool {
		return fired.Load() >= 3
	}, time.Second, time.Millisecond)

	require.NoError(t, d.Stop())
}

func TestStopHaltsFiring(t *testing.T) {
	var fired atomic.Int32

	d := tick.New(5*time.Millisecond, func() {
		fired.Add(1)
	})

	require.NoError(t, d.Start())

	require.Eventually(t, func() bool {
		return fired.Load() >= 1
	}, time.Second, time.Millisecond)

	require.NoError(t, d.Stop())

	at := fired.Load()
	time.Sleep(50 * time.Millisecond)
	require.LessOrEqual(t, fired.Load(), at+1, "at most one in-flight firing")
}

func TestRestartAfterStop(t *testing.T) {
	var fired atomic.Int32

	d := tick.New(5*time.Millisecond, func() {
		fired.Add(1)
	})

	require.NoError(t, d.Start())
	require.NoError(t, d.Stop())

	before := fired.Load()

	require.NoError(t, d.Start())

	require.Eventually(t, func() bool {
		return fired.Load() > before
	}, time.Second, time.Millisecond)

	require.NoError(t, d.Stop())
}
