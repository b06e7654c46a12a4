package statusfile_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/takaotokuno/focusguard/internal/timeutil"
	"github.com/takaotokuno/focusguard/statusfile"
	"github.com/takaotokuno/focusguard/timer"
)

func TestWriteThenRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")

	now := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	clock := timeutil.NewManualClock(now)

	state := timer.New(clock)
	require.NoError(t, state.Start(60))
	clock.Advance(10 * time.Minute)

	require.NoError(t, statusfile.NewWriter(path, clock).Write(state))

	got, err := statusfile.Read(path)
	require.NoError(t, err)
	require.NotNil(t, got)

	require.Equal(t, timer.Running, got.Mode)
	require.Equal(t, timer.Work, got.SessionType)
	require.Equal(t, int64(50*60*1000), got.TotalRemaining)
	require.Equal(t, int64(15*60*1000), got.SessionRemaining)
	require.True(t, got.UpdatedAt.Equal(now.Add(10*time.Minute)))
}

func TestReadMissingFile(t *testing.T) {
	got, err := statusfile.Read(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	require.Nil(t, got)
}
