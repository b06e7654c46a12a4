package bridge_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/takaotokuno/focusguard/bridge"
	"github.com/takaotokuno/focusguard/internal/apperr"
	"github.com/takaotokuno/focusguard/internal/timeutil"
	"github.com/takaotokuno/focusguard/notify"
	"github.com/takaotokuno/focusguard/orchestrator"
	"github.com/takaotokuno/focusguard/timer"
)

type memStore struct {
	snap *timer.Snapshot
}

func (m *memStore) Save(snap *timer.Snapshot) error { m.snap = snap; return nil }
func (m *memStore) Load() (*timer.Snapshot, error)  { return m.snap, nil }

type nopGuard struct{}

func (nopGuard) Enable(context.Context) error  { return nil }
func (nopGuard) Disable(context.Context) error { return nil }

type nopTick struct{}

func (nopTick) Start() error { return nil }
func (nopTick) Stop() error  { return nil }

type nopSound struct{}

func (nopSound) Apply(context.Context, *timer.State) error { return nil }

func newBridge(t *testing.T) *bridge.Bridge {
	t.Helper()

	orch := orchestrator.New(orchestrator.Config{
		Clock:    timeutil.NewManualClock(time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)),
		Store:    &memStore{},
		Guard:    nopGuard{},
		Tick:     nopTick{},
		Sound:    nopSound{},
		Notifier: notify.Discard{},
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	return bridge.New(orch, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func TestDispatchStart(t *testing.T) {
	b := newBridge(t)

	resp := b.Dispatch(context.Background(), bridge.Message{
		Type:    bridge.TypeStart,
		Minutes: intPtr(60),
	})

	require.True(t, resp.Success)
	require.Equal(t, timer.Running, resp.Mode)
	require.Equal(t, int64(60*60*1000), resp.TotalRemaining)
}

func TestDispatchStartValidation(t *testing.T) {
	cases := []struct {
		name    string
		minutes *int
		wantErr string
	}{
		{"missing minutes", nil, "requires minutes"},
		{"below minimum", intPtr(4), "between 5 and 300"},
		{"above maximum", intPtr(301), "between 5 and 300"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := newBridge(t)

			resp := b.Dispatch(context.Background(), bridge.Message{
				Type:    bridge.TypeStart,
				Minutes: tc.minutes,
			})

			require.False(t, resp.Success)
			require.Equal(t, apperr.Fatal, resp.Severity)
			require.Contains(t, resp.Error, tc.wantErr)
			require.Nil(t, resp.Projection)
		})
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	b := newBridge(t)

	resp := b.Dispatch(context.Background(), bridge.Message{Type: "timer/explode"})

	require.False(t, resp.Success)
	require.Equal(t, apperr.Fatal, resp.Severity)
	require.Contains(t, resp.Error, `unknown command type "timer/explode"`)
}

func TestDispatchSoundSaveRequiresBothFields(t *testing.T) {
	b := newBridge(t)

	resp := b.Dispatch(context.Background(), bridge.Message{
		Type:         bridge.TypeSoundSave,
		SoundEnabled: boolPtr(true),
	})

	require.False(t, resp.Success)
	require.Contains(t, resp.Error, "soundEnabled and soundVolume")

	resp = b.Dispatch(context.Background(), bridge.Message{
		Type:         bridge.TypeSoundSave,
		SoundEnabled: boolPtr(true),
		SoundVolume:  intPtr(70),
	})

	require.True(t, resp.Success)
	require.True(t, resp.SoundEnabled)
	require.Equal(t, 70, resp.SoundVolume)
}

func TestDispatchLifecycle(t *testing.T) {
	b := newBridge(t)
	ctx := context.Background()

	require.True(t, b.Dispatch(ctx, bridge.Message{
		Type:    bridge.TypeStart,
		Minutes: intPtr(60),
	}).Success)

	resp := b.Dispatch(ctx, bridge.Message{Type: bridge.TypePause})
	require.True(t, resp.Success)
	require.Equal(t, timer.Paused, resp.Mode)

	resp = b.Dispatch(ctx, bridge.Message{Type: bridge.TypeResume})
	require.True(t, resp.Success)
	require.Equal(t, timer.Running, resp.Mode)

	resp = b.Dispatch(ctx, bridge.Message{Type: bridge.TypeReset})
	require.True(t, resp.Success)
	require.Equal(t, timer.Setup, resp.Mode)
}

func postMessage(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()

	resp, err := srv.Client().Post(
		srv.URL+"/message",
		"application/json",
		strings.NewReader(body),
	)
	require.NoError(t, err)

	return resp
}

func decodeResponse(t *testing.T, httpResp *http.Response) *orchestrator.Response {
	t.Helper()

	defer func() {
		_ = httpResp.Body.Close()
	}()

	var resp orchestrator.Response

	require.NoError(t, json.NewDecoder(httpResp.Body).Decode(&resp))

	return &resp
}

func TestRouterHandlesMessages(t *testing.T) {
	srv := httptest.NewServer(newBridge(t).Router())
	defer srv.Close()

	httpResp := postMessage(t, srv, `{"type":"timer/start","minutes":60}`)
	require.Equal(t, http.StatusOK, httpResp.StatusCode)
	require.Equal(t, "application/json",
		httpResp.Header.Get("Content-Type"))

	resp := decodeResponse(t, httpResp)
	require.True(t, resp.Success)
	require.Equal(t, timer.Running, resp.Mode)

	httpResp = postMessage(t, srv, `{"type":"timer/update"}`)

	resp = decodeResponse(t, httpResp)
	require.True(t, resp.Success)
	require.Equal(t, int64(60*60*1000), resp.TotalRemaining)
}

func TestRouterRejectsMalformedJSON(t *testing.T) {
	srv := httptest.NewServer(newBridge(t).Router())
	defer srv.Close()

	httpResp := postMessage(t, srv, `{"type":`)

	resp := decodeResponse(t, httpResp)
	require.False(t, resp.Success)
	require.Equal(t, apperr.Fatal, resp.Severity)
	require.Contains(t, resp.Error, "malformed message")
}

func TestRouterFailedCommandsTravelInBody(t *testing.T) {
	srv := httptest.NewServer(newBridge(t).Router())
	defer srv.Close()

	httpResp := postMessage(t, srv, `{"type":"timer/start","minutes":4}`)
	require.Equal(t, http.StatusOK, httpResp.StatusCode)

	resp := decodeResponse(t, httpResp)
	require.False(t, resp.Success)
	require.Equal(t, apperr.Fatal, resp.Severity)
}

func TestHealthz(t *testing.T) {
	srv := httptest.NewServer(newBridge(t).Router())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/healthz")
	require.NoError(t, err)

	defer func() {
		_ = resp.Body.Close()
	}()

	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMessageRoundTripsJSON(t *testing.T) {
	msg := bridge.Message{
		Type:    bridge.TypeStart,
		Minutes: intPtr(60),
	}

	var buf bytes.Buffer

	require.NoError(t, json.NewEncoder(&buf).Encode(msg))
	require.JSONEq(t, `{"type":"timer/start","minutes":60}`, buf.String())
}
