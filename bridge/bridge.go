// Package bridge translates foreground command messages into orchestrator
// calls over a localhost HTTP surface.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/takaotokuno/focusguard/internal/apperr"
	"github.com/takaotokuno/focusguard/orchestrator"
	"github.com/takaotokuno/focusguard/timer"
)

// Message is an inbound command from the foreground.
type Message struct {
	Type         string `json:"type"`
	Minutes      *int   `json:"minutes,omitempty"`
	SoundEnabled *bool  `json:"soundEnabled,omitempty"`
	SoundVolume  *int   `json:"soundVolume,omitempty"`
}

// Command message types.
const (
	TypeUpdate    = "timer/update"
	TypePause     = "timer/pause"
	TypeResume    = "timer/resume"
	TypeReset     = "timer/reset"
	TypeStart     = "timer/start"
	TypeSoundSave = "sound/save"
)

// Bridge dispatches messages to the orchestrator and relays responses.
type Bridge struct {
	orch *orchestrator.Orchestrator
	log  *slog.Logger
}

// New returns a Bridge.
func New(orch *orchestrator.Orchestrator, log *slog.Logger) *Bridge {
	if log == nil {
		log = slog.Default()
	}

	return &Bridge{orch: orch, log: log}
}

// Dispatch routes one message. Validation failures and unknown command types
// produce fatal responses; the orchestrator never sees them.
func (b *Bridge) Dispatch(ctx context.Context, msg Message) (resp *orchestrator.Response) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("dispatch panicked",
				slog.String("type", msg.Type),
				slog.Any("panic", r),
			)

			resp = orchestrator.Fatal(fmt.Errorf("dispatching %s: %v", msg.Type, r))
		}
	}()

	switch msg.Type {
	case TypeUpdate:
		return b.orch.Update(ctx)
	case TypePause:
		return b.orch.Pause(ctx)
	case TypeResume:
		return b.orch.Resume(ctx)
	case TypeReset:
		return b.orch.Reset(ctx)
	case TypeStart:
		if err := validateMinutes(msg.Minutes); err != nil {
			return orchestrator.Fatal(err)
		}

		return b.orch.Start(ctx, *msg.Minutes)
	case TypeSoundSave:
		if msg.SoundEnabled == nil || msg.SoundVolume == nil {
			return orchestrator.Fatal(apperr.New(
				apperr.InvalidInput,
				apperr.Fatal,
				"sound/save requires soundEnabled and soundVolume",
			))
		}

		return b.orch.SaveSound(ctx, *msg.SoundEnabled, *msg.SoundVolume)
	default:
		return orchestrator.Fatal(apperr.New(
			apperr.UnknownCommand,
			apperr.Fatal,
			fmt.Sprintf("unknown command type %q", msg.Type),
		))
	}
}

// validateMinutes mirrors the state machine's bounds so the foreground gets
// a synchronous error without touching timer state.
func validateMinutes(minutes *int) error {
	if minutes == nil {
		return apperr.New(
			apperr.InvalidInput,
			apperr.Fatal,
			"timer/start requires minutes",
		)
	}

	if *minutes < timer.MinTotalMinutes || *minutes > timer.MaxTotalMinutes {
		return apperr.New(
			apperr.InvalidInput,
			apperr.Fatal,
			fmt.Sprintf(
				"minutes must be between %d and %d, got %d",
				timer.MinTotalMinutes, timer.MaxTotalMinutes, *minutes,
			),
		)
	}

	return nil
}

// Router exposes the message surface.
func (b *Bridge) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)

	r.Post("/message", b.handleMessage)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return r
}

func (b *Bridge) handleMessage(w http.ResponseWriter, r *http.Request) {
	var msg Message

	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeJSON(w, orchestrator.Fatal(fmt.Errorf("malformed message: %w", err)))

		return
	}

	resp := b.Dispatch(r.Context(), msg)

	b.log.Info("command handled",
		slog.String("type", msg.Type),
		slog.Bool("success", resp.Success),
	)

	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, resp *orchestrator.Response) {
	w.Header().Set("Content-Type", "application/json")

	// Command outcomes, including failures, travel in the response body.
	_ = json.NewEncoder(w).Encode(resp)
}

// Serve runs the bridge on addr until ctx is cancelled.
func (b *Bridge) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           b.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err
	}
}
