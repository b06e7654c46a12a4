package orchestrator

import (
	"strings"

	"github.com/takaotokuno/focusguard/internal/apperr"
	"github.com/takaotokuno/focusguard/timer"
)

// Projection is the timer state as reported to the foreground.
type Projection struct {
	Mode             timer.Mode        `json:"mode"`
	TotalRemaining   int64             `json:"totalRemaining"`
	SessionType      timer.SessionType `json:"sessionType"`
	SessionRemaining int64             `json:"sessionRemaining"`
	SoundEnabled     bool              `json:"soundEnabled"`
	SoundVolume      int               `json:"soundVolume"`
}

// Response is the outcome of a command. Merging follows a fixed policy:
// the first fatal failure wins outright, otherwise accumulated warnings are
// joined into one message, otherwise the command succeeded. Warnings still
// carry the projected state because the primary outcome was achieved.
type Response struct {
	Success  bool            `json:"success"`
	Severity apperr.Severity `json:"severity,omitempty"`
	Error    string          `json:"error,omitempty"`
	*Projection
}

// Fatal builds a fatal response from err.
func Fatal(err error) *Response {
	return &Response{
		Success:  false,
		Severity: apperr.Fatal,
		Error:    err.Error(),
	}
}

func merged(warnings []string, proj *Projection) *Response {
	if len(warnings) > 0 {
		return &Response{
			Success:    false,
			Severity:   apperr.Warning,
			Error:      strings.Join(warnings, "\n"),
			Projection: proj,
		}
	}

	return &Response{
		Success:    true,
		Projection: proj,
	}
}

func (o *Orchestrator) project() *Projection {
	return &Projection{
		Mode:             o.state.Mode(),
		TotalRemaining:   o.state.TotalRemaining().Milliseconds(),
		SessionType:      o.state.SessionType(),
		SessionRemaining: o.state.SessionRemaining().Milliseconds(),
		SoundEnabled:     o.state.SoundEnabled(),
		SoundVolume:      o.state.SoundVolume(),
	}
}
