package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/takaotokuno/focusguard/internal/apperr"
)

// step is one unit of a command pipeline. Its severity classifies failures
// that carry no classification of their own; an *apperr.Error keeps the
// severity it was created with.
type step struct {
	name     string
	severity apperr.Severity
	run      func(ctx context.Context) error
}

// outcome accumulates the results of a pipeline.
type outcome struct {
	warnings  []string
	fatalErr  error
	fatalStep string
}

func (out *outcome) failed() bool {
	return out.fatalErr != nil
}

func (out *outcome) warn(name string, err error) {
	out.warnings = append(out.warnings, fmt.Sprintf("%s: %v", name, err))
}

// runSteps executes steps in order, short-circuiting on the first fatal
// failure and accumulating warnings.
func (o *Orchestrator) runSteps(ctx context.Context, steps []step) *outcome {
	out := &outcome{}

	for _, st := range steps {
		err := st.run(ctx)
		if err == nil {
			continue
		}

		if stepSeverity(st, err) == apperr.Fatal {
			out.fatalErr = err
			out.fatalStep = st.name

			o.log.Error("step failed",
				slog.String("step", st.name),
				slog.Any("error", err),
			)

			return out
		}

		out.warn(st.name, err)

		o.log.Warn("step failed",
			slog.String("step", st.name),
			slog.Any("error", err),
		)
	}

	return out
}

func stepSeverity(st step, err error) apperr.Severity {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr.Severity
	}

	return st.severity
}
