// Package saga provides two multi-step execution primitives with different
// guarantees. Sequence compensates completed steps in reverse order when a
// later step fails; BestEffort stops at the failed step and reports which
// steps had already been applied. The split keeps the difference between the
// compensated create path and the non-compensated update/delete paths visible
// in the type system.
package saga

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Step is a single unit of work. Compensate undoes the effects of Run; a nil
// Compensate marks a step that cannot (or need not) be undone.
type Step struct {
	Name       string
	Run        func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// Sequence executes steps in order. If a step fails, compensation runs for
// every previously completed step in reverse order and the ORIGINAL error is
// returned; compensation failures are logged, never returned, so they cannot
// mask the root cause.
type Sequence struct {
	name   string
	steps  []Step
	logger *zap.Logger
}

// NewSequence constructs a compensating sequence.
func NewSequence(name string, logger *zap.Logger, steps ...Step) *Sequence {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sequence{name: name, steps: steps, logger: logger}
}

// Execute runs the sequence to completion or compensates and returns the
// error of the failed step.
func (s *Sequence) Execute(ctx context.Context) error {
	var completed []Step
	for _, step := range s.steps {
		if err := step.Run(ctx); err != nil {
			s.logger.Warn("saga step failed, compensating",
				zap.String("saga", s.name),
				zap.String("step", step.Name),
				zap.Error(err),
			)
			s.compensate(ctx, completed)
			return err
		}
		completed = append(completed, step)
	}
	return nil
}

func (s *Sequence) compensate(ctx context.Context, completed []Step) {
	for i := len(completed) - 1; i >= 0; i-- {
		step := completed[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			s.logger.Error("saga compensation failed",
				zap.String("saga", s.name),
				zap.String("step", step.Name),
				zap.Error(err),
			)
		}
	}
}

// BestEffort executes steps in order with no compensation. Each step must be
// idempotent or re-check state before acting, so a caller can safely retry
// the whole sequence after a partial failure.
type BestEffort struct {
	name   string
	steps  []Step
	logger *zap.Logger
}

// NewBestEffort constructs a non-compensating sequence.
func NewBestEffort(name string, logger *zap.Logger, steps ...Step) *BestEffort {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BestEffort{name: name, steps: steps, logger: logger}
}

// Execute runs every step until one fails, returning a *PartialError that
// names the failed step and the steps already applied.
func (s *BestEffort) Execute(ctx context.Context) error {
	var applied []string
	for _, step := range s.steps {
		if err := step.Run(ctx); err != nil {
			s.logger.Warn("best-effort step failed, no rollback",
				zap.String("sequence", s.name),
				zap.String("step", step.Name),
				zap.Strings("applied", applied),
				zap.Error(err),
			)
			return &PartialError{Sequence: s.name, Step: step.Name, Applied: applied, Err: err}
		}
		applied = append(applied, step.Name)
	}
	return nil
}

// PartialError reports a best-effort sequence that stopped midway. Earlier
// steps stay applied; the caller's remedy is to retry the whole operation.
type PartialError struct {
	Sequence string
	Step     string
	Applied  []string
	Err      error
}

// Error implements the error interface.
func (e *PartialError) Error() string {
	return fmt.Sprintf("%s: step %q failed after %d applied: %v", e.Sequence, e.Step, len(e.Applied), e.Err)
}

// Unwrap returns the underlying step error.
func (e *PartialError) Unwrap() error {
	return e.Err
}
