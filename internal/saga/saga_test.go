package saga

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func step(name string, calls *[]string, runErr error) Step {
	return Step{
		Name: name,
		Run: func(ctx context.Context) error {
			*calls = append(*calls, "run:"+name)
			return runErr
		},
		Compensate: func(ctx context.Context) error {
			*calls = append(*calls, "undo:"+name)
			return nil
		},
	}
}

func TestSequenceRunsAllSteps(t *testing.T) {
	var calls []string
	seq := NewSequence("ok", nil,
		step("first", &calls, nil),
		step("second", &calls, nil),
	)

	require.NoError(t, seq.Execute(context.Background()))
	assert.Equal(t, []string{"run:first", "run:second"}, calls)
}

func TestSequenceCompensatesInReverseOrder(t *testing.T) {
	var calls []string
	boom := errors.New("boom")
	seq := NewSequence("fails", nil,
		step("first", &calls, nil),
		step("second", &calls, nil),
		step("third", &calls, boom),
	)

	err := seq.Execute(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"run:first", "run:second", "run:third", "undo:second", "undo:first"}, calls)
}

func TestSequenceReturnsOriginalErrorWhenCompensationFails(t *testing.T) {
	boom := errors.New("boom")
	seq := NewSequence("fails", nil,
		Step{
			Name: "first",
			Run:  func(ctx context.Context) error { return nil },
			Compensate: func(ctx context.Context) error {
				return errors.New("compensation broke too")
			},
		},
		Step{
			Name: "second",
			Run:  func(ctx context.Context) error { return boom },
		},
	)

	err := seq.Execute(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestSequenceSkipsNilCompensation(t *testing.T) {
	var calls []string
	boom := errors.New("boom")
	seq := NewSequence("fails", nil,
		Step{
			Name: "first",
			Run: func(ctx context.Context) error {
				calls = append(calls, "run:first")
				return nil
			},
		},
		step("second", &calls, boom),
	)

	require.Error(t, seq.Execute(context.Background()))
	assert.Equal(t, []string{"run:first", "run:second"}, calls)
}

func TestBestEffortReportsAppliedSteps(t *testing.T) {
	var calls []string
	boom := errors.New("boom")
	seq := NewBestEffort("partial", nil,
		step("first", &calls, nil),
		step("second", &calls, boom),
		step("third", &calls, nil),
	)

	err := seq.Execute(context.Background())
	var partial *PartialError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, "second", partial.Step)
	assert.Equal(t, []string{"first"}, partial.Applied)
	assert.ErrorIs(t, partial, boom)

	// No compensation and no third step.
	assert.Equal(t, []string{"run:first", "run:second"}, calls)
}

func TestBestEffortFirstStepFailureHasNothingApplied(t *testing.T) {
	var calls []string
	boom := errors.New("boom")
	seq := NewBestEffort("partial", nil,
		step("only", &calls, boom),
	)

	err := seq.Execute(context.Background())
	var partial *PartialError
	require.ErrorAs(t, err, &partial)
	assert.Empty(t, partial.Applied)
}
