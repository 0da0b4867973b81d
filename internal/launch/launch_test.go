package launch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"granparallel/internal/granularity"
)

func TestParseArgsDefaults(t *testing.T) {
	cfg, err := ParseArgs([]string{"granparallel"})
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestParseArgsFlags(t *testing.T) {
	cfg, err := ParseArgs([]string{
		"granparallel",
		"-proc", "4",
		"-kappa-usec", "250",
		"-estimator-init", "0.5",
		"-sequential-baseline",
		"-sequential-elision",
	})
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Proc)
	assert.EqualValues(t, 250, cfg.KappaUsec)
	assert.Equal(t, 0.5, cfg.EstimatorInit)
	assert.True(t, cfg.SequentialBaseline)
	assert.True(t, cfg.SequentialElision)
}

func TestParseArgsRejectsNonPositiveProc(t *testing.T) {
	_, err := ParseArgs([]string{"granparallel", "-proc", "0"})
	assert.Error(t, err, "ParseArgs must reject proc=0")
}

func TestLaunchRunsFullLifecycleInOrder(t *testing.T) {
	var order []string
	var gotState any = "seeded"

	err := Launch(context.Background(), []string{"granparallel", "-proc", "2"}, nil,
		func(ctx context.Context, rt *granularity.Runtime, cfg Config) (any, error) {
			order = append(order, "init")
			return gotState, nil
		},
		func(ctx context.Context, s any, sequential bool) error {
			assert.Equal(t, gotState, s)
			order = append(order, "run")
			return nil
		},
		func(s any) error {
			order = append(order, "output")
			return nil
		},
		func(s any) error {
			order = append(order, "destroy")
			return nil
		},
	)
	require.NoError(t, err)

	// init and destroy are strictly sequential relative to run; output is
	// the only phase whose own internal ordering (caller output vs. the
	// stats log) is not observed here.
	require.Len(t, order, 5)
	assert.Equal(t, "init", order[0])
	assert.Equal(t, "run", order[1])
	assert.Equal(t, "run", order[2])
	assert.Equal(t, "output", order[3])
	assert.Equal(t, "destroy", order[4])
}

func TestLaunchStopsAtFirstFailingPhase(t *testing.T) {
	boom := errors.New("boom")
	ran := false
	err := Launch(context.Background(), []string{"granparallel"}, nil,
		func(ctx context.Context, rt *granularity.Runtime, cfg Config) (any, error) {
			return nil, boom
		},
		func(ctx context.Context, s any, sequential bool) error {
			ran = true
			return nil
		},
		func(s any) error { return nil },
		func(s any) error { return nil },
	)
	assert.Error(t, err, "Launch must surface the init error")
	assert.False(t, ran, "run must not execute after init fails")
}
