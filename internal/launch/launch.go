// Package launch is the host entry point described by spec §6: it parses
// runtime arguments, builds the worker pool, and runs a caller-supplied
// init/run/output/destroy lifecycle against it. The Runtime holds no
// goroutines or OS resources of its own, so nothing is torn down after
// destroy.
// It is intentionally thin — algorithms live elsewhere; this package only
// wires configuration to a *granularity.Runtime and sequences the four
// lifecycle callbacks, matching how the teacher's cmd/server wires a
// listener to the job scheduler and nothing more.
package launch

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"granparallel/internal/granularity"
	"granparallel/internal/util"
)

// Config holds the launch-time configuration options of spec §6,
// renamed to kebab-case CLI flags; all are optional with the defaults
// below.
type Config struct {
	Proc               int
	KappaUsec          int64
	EstimatorInit      float64
	SequentialBaseline bool
	SequentialElision  bool
}

// DefaultConfig matches Runtime's own zero-value defaults (100us kappa,
// proc=1) so a Config built without CLI parsing still behaves sanely.
func DefaultConfig() Config {
	return Config{Proc: 1, KappaUsec: 100}
}

// ParseArgs parses launch's CLI arguments per spec §6's Configuration
// options table. args[0] is the conventional program name, as with
// os.Args.
func ParseArgs(args []string) (Config, error) {
	cfg := DefaultConfig()
	app := &cli.App{
		Name:  "granparallel",
		Usage: "run a granularity-adaptive parallel algorithm",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "proc", Value: cfg.Proc, Usage: "worker-pool size"},
			&cli.Int64Flag{Name: "kappa-usec", Value: cfg.KappaUsec, Usage: "kappa threshold for by-prediction, in microseconds"},
			&cli.Float64Flag{Name: "estimator-init", Value: 0, Usage: "seed K for all reporting estimators"},
			&cli.BoolFlag{Name: "sequential-baseline", Usage: "force every cstmt to its sequential body"},
			&cli.BoolFlag{Name: "sequential-elision", Usage: "force fork2 to run children in caller order"},
		},
		Action: func(c *cli.Context) error {
			cfg.Proc = c.Int("proc")
			cfg.KappaUsec = c.Int64("kappa-usec")
			cfg.EstimatorInit = c.Float64("estimator-init")
			cfg.SequentialBaseline = c.Bool("sequential-baseline")
			cfg.SequentialElision = c.Bool("sequential-elision")
			return nil
		},
	}
	if err := app.Run(args); err != nil {
		return Config{}, errors.Wrap(err, "launch: parse arguments")
	}
	if cfg.Proc <= 0 {
		return Config{}, errors.Errorf("launch: proc must be positive, got %d", cfg.Proc)
	}
	return cfg, nil
}

// InitFunc builds algorithm-owned state against the freshly constructed
// runtime. cfg.EstimatorInit is the seed the spec's estimator_init option
// names ("seed K for all reporting estimators"); launch owns no policy
// objects itself, so it is InitFunc's job to call Initialize(cfg.EstimatorInit)
// on whichever reporting policies it constructs. InitFunc's return value
// is threaded through Run/Output/Destroy.
type InitFunc func(ctx context.Context, rt *granularity.Runtime, cfg Config) (any, error)

// RunFunc executes one timed pass of the algorithm. sequential is true
// for the baseline comparison pass (run under SEQUENTIAL_BASELINE-style
// semantics); RunFunc itself decides how to honor that — launch does not
// reconfigure the runtime mid-flight.
type RunFunc func(ctx context.Context, state any, sequential bool) error

// OutputFunc reports the algorithm's result after both Run passes.
type OutputFunc func(state any) error

// DestroyFunc releases algorithm-owned resources as the last phase of
// Launch.
type DestroyFunc func(state any) error

// Launch runs the full host lifecycle of spec §6: parse args, build the
// runtime, init, run (parallel then sequential, each pass's elapsed time
// logged), output,
// destroy. init/run/destroy are strictly sequential — each depends on
// the previous phase's result, so there is nothing to fan out there.
// output is different: the caller's OutputFunc and this package's own
// runtime-diagnostics log are independent of each other, so they run
// concurrently under one errgroup, and a failure in either cancels the
// derived context the other observes (see runOutputPhase).
func Launch(ctx context.Context, args []string, logger *zap.SugaredLogger, init InitFunc, run RunFunc, output OutputFunc, destroy DestroyFunc) error {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	logger = logger.With("run_id", util.NewRunID())
	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, a ...any) { logger.Debugf(format, a...) })); err != nil {
		logger.Warnw("launch: GOMAXPROCS discipline unavailable", "err", err)
	}

	cfg, err := ParseArgs(args)
	if err != nil {
		return err
	}

	rt := granularity.NewRuntime(cfg.Proc,
		granularity.WithKappa(time.Duration(cfg.KappaUsec)*time.Microsecond),
		granularity.WithSequentialBaseline(cfg.SequentialBaseline),
		granularity.WithSequentialElision(cfg.SequentialElision),
		granularity.WithLogger(logger),
	)
	ctx = granularity.RootContext(ctx)

	var state any
	if err := phase("init", func() error {
		var err error
		state, err = init(ctx, rt, cfg)
		return err
	}); err != nil {
		return err
	}

	for _, sequential := range []bool{false, true} {
		sequential := sequential
		label := fmt.Sprintf("run(sequential=%v)", sequential)
		start := time.Now()
		if err := phase(label, func() error {
			return run(ctx, state, sequential)
		}); err != nil {
			return err
		}
		logger.Infow("run pass finished", "sequential", sequential, "elapsed", time.Since(start))
	}

	if err := runOutputPhase(ctx, rt, logger, output, state); err != nil {
		return err
	}

	return phase("destroy", func() error {
		return destroy(state)
	})
}

// runOutputPhase runs the caller's OutputFunc alongside a runtime-stats
// log line, under one errgroup.WithContext: whichever finishes first
// with an error cancels gctx, and the stats log checks gctx before
// writing so a failing OutputFunc suppresses a diagnostic that would
// otherwise race it to the log.
func runOutputPhase(ctx context.Context, rt *granularity.Runtime, logger *zap.SugaredLogger, output OutputFunc, state any) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return output(state) })
	g.Go(func() error { return logStats(gctx, rt, logger) })
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "launch: output")
	}
	return nil
}

func logStats(ctx context.Context, rt *granularity.Runtime, logger *zap.SugaredLogger) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	st := rt.Stats()
	logger.Infow("runtime stats",
		"sequential_leaves", st.SequentialLeaves,
		"sequential_mean_usec", st.SequentialMeanUsec,
		"forked_tasks", st.ForkedTasks,
	)
	return nil
}

func phase(name string, fn func() error) error {
	if err := fn(); err != nil {
		return errors.Wrapf(err, "launch: %s", name)
	}
	return nil
}
