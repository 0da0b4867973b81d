// Command granparallel is the thinnest possible proof that launch works:
// it wires CLI configuration to a granularity.Runtime and runs the
// Bellman-Ford collaborator's shortest-paths demo through init/run/
// output/destroy, mirroring how the teacher's cmd/server wires a
// listener to the job scheduler and nothing more.
package main

import (
	"context"
	"os"

	"go.uber.org/zap"

	"granparallel/internal/bellmanford"
	"granparallel/internal/granularity"
	"granparallel/internal/graph"
	"granparallel/internal/launch"
	"granparallel/internal/policy"
)

// demoState is the state threaded through launch's init/run/output/
// destroy callbacks: the runtime, the graph under test, the policy, and
// the distances computed by the two timed Run passes.
type demoState struct {
	rt       *granularity.Runtime
	g        *graph.Graph
	pol      *policy.ByCmdline
	parallel []float64
	serial   []float64
}

func buildDemoGraph() *graph.Graph {
	g := graph.New(4)
	g.AddEdge(0, 1, 2)
	g.AddEdge(1, 2, 3)
	g.AddEdge(2, 3, 1)
	g.AddEdge(0, 3, 10)
	return g
}

func initDemo(ctx context.Context, rt *granularity.Runtime, cfg launch.Config) (any, error) {
	pol := policy.NewByCmdline("bellmanford")
	pol.Initialize(cfg.EstimatorInit)
	return &demoState{rt: rt, g: buildDemoGraph(), pol: pol}, nil
}

func runDemo(ctx context.Context, s any, sequential bool) error {
	st := s.(*demoState)
	if sequential {
		if err := st.pol.Set(policy.SelectorForceSequential); err != nil {
			return err
		}
		st.serial = bellmanford.ShortestPaths(ctx, st.rt, st.pol, st.g, 0)
		return nil
	}
	if err := st.pol.Set(policy.SelectorByPrediction); err != nil {
		return err
	}
	st.parallel = bellmanford.ShortestPaths(ctx, st.rt, st.pol, st.g, 0)
	return nil
}

func outputDemo(logger *zap.SugaredLogger) launch.OutputFunc {
	return func(s any) error {
		st := s.(*demoState)
		logger.Infow("shortest paths computed", "parallel", st.parallel, "serial", st.serial)
		return nil
	}
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	err = launch.Launch(context.Background(), os.Args, sugar,
		initDemo,
		runDemo,
		outputDemo(sugar),
		func(s any) error { return nil },
	)
	if err != nil {
		sugar.Fatalw("granparallel: fatal", "err", err)
	}
}
