package granularity

import (
	"math"
	"sync"
)

// latencyStat is an online mean/variance accumulator (Welford's method),
// adapted from the teacher's per-pool wait/run statistics: here it tracks
// sequential-leaf elapsed times in microseconds, surfaced by
// Runtime.Stats for diagnostics rather than used in any decision.
type latencyStat struct {
	mu   sync.Mutex
	n    int64
	mean float64
	m2   float64
}

func (s *latencyStat) add(x float64) {
	s.mu.Lock()
	s.n++
	delta := x - s.mean
	s.mean += delta / float64(s.n)
	s.m2 += delta * (x - s.mean)
	s.mu.Unlock()
}

func (s *latencyStat) snapshot() (count int64, mean, std float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count, mean = s.n, s.mean
	if s.n > 1 {
		if variance := s.m2 / float64(s.n-1); variance > 0 {
			std = math.Sqrt(variance)
		}
	}
	return
}

// Stats is a diagnostic snapshot of a Runtime's sequential-leaf latency
// distribution and fork2 admission counters.
type Stats struct {
	SequentialLeaves   int64
	SequentialMeanUsec float64
	SequentialStdUsec  float64
	ForkedTasks        int64
}

// Stats returns a point-in-time snapshot, safe to call concurrently with
// ongoing Cstmt/Fork2/ParallelFor activity.
func (r *Runtime) Stats() Stats {
	n, mean, std := r.leafLatency.snapshot()
	return Stats{
		SequentialLeaves:   n,
		SequentialMeanUsec: mean,
		SequentialStdUsec:  std,
		ForkedTasks:        r.forkedTasks.Load(),
	}
}
