package planner

import "gonum.org/v1/gonum/stat"

// Summary describes the load balance of one schedule.
type Summary struct {
	Blocks int

	// MaxItemBytes is the largest single work item working set, before
	// the extra-memory factor.
	MaxItemBytes int64

	// WorkerBytes is the total working-set bytes assigned per worker.
	WorkerBytes []int64

	MeanWorkerBytes   float64
	StddevWorkerBytes float64

	// Imbalance is max worker load over mean worker load; 1 is perfectly
	// even. Zero when no work was assigned.
	Imbalance float64
}

func summarize(blocks int, maxBytes int64, workerBytes []int64) Summary {
	loads := make([]float64, len(workerBytes))
	var peak float64
	for i, n := range workerBytes {
		loads[i] = float64(n)
		if loads[i] > peak {
			peak = loads[i]
		}
	}

	s := Summary{
		Blocks:          blocks,
		MaxItemBytes:    maxBytes,
		WorkerBytes:     workerBytes,
		MeanWorkerBytes: stat.Mean(loads, nil),
	}
	if len(loads) > 1 {
		s.StddevWorkerBytes = stat.StdDev(loads, nil)
	}
	if s.MeanWorkerBytes > 0 {
		s.Imbalance = peak / s.MeanWorkerBytes
	}
	return s
}
