// Package simulator provides parallel parameter sweeps.
package simulator

import (
	"context"
	"runtime"
	"sync"

	"github.com/replaylab/sim-backend/pkg/types"
	"go.uber.org/zap"
)

// SweepResult pairs one parameter set with its run outcome. Failed sets
// carry the validation error message instead of a result.
type SweepResult struct {
	Index  int                     `json:"index"`
	Result *types.SimulationResult `json:"result,omitempty"`
	Error  string                  `json:"error,omitempty"`
}

// RunSweep replays every parameter set against the same read-only series
// with bounded concurrency. Runs share no state, so ordering between
// them does not matter; results come back in input order. workers <= 0
// defaults to the number of CPUs.
func (e *Engine) RunSweep(ctx context.Context, paramSets []types.SimulationParams, series []types.PricePoint, workers int) ([]SweepResult, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(paramSets) {
		workers = len(paramSets)
	}

	results := make([]SweepResult, len(paramSets))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i := range paramSets {
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil, ctx.Err()
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			res, err := e.Run(paramSets[idx], series)
			if err != nil {
				e.logger.Warn("Sweep run failed",
					zap.Int("index", idx),
					zap.Error(err),
				)
				results[idx] = SweepResult{Index: idx, Error: err.Error()}
				return
			}
			results[idx] = SweepResult{Index: idx, Result: res}
		}(i)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
