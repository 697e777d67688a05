package main

import (
	"math"
	"sync"

	"github.com/pthm-cable/froth/config"
	"github.com/pthm-cable/froth/sim"
)

// FitnessEvaluator runs headless simulations and scores volume drift.
type FitnessEvaluator struct {
	params     *ParamVector
	frames     int
	seeds      []int64
	baseConfig *config.Config

	mu          sync.Mutex
	lastDrift   float64 // mean |volume error| from the most recent Evaluate call
	lastCost    float64 // mean live particle count from the most recent Evaluate call
	lastStalled int     // unconverged pressure solves in the most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, frames int, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		frames:     frames,
		seeds:      seeds,
		baseConfig: baseCfg,
	}
}

// Last returns the drift, particle cost and stalled solve count from the most
// recent evaluation.
func (fe *FitnessEvaluator) Last() (drift, cost float64, stalled int) {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastDrift, fe.lastCost, fe.lastStalled
}

// Fitness weights.
const (
	// costWeight charges for particles relative to grid cells, so a larger
	// seeding only wins if it buys real volume accuracy.
	costWeight = 0.01
	// stallPenalty is added per unconverged pressure solve.
	stallPenalty = 0.05
)

// runResult holds the results from a single simulation run.
type runResult struct {
	drift   float64 // mean |volume error| over scored frames
	cost    float64 // mean live particles per cell
	stalled int
	failed  bool
}

// Evaluate computes fitness for a parameter vector (lower = better).
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	results := make([]runResult, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx] = fe.runSimulation(x, s)
		}(i, seed)
	}
	wg.Wait()

	var fitness, drift, cost float64
	stalled := 0
	for _, r := range results {
		if r.failed {
			fitness += 1
			continue
		}
		fitness += r.drift + costWeight*r.cost + stallPenalty*float64(r.stalled)
		drift += r.drift
		cost += r.cost
		stalled += r.stalled
	}

	n := float64(len(fe.seeds))
	fe.mu.Lock()
	fe.lastDrift = drift / n
	fe.lastCost = cost / n
	fe.lastStalled = stalled
	fe.mu.Unlock()

	return fitness / n
}

// runSimulation executes a single headless run and scores the second half of
// its frames, after the surface has settled.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed int64) runResult {
	cfg := *fe.baseConfig
	fe.params.ApplyToConfig(&cfg, x)
	cfg.Particles.Seed = seed
	if cfg.Particles.MinRadius > cfg.Particles.MaxRadius {
		return runResult{failed: true}
	}

	s, err := sim.FromConfig(&cfg, 1)
	if err != nil {
		return runResult{failed: true}
	}
	defer s.Close()

	var r runResult
	scored := 0
	cells := float64(cfg.Grid.Width * cfg.Grid.Height * cfg.Grid.Depth)
	for f := 1; f <= fe.frames; f++ {
		stats := s.Step()
		if !stats.Solver.Converged {
			r.stalled++
		}
		if math.IsNaN(stats.VolumeError) {
			return runResult{failed: true}
		}
		if f <= fe.frames/2 {
			continue
		}
		r.drift += math.Abs(stats.VolumeError)
		r.cost += float64(stats.Particles) / cells
		scored++
	}
	if scored > 0 {
		r.drift /= float64(scored)
		r.cost /= float64(scored)
	}
	return r
}
