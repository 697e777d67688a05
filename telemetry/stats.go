package telemetry

import (
	"log/slog"
	"sort"
)

// FrameStats is one row of frames.csv.
type FrameStats struct {
	Frame   int32   `csv:"frame"`
	SimTime float64 `csv:"sim_time"`

	// Pressure solve
	SolverConverged  bool    `csv:"solver_converged"`
	SolverResidual   float64 `csv:"solver_residual"`
	SolverIterations int     `csv:"solver_iterations"`
	MaxDivergence    float64 `csv:"max_divergence"` // post-projection, over FLUID cells

	// Free surface
	FluidFraction float64 `csv:"fluid_fraction"`
	VolumeError   float64 `csv:"volume_error"` // target minus current

	// Pools
	Particles        int `csv:"particles"`
	CorrectedBy      int `csv:"corrected_by"` // escaped particles used in correction
	BubblesSpawned   int `csv:"bubbles_spawned"`
	Bubbles          int `csv:"bubbles"`
	BubblePoolSize   int `csv:"bubble_pool"`
	ParticlePoolSize int `csv:"particle_pool"`

	// Bubble radius distribution
	BubbleRadiusMean float64 `csv:"bubble_radius_mean"`
	BubbleRadiusP10  float64 `csv:"bubble_radius_p10"`
	BubbleRadiusP50  float64 `csv:"bubble_radius_p50"`
	BubbleRadiusP90  float64 `csv:"bubble_radius_p90"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// Distribution calculates mean and percentiles of values.
func Distribution(values []float64) (mean, p10, p50, p90 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(n)

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = Percentile(sorted, 0.10)
	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)

	return mean, p10, p50, p90
}

// SetBubbleRadii fills the bubble radius distribution columns.
func (s *FrameStats) SetBubbleRadii(radii []float64) {
	s.BubbleRadiusMean, s.BubbleRadiusP10, s.BubbleRadiusP50, s.BubbleRadiusP90 = Distribution(radii)
}

// LogValue implements slog.LogValuer for structured logging.
func (s FrameStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("frame", int(s.Frame)),
		slog.Float64("sim_time", s.SimTime),
		slog.Bool("solver_converged", s.SolverConverged),
		slog.Float64("solver_residual", s.SolverResidual),
		slog.Int("solver_iterations", s.SolverIterations),
		slog.Float64("max_divergence", s.MaxDivergence),
		slog.Float64("fluid_fraction", s.FluidFraction),
		slog.Float64("volume_error", s.VolumeError),
		slog.Int("particles", s.Particles),
		slog.Int("corrected_by", s.CorrectedBy),
		slog.Int("bubbles_spawned", s.BubblesSpawned),
		slog.Int("bubbles", s.Bubbles),
		slog.Float64("bubble_radius_p50", s.BubbleRadiusP50),
	)
}

// LogStats logs the frame stats using slog.
func (s FrameStats) LogStats() {
	slog.Info("frame",
		"frame", s.Frame,
		"sim_time", s.SimTime,
		"converged", s.SolverConverged,
		"residual", s.SolverResidual,
		"iterations", s.SolverIterations,
		"max_divergence", s.MaxDivergence,
		"volume_error", s.VolumeError,
		"particles", s.Particles,
		"bubbles", s.Bubbles,
		"bubbles_spawned", s.BubblesSpawned,
	)
}
