package sim

import (
	"log/slog"

	"github.com/pthm-cable/froth/pressure"
	"github.com/pthm-cable/froth/telemetry"
)

// StepStats summarizes one completed frame.
type StepStats struct {
	Frame          int32
	Replayed       bool
	Solver         pressure.Result
	MaxDivergence  float64 // post-projection, over FLUID cells, 1/s
	CorrectedBy    int     // escaped particles used by surface correction
	BubblesSpawned int
	Particles      int
	Bubbles        int
	VolumeError    float64
	FluidFraction  float64
}

// LogValue implements slog.LogValuer for structured logging.
func (s StepStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("frame", int(s.Frame)),
		slog.Bool("replayed", s.Replayed),
		slog.Any("solver", s.Solver),
		slog.Float64("max_divergence", s.MaxDivergence),
		slog.Int("corrected_by", s.CorrectedBy),
		slog.Int("bubbles_spawned", s.BubblesSpawned),
		slog.Int("particles", s.Particles),
		slog.Int("bubbles", s.Bubbles),
		slog.Float64("volume_error", s.VolumeError),
	)
}

// Record converts stats for the frame just stepped into a frames.csv row.
func (s *Simulation) Record(st StepStats) telemetry.FrameStats {
	live := s.front.Bubbles.Alive()
	radii := make([]float64, len(live))
	for i, b := range live {
		radii[i] = float64(b.Radius)
	}

	fs := telemetry.FrameStats{
		Frame:            st.Frame,
		SimTime:          s.time,
		SolverConverged:  st.Solver.Converged,
		SolverResidual:   st.Solver.Residual,
		SolverIterations: st.Solver.Iterations,
		MaxDivergence:    st.MaxDivergence,
		FluidFraction:    st.FluidFraction,
		VolumeError:      st.VolumeError,
		Particles:        st.Particles,
		CorrectedBy:      st.CorrectedBy,
		BubblesSpawned:   st.BubblesSpawned,
		Bubbles:          st.Bubbles,
		BubblePoolSize:   s.front.Bubbles.Len(),
		ParticlePoolSize: s.particles.Len(),
	}
	fs.SetBubbleRadii(radii)
	return fs
}
