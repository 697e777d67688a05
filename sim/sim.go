// Package sim runs the per-frame fluid pipeline over a double-buffered state.
package sim

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/froth/config"
	"github.com/pthm-cable/froth/grid"
	"github.com/pthm-cable/froth/levelset"
	"github.com/pthm-cable/froth/parallel"
	"github.com/pthm-cable/froth/particles"
	"github.com/pthm-cable/froth/pressure"
	"github.com/pthm-cable/froth/shapes"
	"github.com/pthm-cable/froth/state"
	"github.com/pthm-cable/froth/telemetry"
	"github.com/pthm-cable/froth/velocity"
)

// Options holds everything a Simulation needs besides its initial state.
type Options struct {
	DT        float64
	Gravity   float64 // m/s² along -y
	Scheme    velocity.Scheme
	Solver    pressure.Solver
	Particles particles.Params
	Seed      int64
	Workers   int // <= 0 uses GOMAXPROCS
}

// Simulation owns a front state (the last completed frame) and a back state
// that each step writes before the two are swapped.
type Simulation struct {
	opts Options

	front, back *state.State
	particles   *particles.Tracker
	pool        *parallel.Pool
	perf        *telemetry.PerfCollector
	onFrame     func(*state.State, StepStats)

	div      *grid.Scalar
	pressure *grid.Scalar
	sliceMax []float64

	time float64
}

// New creates a simulation starting from initial. initial becomes the front
// buffer; the back buffer is a deep copy.
func New(initial *state.State, opts Options) *Simulation {
	w, h, d := initial.Dims()
	if opts.Solver == nil {
		opts.Solver = pressure.NewPCG(200, 1e-4, nil)
	}
	s := &Simulation{
		opts:      opts,
		front:     initial,
		back:      initial.Clone(),
		particles: particles.NewTracker(w, h, d, opts.Particles, opts.Seed),
		pool:      parallel.NewPool(opts.Workers),
		div:       grid.NewScalar(w, h, d),
		pressure:  grid.NewScalar(w, h, d),
		sliceMax:  make([]float64, d),
	}
	s.particles.Reinitialize(initial.LevelSet)
	return s
}

// FromConfig builds the configured scene, solver and trackers. workers <= 0
// uses GOMAXPROCS.
func FromConfig(cfg *config.Config, workers int) (*Simulation, error) {
	g := cfg.Grid
	scene, err := shapes.Scene(g.Width, g.Height, g.Depth, shapes.SceneOptions{
		Kind:           cfg.Scene.Kind,
		FillHeight:     cfg.Scene.FillHeight,
		DropRadius:     cfg.Scene.DropRadius,
		NoiseAmplitude: cfg.Scene.NoiseAmplitude,
		NoiseScale:     cfg.Scene.NoiseScale,
		Seed:           cfg.Scene.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("building scene: %w", err)
	}

	scheme, err := velocity.ParseScheme(cfg.Advection.Scheme)
	if err != nil {
		return nil, err
	}

	ls := levelset.New(g.Width, g.Height, g.Depth, scene, cfg.Derived.Bound32)
	initial := state.New(ls, g.CellSize)

	opts := Options{
		DT:      cfg.Physics.DT,
		Gravity: cfg.Physics.Gravity,
		Scheme:  scheme,
		Particles: particles.Params{
			BandWidth:   float32(cfg.Particles.BandWidth),
			PerCell:     cfg.Particles.PerCell,
			MinRadius:   float32(cfg.Particles.MinRadius),
			MaxRadius:   float32(cfg.Particles.MaxRadius),
			BubbleScale: float32(cfg.Bubbles.RadiusScale),
		},
		Seed:    cfg.Particles.Seed,
		Workers: workers,
	}
	s := New(initial, opts)

	iterations := cfg.Pressure.Iterations
	if pressure.Kind(cfg.Pressure.Solver) == pressure.KindPCG {
		iterations = cfg.Pressure.MaxIterations
	}
	solver, err := pressure.New(pressure.Options{
		Kind:       pressure.Kind(cfg.Pressure.Solver),
		Iterations: iterations,
		Tolerance:  cfg.Pressure.Tolerance,
	}, g.Width, g.Height, g.Depth, s.pool)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.opts.Solver = solver

	return s, nil
}

// SetPerf attaches a phase timer. nil disables timing.
func (s *Simulation) SetPerf(p *telemetry.PerfCollector) { s.perf = p }

// OnFrame registers fn to run after every completed frame, inside the timed
// output phase. fn sees the new front state and must not keep it past return.
func (s *Simulation) OnFrame(fn func(*state.State, StepStats)) { s.onFrame = fn }

// State returns the last completed frame. Callers must not mutate it.
func (s *Simulation) State() *state.State { return s.front }

// Particles returns a copy of the live marker particles.
func (s *Simulation) Particles() []particles.Particle { return s.particles.Alive() }

// Pressure returns the most recent pressure solution.
func (s *Simulation) Pressure() *grid.Scalar { return s.pressure }

// Time returns the simulated time in seconds.
func (s *Simulation) Time() float64 { return s.time }

// Close stops the worker pool.
func (s *Simulation) Close() { s.pool.Stop() }

func (s *Simulation) phase(name string) { s.perf.StartPhase(name) }

// Step advances one frame through the fixed pipeline.
func (s *Simulation) Step() StepStats {
	s.perf.StartTick()
	defer s.perf.EndTick()

	front, back := s.front, s.back
	dt := s.opts.DT
	cells := front.LevelSet.Cells

	// (1) advect velocity, add body force, close solid faces
	s.phase(telemetry.PhaseAdvect)
	velocity.Advect(back.Velocity, front.Velocity, dt, s.opts.Scheme, s.pool)
	s.applyGravity(back.Velocity, cells, dt)
	s.enforceSolids(back.Velocity, cells)

	// (2) divergence
	s.phase(telemetry.PhaseDivergence)
	s.computeDivergence(back.Velocity, cells)

	// (3) pressure
	s.phase(telemetry.PhasePressure)
	res := s.opts.Solver.Solve(s.div, cells, s.pressure, dt, back.Velocity.Dx)
	if !res.Converged {
		slog.Warn("pressure solve did not converge", "frame", front.Frame+1, "result", res)
	}

	// (4) projection
	s.phase(telemetry.PhaseProject)
	s.project(back.Velocity, cells, dt)
	maxDiv := s.maxDivergence(back.Velocity, cells)

	// (5) move and repair the free surface
	s.phase(telemetry.PhaseSurface)
	corrected := s.advanceSurface(front.LevelSet, back.LevelSet, back.Velocity, dt)

	// (6) (7) particles and bubbles
	stats := s.finishFrame(back, dt)
	stats.Solver = res
	stats.MaxDivergence = maxDiv
	stats.CorrectedBy = corrected
	s.emit(stats)
	return stats
}

// Replay takes velocity and surface from cached in place of steps (1) to (4)
// and the surface transport of step (5). The cached surface is taken as
// already reinitialized; the particles are advected through the cached
// velocity and still correct it. Steps (6) to (8) run fresh, so bubbles never
// replay stale. Bubbles stored in cached are ignored.
func (s *Simulation) Replay(cached *state.State) (StepStats, error) {
	w, h, d := s.front.Dims()
	cw, ch, cd := cached.Dims()
	if cw != w || ch != h || cd != d {
		return StepStats{}, fmt.Errorf("%w: cached %dx%dx%d, simulation %dx%dx%d",
			levelset.ErrDimensionMismatch, cw, ch, cd, w, h, d)
	}

	s.perf.StartTick()
	defer s.perf.EndTick()

	back := s.back
	s.phase(telemetry.PhaseSurface)
	back.Velocity.CopyFrom(cached.Velocity)
	back.LevelSet.CopyFrom(cached.LevelSet)
	s.particles.Advect(back.Velocity, s.opts.DT)
	corrected := s.particles.Correct(back.LevelSet.Phi)
	back.LevelSet.Reclassify()

	stats := s.finishFrame(back, s.opts.DT)
	stats.Replayed = true
	stats.Solver = pressure.Result{Converged: true}
	stats.CorrectedBy = corrected
	s.emit(stats)
	return stats, nil
}

// finishFrame runs the particle reseed, bubble feed and advection phases on
// back, then swaps buffers.
func (s *Simulation) finishFrame(back *state.State, dt float64) StepStats {
	// (6) reseed and cull
	s.phase(telemetry.PhaseParticles)
	s.particles.Reinitialize(back.LevelSet)

	// (7) bubbles
	s.phase(telemetry.PhaseBubbles)
	back.Bubbles.Restore(s.front.Bubbles.Slots(), s.front.Bubbles.NextID)
	spawned := s.particles.FeedEscaped(back.Bubbles, back.LevelSet.Phi, back.Velocity)
	back.Bubbles.Advect(back.Velocity, gravityVec(s.opts.Gravity), dt)

	// (8) swap
	back.Frame = s.front.Frame + 1
	s.front, s.back = back, s.front
	s.time += dt

	return StepStats{
		Frame:          back.Frame,
		BubblesSpawned: spawned,
		Particles:      s.particles.Count(),
		Bubbles:        back.Bubbles.Count(),
		VolumeError:    float64(back.LevelSet.VolumeError()),
		FluidFraction:  float64(back.LevelSet.CurrentVolume),
	}
}

func (s *Simulation) emit(stats StepStats) {
	if s.onFrame == nil {
		return
	}
	s.phase(telemetry.PhaseOutput)
	s.onFrame(s.front, stats)
}

// advanceSurface transports the distance field and the particles through the
// projected velocity, reinitializes, and applies particle correction. Returns
// the number of escaped particles used.
func (s *Simulation) advanceSurface(src, dst *levelset.LevelSet, vel *velocity.Field, dt float64) int {
	dst.Cells.CopyFrom(src.Cells)
	dst.TargetVolume = src.TargetVolume
	dst.Bound = src.Bound

	velocity.AdvectScalar(dst.Phi, src.Phi, vel, dt, s.opts.Scheme, s.pool)
	for i, t := range dst.Cells.Data {
		if t == levelset.Solid {
			dst.Phi.Data[i] = src.Phi.Data[i]
		}
	}
	s.particles.Advect(vel, dt)

	dst.Reinitialize()
	n := s.particles.Correct(dst.Phi)
	dst.Reclassify()
	return n
}
