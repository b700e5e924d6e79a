package main

import "time"

// FrameState is what a frame hands to the renderer: either the live
// authoritative entities or an interpolated preview copy.
type FrameState struct {
	Entities []Entity
	Preview  bool
}

// Runner converts externally-driven frame callbacks into whole fixed
// ticks via an accumulator. It is the command queue's single reader.
// Not safe for concurrent OnFrame calls; one goroutine drives it.
type Runner struct {
	sim     *Simulation
	queue   *CommandQueue
	metrics Metrics

	tickRate  int
	smoothing bool

	started  bool
	lastTime time.Time
	acc      float64
}

// NewRunner wires a runner to its simulation and command queue.
func NewRunner(sim *Simulation, queue *CommandQueue) *Runner {
	return &Runner{
		sim:      sim,
		queue:    queue,
		tickRate: DefaultTickRate,
	}
}

// SetTickRate changes the fixed tick rate. Non-positive rates are
// ignored.
func (r *Runner) SetTickRate(rate int) {
	if rate > 0 {
		r.tickRate = rate
	}
}

// TickRate returns the current fixed tick rate.
func (r *Runner) TickRate() int { return r.tickRate }

// SetSmoothing toggles preview interpolation of leftover frame time.
func (r *Runner) SetSmoothing(on bool) { r.smoothing = on }

// Smoothing reports whether preview interpolation is on.
func (r *Runner) Smoothing() bool { return r.smoothing }

// Metrics returns the runner's timing metrics.
func (r *Runner) Metrics() *Metrics { return &r.metrics }

// OnFrame advances the simulation by however many whole ticks the
// elapsed wall-clock time covers and returns the state to render.
// Pending commands are drained once and applied on the first sub-tick;
// a frame that runs zero ticks still flushes them through a zero-dt
// tick so commands are never dropped. With smoothing on, leftover
// accumulator time becomes a speculative preview that never touches
// authoritative state.
func (r *Runner) OnFrame(now time.Time) (FrameState, error) {
	if !r.started {
		r.started = true
		r.lastTime = now
	}
	delta := now.Sub(r.lastTime).Seconds()
	r.lastTime = now
	r.acc += delta
	r.metrics.RecordFrame(delta)

	interval := 1 / float64(r.tickRate)
	var cmds []Command
	drained := false
	ticked := false

	for r.acc >= interval {
		if !drained {
			cmds = r.queue.Drain()
			drained = true
		}
		if err := r.runTick(cmds, interval); err != nil {
			return FrameState{}, err
		}
		cmds = nil // later sub-ticks get an empty batch
		ticked = true
		r.acc -= interval
	}

	if !ticked && r.queue.Len() > 0 {
		// No physics step this frame, but commands must still apply.
		if err := r.runTick(r.queue.Drain(), 0); err != nil {
			return FrameState{}, err
		}
	}

	if r.smoothing && r.acc > 0 {
		return FrameState{Entities: r.sim.Preview(r.acc), Preview: true}, nil
	}
	return FrameState{Entities: r.sim.State().Entities}, nil
}

func (r *Runner) runTick(cmds []Command, dt float64) error {
	start := time.Now()
	err := r.sim.Tick(cmds, dt)
	r.metrics.RecordTick(time.Now(), time.Since(start))
	return err
}

// Accumulator exposes the leftover fraction for tests.
func (r *Runner) Accumulator() float64 { return r.acc }
