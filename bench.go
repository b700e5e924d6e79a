package main

import (
	"log"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	FrameRate      = 60 // frame callbacks per second driving the runner
	BroadcastRate  = 30 // state broadcasts per second
	FrameDuration  = time.Second / FrameRate
	BroadcastEvery = FrameRate / BroadcastRate

	sampleEvery          = FrameRate // one persisted sample per second
	maxViewersPerSession = 50
)

// Broadcaster is the outbound side of a connected client.
type Broadcaster interface {
	SendJSON(msg interface{})
	SendBinary(data []byte)
}

// Bench hosts one benchmark: a simulation, its fixed-timestep runner,
// and the viewers watching it. The frame ticker goroutine is the only
// thing that touches the runner; everything else goes through the
// command queue or takes mu.
type Bench struct {
	mu      sync.Mutex
	sim     *Simulation
	runner  *Runner
	queue   *CommandQueue
	viewers map[string]Broadcaster
	frame   uint64
	running bool
	stop    chan struct{}

	rec   *Recorder // nil when persistence is disabled
	runID int64
}

// NewBench creates a benchmark with the default initial population
// queued for the first frame.
func NewBench(cfg SimConfig, rec *Recorder) (*Bench, error) {
	sim, err := NewSimulation(cfg)
	if err != nil {
		return nil, err
	}
	queue := &CommandQueue{}
	queue.Push(Command{
		Kind:   CmdSpawn,
		Count:  DefaultSpawnCount,
		Radius: DefaultSpawnRadius,
		Speed:  DefaultSpawnSpeed,
	})
	return &Bench{
		sim:     sim,
		runner:  NewRunner(sim, queue),
		queue:   queue,
		viewers: make(map[string]Broadcaster),
		stop:    make(chan struct{}),
		rec:     rec,
	}, nil
}

// Run drives the frame loop until Stop.
func (b *Bench) Run() {
	b.mu.Lock()
	b.running = true
	b.mu.Unlock()

	if b.rec != nil {
		b.runID = b.rec.StartRun()
	}

	ticker := time.NewTicker(FrameDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !b.step(time.Now()) {
				return
			}
		case <-b.stop:
			return
		}
	}
}

// step runs one frame callback. Returns false when the bench must halt.
func (b *Bench) step(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	fs, err := b.runner.OnFrame(now)
	if err != nil {
		// Only an unknown command kind lands here; the wire layer already
		// rejects unknown ops, so this is a programmer error.
		log.Printf("bench: tick failed: %v", err)
		b.haltLocked()
		return false
	}
	b.frame++

	if b.frame%BroadcastEvery == 0 && len(b.viewers) > 0 {
		b.broadcastLocked(fs)
	}
	if b.rec != nil && b.frame%sampleEvery == 0 {
		b.rec.Sample(b.runID, b.sim.World().Count(), b.sim.World().CellSize(), b.runner.Metrics().Snapshot())
	}
	return true
}

// broadcastLocked msgpack-encodes the frame state and fans it out.
func (b *Bench) broadcastLocked(fs FrameState) {
	state := BenchState{
		Width:    b.sim.World().Width(),
		Height:   b.sim.World().Height(),
		CellSize: b.sim.World().CellSize(),
		Frame:    b.frame,
		Preview:  fs.Preview,
		Entities: make([]EntityState, 0, len(fs.Entities)),
		Metrics:  b.runner.Metrics().Snapshot(),
	}
	for i := range fs.Entities {
		e := &fs.Entities[i]
		es := EntityState{ID: e.ID, HasBody: e.HasBody()}
		if es.HasBody {
			es.X = e.Body.X
			es.Y = e.Body.Y
			es.VX = e.Body.VX
			es.VY = e.Body.VY
			es.Radius = e.Body.Radius
		}
		state.Entities = append(state.Entities, es)
	}

	data, err := msgpack.Marshal(state)
	if err != nil {
		log.Printf("bench: marshal state: %v", err)
		return
	}
	for _, v := range b.viewers {
		v.SendBinary(data)
	}
}

// Stop terminates the frame loop.
func (b *Bench) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.haltLocked()
}

func (b *Bench) haltLocked() {
	if !b.running {
		return
	}
	b.running = false
	close(b.stop)
	if b.rec != nil {
		b.rec.FinishRun(b.runID, b.sim.World().Count(), b.runner.Metrics().Snapshot())
	}
}

// Enqueue queues a simulation command for the next frame.
func (b *Bench) Enqueue(cmd Command) {
	b.queue.Push(cmd)
}

// SetTickRate switches the fixed tick rate.
func (b *Bench) SetTickRate(rate int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.runner.SetTickRate(rate)
}

// SetSmoothing toggles preview interpolation.
func (b *Bench) SetSmoothing(on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.runner.SetSmoothing(on)
}

// AddViewer subscribes a client to state broadcasts. Returns false when
// the session is full.
func (b *Bench) AddViewer(id string, v Broadcaster) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.viewers) >= maxViewersPerSession {
		return false
	}
	b.viewers[id] = v
	return true
}

// RemoveViewer unsubscribes a client.
func (b *Bench) RemoveViewer(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.viewers, id)
}

// ViewerCount returns the number of subscribed clients.
func (b *Bench) ViewerCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.viewers)
}

// BodyCount returns the current entity count.
func (b *Bench) BodyCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sim.World().Count()
}
