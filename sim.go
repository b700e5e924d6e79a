package main

import (
	"fmt"
	"math"
	"math/rand"
)

// SimConfig parameterizes a simulation. Zero values fall back to the
// defaults in constants.go.
type SimConfig struct {
	Width    float64
	Height   float64
	CellSize float64
	Seed     int64
}

func (c SimConfig) withDefaults() SimConfig {
	if c.Width <= 0 {
		c.Width = DefaultWorldWidth
	}
	if c.Height <= 0 {
		c.Height = DefaultWorldHeight
	}
	if c.CellSize <= 0 {
		c.CellSize = DefaultCellSize
	}
	return c
}

// StateView is a read-only view of the authoritative simulation state.
// The entity slice aliases live storage and is valid until the next Tick.
type StateView struct {
	Width    float64
	Height   float64
	CellSize float64
	Entities []Entity
}

// Simulation is the facade the runner drives: it applies command batches,
// advances the world, and exposes authoritative and preview snapshots.
// It owns its rng and id generator, so independent simulations never
// interfere.
type Simulation struct {
	world *World
	rng   *rand.Rand
	ids   *IDGen
}

// NewSimulation builds a simulation from cfg.
func NewSimulation(cfg SimConfig) (*Simulation, error) {
	cfg = cfg.withDefaults()
	world, err := NewWorld(cfg.Width, cfg.Height, cfg.CellSize)
	if err != nil {
		return nil, err
	}
	return &Simulation{
		world: world,
		rng:   rand.New(rand.NewSource(cfg.Seed)),
		ids:   NewIDGen(),
	}, nil
}

// Tick applies the queued commands in order, then advances the world by
// one physics step of dt seconds if dt is positive. An unknown command
// kind is a programmer error and is surfaced immediately; already-applied
// commands stay applied, the world is never left half-mutated.
func (s *Simulation) Tick(cmds []Command, dt float64) error {
	for _, cmd := range cmds {
		if err := s.apply(cmd); err != nil {
			return err
		}
	}
	if dt > 0 {
		s.world.Update(dt)
	}
	return nil
}

func (s *Simulation) apply(cmd Command) error {
	switch cmd.Kind {
	case CmdSpawn:
		s.spawn(cmd.Count, cmd.Radius, cmd.Speed)
	case CmdRemoveHalf:
		s.world.RemoveHalf()
	case CmdAdjustCellSize:
		s.setCellSize(s.world.CellSize() + cmd.Delta)
	case CmdSetCellSize:
		s.setCellSize(cmd.Size)
	case CmdScaleRadius:
		if cmd.Factor > 0 && !math.IsInf(cmd.Factor, 0) && !math.IsNaN(cmd.Factor) {
			s.world.ScaleRadii(cmd.Factor)
		}
	default:
		return fmt.Errorf("unknown command kind %d", cmd.Kind)
	}
	return nil
}

func (s *Simulation) spawn(count int, radius, speed float64) {
	if count <= 0 {
		return
	}
	if count > MaxSpawnPerCommand {
		count = MaxSpawnPerCommand
	}
	for n := 0; n < count; n++ {
		angle := s.rng.Float64() * 2 * math.Pi
		s.world.AddEntity(Entity{
			ID:   s.ids.Next(),
			Mask: CompBody,
			Body: Body{
				VX:     speed * math.Cos(angle),
				VY:     speed * math.Sin(angle),
				Radius: radius,
			},
		}, s.rng)
	}
}

// setCellSize clamps to [MinCellSize, max(arena dims)] before
// reconfiguring, so the grid error path is unreachable from commands.
func (s *Simulation) setCellSize(size float64) float64 {
	maxCell := math.Max(s.world.Width(), s.world.Height())
	clamped := Clamp(size, MinCellSize, maxCell)
	s.world.SetCellSize(clamped)
	return clamped
}

// State returns the live authoritative snapshot. Not a copy: valid until
// the next Tick.
func (s *Simulation) State() StateView {
	return StateView{
		Width:    s.world.Width(),
		Height:   s.world.Height(),
		CellSize: s.world.CellSize(),
		Entities: s.world.Entities(),
	}
}

// Preview deep-copies the world, advances the copy by dt, and returns
// the copy's entities. Authoritative state is untouched; nothing in the
// returned slice aliases live storage.
func (s *Simulation) Preview(dt float64) []Entity {
	preview := s.world.Clone()
	if dt > 0 {
		preview.Update(dt)
	}
	return preview.Entities()
}

// World exposes the underlying world for in-process consumers (tests,
// the runner's metrics sampling).
func (s *Simulation) World() *World { return s.world }
