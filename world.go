package main

import (
	"math"
	"math/rand"
)

const placementAttempts = 100

// World owns the entity collection and the broad-phase grid for one
// bounded arena. Arena bounds are fixed at construction.
type World struct {
	entities []Entity
	width    float64
	height   float64
	grid     *SpatialGrid

	// Scratch state reused across ticks.
	queryBuf     []int
	pairSeen     map[uint64]struct{}
	narrowChecks int
}

// NewWorld creates an empty arena with the given grid cell size.
func NewWorld(width, height, cellSize float64) (*World, error) {
	grid, err := NewSpatialGrid(width, height, cellSize)
	if err != nil {
		return nil, err
	}
	return &World{
		width:    width,
		height:   height,
		grid:     grid,
		pairSeen: make(map[uint64]struct{}),
	}, nil
}

// Width returns the arena width in pixels.
func (w *World) Width() float64 { return w.width }

// Height returns the arena height in pixels.
func (w *World) Height() float64 { return w.height }

// Entities returns the live entity slice. Read-only for callers; valid
// until the next mutating call.
func (w *World) Entities() []Entity { return w.entities }

// Count returns the current entity count.
func (w *World) Count() int { return len(w.entities) }

// CellSize returns the grid's current bucket edge length.
func (w *World) CellSize() float64 { return w.grid.CellSize() }

// SetCellSize reconfigures the broad-phase grid.
func (w *World) SetCellSize(size float64) error {
	return w.grid.SetCellSize(size)
}

// NarrowChecks reports how many narrow-phase pair tests the last Update
// performed. Each unordered pair is tested at most once per tick.
func (w *World) NarrowChecks() int { return w.narrowChecks }

// AddEntity places the entity and appends it. Bodies get up to 100
// random positions, taking the first that overlaps nothing; if all
// attempts collide the last sampled position is used as-is. Overlap at
// spawn is tolerated over unbounded retries: the next tick's collision
// pass separates the bodies.
func (w *World) AddEntity(e Entity, rng *rand.Rand) {
	if !e.HasBody() {
		w.entities = append(w.entities, e)
		return
	}

	radius := e.Body.Radius
	var x, y float64
	for attempt := 0; attempt < placementAttempts; attempt++ {
		x = rng.Float64() * w.width
		y = rng.Float64() * w.height

		collides := false
		for i := range w.entities {
			other := &w.entities[i]
			if !other.HasBody() {
				continue
			}
			dx := x - other.Body.X
			dy := y - other.Body.Y
			minDist := radius + other.Body.Radius
			if dx*dx+dy*dy < minDist*minDist {
				collides = true
				break
			}
		}
		if !collides {
			break
		}
	}
	e.Body.X = x
	e.Body.Y = y
	w.entities = append(w.entities, e)
}

// RemoveHalf truncates the population to floor(n/2), keeping the first
// half in insertion order. Deliberately deterministic, not a random cull.
func (w *World) RemoveHalf() {
	w.entities = w.entities[:len(w.entities)/2]
}

// ScaleRadii multiplies every body's radius by factor. Positions are not
// re-checked; any resulting wall or body overlap is corrected by the
// next tick.
func (w *World) ScaleRadii(factor float64) {
	for i := range w.entities {
		if w.entities[i].HasBody() {
			w.entities[i].Body.Radius *= factor
		}
	}
}

// Update advances the world by dt seconds: integrate and wall-clamp every
// body while rebuilding the grid, then resolve overlapping pairs.
// Ordering matters: the grid must hold every post-integration position
// before any pair is resolved.
func (w *World) Update(dt float64) {
	w.grid.Clear()

	for i := range w.entities {
		e := &w.entities[i]
		if !e.HasBody() {
			continue
		}
		b := &e.Body

		b.X += b.VX * dt
		b.Y += b.VY * dt

		r := b.Radius
		if b.X-r < 0 {
			b.X = r
			b.VX = math.Abs(b.VX)
		} else if b.X+r > w.width {
			b.X = w.width - r
			b.VX = -math.Abs(b.VX)
		}
		if b.Y-r < 0 {
			b.Y = r
			b.VY = math.Abs(b.VY)
		} else if b.Y+r > w.height {
			b.Y = w.height - r
			b.VY = -math.Abs(b.VY)
		}

		w.grid.Insert(i, b.X, b.Y, r)
	}

	w.resolveCollisions()
}

// pairKey packs two entity ids into one comparable key, smaller id first,
// so each unordered pair is visited once per tick regardless of which
// side's query found it.
func pairKey(a, b uint32) uint64 {
	if a > b {
		a, b = b, a
	}
	return uint64(a)<<32 | uint64(b)
}

func (w *World) resolveCollisions() {
	clear(w.pairSeen)
	w.narrowChecks = 0

	for i := range w.entities {
		a := &w.entities[i]
		if !a.HasBody() {
			continue
		}

		w.queryBuf = w.queryBuf[:0]
		w.queryBuf = w.grid.QueryBuf(a.Body.X, a.Body.Y, a.Body.Radius, i, w.queryBuf)

		for _, j := range w.queryBuf {
			b := &w.entities[j]
			if !b.HasBody() {
				continue
			}

			key := pairKey(a.ID, b.ID)
			if _, done := w.pairSeen[key]; done {
				continue
			}
			w.pairSeen[key] = struct{}{}
			w.narrowChecks++

			resolvePair(&a.Body, &b.Body)
		}
	}
}

// resolvePair applies the narrow-phase test and response for one pair.
// Overlapping bodies are always pushed apart by half the penetration
// each; the velocity impulse only fires when they are approaching, so
// resting contact separates without gaining energy.
func resolvePair(a, b *Body) {
	dx := b.X - a.X
	dy := b.Y - a.Y
	d2 := dx*dx + dy*dy
	if d2 <= 0 {
		// Coincident centers: no usable normal, skip this pair this tick.
		return
	}

	minDist := a.Radius + b.Radius
	if d2 >= minDist*minDist {
		return
	}

	dist := math.Sqrt(d2)
	nx := dx / dist
	ny := dy / dist

	overlap := minDist - dist
	sepX := nx * overlap * 0.5
	sepY := ny * overlap * 0.5
	a.X -= sepX
	a.Y -= sepY
	b.X += sepX
	b.Y += sepY

	// Relative velocity along the normal; positive means approaching.
	dvx := a.VX - b.VX
	dvy := a.VY - b.VY
	vn := dvx*nx + dvy*ny
	if vn > 0 {
		// Equal mass, fully elastic exchange along the normal.
		a.VX -= vn * nx
		a.VY -= vn * ny
		b.VX += vn * nx
		b.VY += vn * ny
	}
}

// Clone returns an independent deep copy sharing nothing mutable with the
// original. Entities are value types, so copying the slice copies every
// component; the clone gets its own empty grid.
func (w *World) Clone() *World {
	entities := make([]Entity, len(w.entities))
	copy(entities, w.entities)
	grid, _ := NewSpatialGrid(w.width, w.height, w.grid.CellSize())
	return &World{
		entities: entities,
		width:    w.width,
		height:   w.height,
		grid:     grid,
		pairSeen: make(map[uint64]struct{}),
	}
}
