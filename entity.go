package main

// ComponentMask records which optional components an entity carries.
type ComponentMask uint8

const (
	CompBody ComponentMask = 1 << iota
	CompHealth
	CompPayload
)

// Body is the physical component: position, velocity, radius.
type Body struct {
	X, Y   float64
	VX, VY float64
	Radius float64
}

// Health is defined but unused by current behavior; it must survive
// clones and snapshots untouched.
type Health struct {
	Current float64
	Max     float64
}

// Payload carries a type tag and damage value, same status as Health.
type Payload struct {
	Kind   string
	Damage float64
}

// Entity is a stable id plus optional components. Components are held by
// value with a presence mask so the entity slice copies cleanly — copying
// the slice is a deep copy, which is what preview isolation relies on.
type Entity struct {
	ID      uint32
	Mask    ComponentMask
	Body    Body
	Health  Health
	Payload Payload
}

// HasBody reports whether the entity has a physical body.
func (e *Entity) HasBody() bool { return e.Mask&CompBody != 0 }

// HasHealth reports whether the entity carries a health component.
func (e *Entity) HasHealth() bool { return e.Mask&CompHealth != 0 }

// HasPayload reports whether the entity carries a payload component.
func (e *Entity) HasPayload() bool { return e.Mask&CompPayload != 0 }

// IDGen hands out monotonically increasing, never-reused entity ids.
// Each simulation owns its own generator, so two independent simulations
// produce predictable, non-interfering sequences.
type IDGen struct {
	next uint32
}

// NewIDGen creates a generator whose first id is 1.
func NewIDGen() *IDGen {
	return &IDGen{next: 1}
}

// Next returns the next id. Saturates rather than wrapping so ids are
// never reused even after 2^32 spawns.
func (g *IDGen) Next() uint32 {
	id := g.next
	if g.next != ^uint32(0) {
		g.next++
	}
	return id
}
