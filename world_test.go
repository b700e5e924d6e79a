package main

import (
	"math"
	"math/rand"
	"testing"
)

func newTestWorld(t *testing.T, width, height float64) *World {
	t.Helper()
	w, err := NewWorld(width, height, DefaultCellSize)
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	return w
}

// addBody appends a body at an exact position, bypassing random
// placement so tests get deterministic geometry.
func addBody(w *World, id uint32, x, y, vx, vy, r float64) {
	w.entities = append(w.entities, Entity{
		ID:   id,
		Mask: CompBody,
		Body: Body{X: x, Y: y, VX: vx, VY: vy, Radius: r},
	})
}

func floatEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestIntegrationNoCollision(t *testing.T) {
	w := newTestWorld(t, 2500, 1200)
	addBody(w, 1, 500, 500, 30, -20, 8)

	w.Update(0.25)

	b := w.Entities()[0].Body
	if !floatEq(b.X, 500+30*0.25) || !floatEq(b.Y, 500-20*0.25) {
		t.Errorf("expected (507.5, 495), got (%v, %v)", b.X, b.Y)
	}
	if !floatEq(b.VX, 30) || !floatEq(b.VY, -20) {
		t.Errorf("velocity must be unchanged, got (%v, %v)", b.VX, b.VY)
	}
}

func TestWallReflection(t *testing.T) {
	w := newTestWorld(t, 2500, 1200)
	addBody(w, 1, 2, 600, -50, 0, 8)

	w.Update(1)

	b := w.Entities()[0].Body
	if !floatEq(b.X, 8) {
		t.Errorf("expected x clamped to radius 8, got %v", b.X)
	}
	if !floatEq(b.VX, 50) {
		t.Errorf("expected vx flipped to +50, got %v", b.VX)
	}
}

// A body already past the boundary and moving outward must still end up
// inside with inward velocity, not oscillate.
func TestWallReflectionAlreadyOutside(t *testing.T) {
	w := newTestWorld(t, 2500, 1200)
	addBody(w, 1, 2499, 600, 10, 0, 8)

	w.Update(0.001)

	b := w.Entities()[0].Body
	if !floatEq(b.X, 2500-8) {
		t.Errorf("expected x clamped to %v, got %v", 2500-8.0, b.X)
	}
	if b.VX >= 0 {
		t.Errorf("expected inward (negative) vx, got %v", b.VX)
	}
}

func TestElasticHeadOnExchange(t *testing.T) {
	w := newTestWorld(t, 2500, 1200)
	addBody(w, 1, 100, 100, 50, 0, 8)
	addBody(w, 2, 112, 100, -50, 0, 8)

	w.Update(0.01)

	a := w.Entities()[0].Body
	b := w.Entities()[1].Body
	if !floatEq(a.VX, -50) || !floatEq(a.VY, 0) {
		t.Errorf("expected vA=(-50,0), got (%v,%v)", a.VX, a.VY)
	}
	if !floatEq(b.VX, 50) || !floatEq(b.VY, 0) {
		t.Errorf("expected vB=(50,0), got (%v,%v)", b.VX, b.VY)
	}
}

// Overlapping bodies moving apart get positional separation but no
// velocity change.
func TestNoFalseResolution(t *testing.T) {
	w := newTestWorld(t, 2500, 1200)
	addBody(w, 1, 100, 100, -50, 0, 8)
	addBody(w, 2, 110, 100, 50, 0, 8)

	w.Update(0.001)

	a := w.Entities()[0].Body
	b := w.Entities()[1].Body
	if !floatEq(a.VX, -50) || !floatEq(b.VX, 50) {
		t.Errorf("separating pair must keep velocities, got vA=%v vB=%v", a.VX, b.VX)
	}
	dist := Distance(a.X, a.Y, b.X, b.Y)
	if dist < 16-1e-9 {
		t.Errorf("expected positional separation to %v, got distance %v", 16.0, dist)
	}
}

func TestCoincidentCentersSkipped(t *testing.T) {
	w := newTestWorld(t, 2500, 1200)
	addBody(w, 1, 300, 300, 10, 0, 8)
	addBody(w, 2, 300, 300, -10, 0, 8)

	// Zero dt keeps the centers coincident through integration; the pair
	// must be skipped without NaNs.
	w.Update(0)

	a := w.Entities()[0].Body
	b := w.Entities()[1].Body
	if math.IsNaN(a.X) || math.IsNaN(b.X) || math.IsNaN(a.VX) || math.IsNaN(b.VX) {
		t.Error("coincident pair produced NaN")
	}
	if !floatEq(a.VX, 10) || !floatEq(b.VX, -10) {
		t.Error("coincident pair must be a no-op")
	}
}

func TestPairDedupCount(t *testing.T) {
	w := newTestWorld(t, 2500, 1200)
	// Three mutually overlapping bodies: exactly C(3,2)=3 narrow checks.
	addBody(w, 1, 100, 100, 0, 0, 10)
	addBody(w, 2, 105, 100, 0, 0, 10)
	addBody(w, 3, 110, 100, 0, 0, 10)

	w.Update(0.0001)

	if w.NarrowChecks() != 3 {
		t.Errorf("expected 3 narrow-phase checks, got %d", w.NarrowChecks())
	}
}

func TestRemoveHalfKeepsFirstHalf(t *testing.T) {
	w := newTestWorld(t, 2500, 1200)
	for id := uint32(1); id <= 7; id++ {
		addBody(w, id, float64(id)*100, 100, 0, 0, 8)
	}

	w.RemoveHalf()

	if w.Count() != 3 {
		t.Fatalf("expected floor(7/2)=3 entities, got %d", w.Count())
	}
	for i, want := range []uint32{1, 2, 3} {
		if got := w.Entities()[i].ID; got != want {
			t.Errorf("entity %d: expected id %d, got %d", i, want, got)
		}
	}
}

func TestScaleRadii(t *testing.T) {
	w := newTestWorld(t, 2500, 1200)
	addBody(w, 1, 100, 100, 5, 5, 8)
	addBody(w, 2, 200, 200, 0, 0, 12)

	w.ScaleRadii(2)

	if r := w.Entities()[0].Body.Radius; !floatEq(r, 16) {
		t.Errorf("expected radius 16, got %v", r)
	}
	if r := w.Entities()[1].Body.Radius; !floatEq(r, 24) {
		t.Errorf("expected radius 24, got %v", r)
	}
	if b := w.Entities()[0].Body; !floatEq(b.X, 100) || !floatEq(b.Y, 100) {
		t.Error("scaling must not reposition bodies")
	}
}

func TestPlacementAvoidsOverlap(t *testing.T) {
	w := newTestWorld(t, 2500, 1200)
	rng := rand.New(rand.NewSource(7))

	for id := uint32(1); id <= 20; id++ {
		w.AddEntity(Entity{ID: id, Mask: CompBody, Body: Body{Radius: 8}}, rng)
	}

	ents := w.Entities()
	for i := range ents {
		for j := i + 1; j < len(ents); j++ {
			dist := Distance(ents[i].Body.X, ents[i].Body.Y, ents[j].Body.X, ents[j].Body.Y)
			if dist < ents[i].Body.Radius+ents[j].Body.Radius {
				t.Fatalf("entities %d and %d overlap at spawn (dist %v)", i, j, dist)
			}
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	w := newTestWorld(t, 2500, 1200)
	addBody(w, 1, 100, 100, 10, 0, 8)
	w.entities[0].Mask |= CompHealth | CompPayload
	w.entities[0].Health = Health{Current: 40, Max: 50}
	w.entities[0].Payload = Payload{Kind: "spark", Damage: 3}

	c := w.Clone()
	c.Update(1)
	c.entities[0].Health.Current = 1

	orig := w.Entities()[0]
	if !floatEq(orig.Body.X, 100) {
		t.Error("mutating the clone changed the original position")
	}
	if orig.Health.Current != 40 || orig.Health.Max != 50 {
		t.Error("health must be preserved on the original")
	}
	if orig.Payload.Kind != "spark" || orig.Payload.Damage != 3 {
		t.Error("payload must be preserved on the original")
	}

	cl := c.Entities()[0]
	if cl.ID != 1 {
		t.Error("clone must keep the original entity id")
	}
	if cl.Payload.Kind != "spark" {
		t.Error("payload must survive the clone")
	}
}

func TestNonBodyEntitiesIgnoredByPhysics(t *testing.T) {
	w := newTestWorld(t, 2500, 1200)
	w.entities = append(w.entities, Entity{ID: 1, Mask: CompHealth, Health: Health{Current: 5, Max: 5}})
	addBody(w, 2, 100, 100, 10, 0, 8)

	w.Update(0.5)

	if w.Count() != 2 {
		t.Fatalf("expected 2 entities, got %d", w.Count())
	}
	if w.Entities()[0].Health.Current != 5 {
		t.Error("non-body entity must pass through untouched")
	}
}
