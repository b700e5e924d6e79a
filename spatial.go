package main

import (
	"fmt"
	"math"
)

// SpatialGrid is a uniform broad-phase grid over the arena, stored
// row-major in a flat slice. Cells are cleared lazily: Clear bumps an
// epoch stamp and a cell's contents only count when its stamp matches,
// so a full rebuild costs O(entities) instead of O(cells).
//
// The grid holds entity indices into the slice it was last populated
// from; they are valid only until the next Clear.
type SpatialGrid struct {
	cells    []gridCell
	cols     int
	rows     int
	width    float64
	height   float64
	cellSize float64
	invCell  float64
	stamp    uint32

	// Per-query dedup marks, indexed by entity index.
	seen      []uint32
	seenStamp uint32
}

type gridCell struct {
	items []int
	stamp uint32
}

// NewSpatialGrid creates a grid covering width x height with the given
// cell edge length. A non-positive cell size is invalid configuration.
func NewSpatialGrid(width, height, cellSize float64) (*SpatialGrid, error) {
	g := &SpatialGrid{width: width, height: height}
	if err := g.SetCellSize(cellSize); err != nil {
		return nil, err
	}
	return g, nil
}

// SetCellSize reconfigures the bucket edge length. All prior contents are
// invalidated. Fails without touching the grid if size is not positive.
func (g *SpatialGrid) SetCellSize(size float64) error {
	if size <= 0 || math.IsNaN(size) {
		return fmt.Errorf("cell size must be positive, got %v", size)
	}
	g.cellSize = size
	g.invCell = 1 / size

	cols := int(math.Ceil(g.width / size))
	rows := int(math.Ceil(g.height / size))
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	if cols != g.cols || rows != g.rows {
		g.cols = cols
		g.rows = rows
		g.cells = make([]gridCell, cols*rows)
		g.stamp = 1
	} else {
		// Same shape: drop contents, keep cell capacity.
		g.stamp = 1
		for i := range g.cells {
			g.cells[i].stamp = 0
			g.cells[i].items = g.cells[i].items[:0]
		}
	}
	g.seen = g.seen[:0]
	g.seenStamp = 1
	return nil
}

// CellSize returns the current bucket edge length.
func (g *SpatialGrid) CellSize() float64 { return g.cellSize }

// Clear logically empties every cell by advancing the epoch stamp.
func (g *SpatialGrid) Clear() {
	g.stamp++
	if g.stamp == 0 {
		// Stamp wrapped: reset every cell once so stale stamps can't match.
		g.stamp = 1
		for i := range g.cells {
			g.cells[i].stamp = 0
			g.cells[i].items = g.cells[i].items[:0]
		}
	}
}

func clampIndex(v, max int) int {
	if v < 0 {
		return 0
	}
	if v >= max {
		return max - 1
	}
	return v
}

func (g *SpatialGrid) toCol(x float64) int {
	return int(math.Floor(x * g.invCell))
}

func (g *SpatialGrid) toRow(y float64) int {
	return int(math.Floor(y * g.invCell))
}

// cellRange returns the inclusive, clamped cell range covering the AABB
// around (x,y) with half-extent r. Coordinates outside the arena
// (including negatives) clamp into the border cells, which keeps every
// query an over-approximation rather than missing anything.
func (g *SpatialGrid) cellRange(x, y, r float64) (minCol, maxCol, minRow, maxRow int) {
	minCol = clampIndex(g.toCol(x-r), g.cols)
	maxCol = clampIndex(g.toCol(x+r), g.cols)
	minRow = clampIndex(g.toRow(y-r), g.rows)
	maxRow = clampIndex(g.toRow(y+r), g.rows)
	return
}

// Insert adds an entity index to every cell its AABB overlaps. A body
// larger than a cell lands in many cells; that multi-cell membership is
// what makes boundary-crossing pairs visible to queries.
func (g *SpatialGrid) Insert(index int, x, y, radius float64) {
	minCol, maxCol, minRow, maxRow := g.cellRange(x, y, radius)
	for row := minRow; row <= maxRow; row++ {
		base := row * g.cols
		for col := minCol; col <= maxCol; col++ {
			cell := &g.cells[base+col]
			if cell.stamp != g.stamp {
				cell.items = cell.items[:0]
				cell.stamp = g.stamp
			}
			cell.items = append(cell.items, index)
		}
	}
}

// QueryBuf appends to buf the indices of all entities whose cells overlap
// the AABB around (x,y,radius), deduplicated, excluding exclude (pass a
// negative exclude to keep everything). The result is a superset of the
// entities actually within collision range; callers re-verify with an
// exact circle test.
func (g *SpatialGrid) QueryBuf(x, y, radius float64, exclude int, buf []int) []int {
	g.seenStamp++
	if g.seenStamp == 0 {
		for i := range g.seen {
			g.seen[i] = 0
		}
		g.seenStamp = 1
	}

	minCol, maxCol, minRow, maxRow := g.cellRange(x, y, radius)
	for row := minRow; row <= maxRow; row++ {
		base := row * g.cols
		for col := minCol; col <= maxCol; col++ {
			cell := &g.cells[base+col]
			if cell.stamp != g.stamp {
				continue
			}
			for _, idx := range cell.items {
				if idx == exclude {
					continue
				}
				if idx >= len(g.seen) {
					grown := make([]uint32, idx+1)
					copy(grown, g.seen)
					g.seen = grown
				}
				if g.seen[idx] == g.seenStamp {
					continue
				}
				g.seen[idx] = g.seenStamp
				buf = append(buf, idx)
			}
		}
	}
	return buf
}

// Query is QueryBuf with a fresh result slice.
func (g *SpatialGrid) Query(x, y, radius float64, exclude int) []int {
	return g.QueryBuf(x, y, radius, exclude, nil)
}
