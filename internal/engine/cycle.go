package engine

import (
	"slices"

	"github.com/roach88/gridcore/internal/grid"
	"github.com/roach88/gridcore/internal/ir"
)

// CycleDetector answers dependency questions over the code cells of a grid.
//
// Every code cell's last run records the ranges it read. Cell B depends on
// cell A when one of B's reads overlaps A's output. A cell is on a cycle
// when following those edges from it leads back to it:
//
//	A1 = B1 + 1 reads B1 → B1 = A1 + 1 reads A1 → back at A1 ← CYCLE DETECTED
//
// Reaching a cell along two paths of different lengths is not a cycle:
//
//	A1 → B1 → C1 → D1 and A1 → D1 (D1 = A1 + C1)
//
// The controller marks a cell on a cycle with a CircularReference error
// instead of computing it. A detector describes the grid at the time it was
// built; build a new one after the grid changes.
type CycleDetector struct {
	cells []depCell
	index map[ir.SheetPos]int
}

type depCell struct {
	pos    ir.SheetPos
	output ir.SheetRect
	reads  []ir.SheetRect
}

// NewCycleDetector indexes the code cells of g in sheet order, then table
// order.
func NewCycleDetector(g *grid.Grid) *CycleDetector {
	d := &CycleDetector{index: make(map[ir.SheetPos]int)}
	for _, s := range g.Sheets() {
		for _, e := range s.DataTables() {
			cell := depCell{
				pos:    e.Pos.ToSheetPos(s.ID()),
				output: e.Table.OutputRect(e.Pos).ToSheetRect(s.ID()),
			}
			if e.Table.Run != nil {
				cell.reads = e.Table.Run.CellsAccessed
			}
			d.index[cell.pos] = len(d.cells)
			d.cells = append(d.cells, cell)
		}
	}
	return d
}

// Len returns the number of code cells indexed.
func (d *CycleDetector) Len() int {
	return len(d.cells)
}

// readers returns the cells with a read overlapping any of rects.
func (d *CycleDetector) readers(rects ...ir.SheetRect) []int {
	var out []int
	for i, cell := range d.cells {
		if readsAny(cell.reads, rects) {
			out = append(out, i)
		}
	}
	return out
}

// OnCycle reports whether the code cell at sp depends on its own output,
// directly or through other code cells.
func (d *CycleDetector) OnCycle(sp ir.SheetPos) bool {
	start, ok := d.index[sp]
	if !ok {
		return false
	}
	seen := make([]bool, len(d.cells))
	stack := d.readers(d.cells[start].output)
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if i == start {
			return true
		}
		if seen[i] {
			continue
		}
		seen[i] = true
		stack = append(stack, d.readers(d.cells[i].output)...)
	}
	return false
}

// Downstream returns every code cell that reads dirty, directly or through
// other code cells, leaving out skip and anything reached only through
// skip. Each cell comes after the cells it reads; cells on a cycle come in
// sheet order once nothing else is ready.
func (d *CycleDetector) Downstream(dirty []ir.SheetRect, skip []ir.SheetPos) []ir.SheetPos {
	if len(dirty) == 0 {
		return nil
	}

	in := make([]bool, len(d.cells))
	queue := d.readers(dirty...)
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		if in[i] || slices.Contains(skip, d.cells[i].pos) {
			continue
		}
		in[i] = true
		queue = append(queue, d.readers(d.cells[i].output)...)
	}

	pending := make([]int, len(d.cells))
	next := make([][]int, len(d.cells))
	for i := range d.cells {
		if !in[i] {
			continue
		}
		for _, j := range d.readers(d.cells[i].output) {
			if in[j] && j != i {
				next[i] = append(next[i], j)
				pending[j]++
			}
		}
	}

	var out []ir.SheetPos
	done := make([]bool, len(d.cells))
	for {
		pick := -1
		for i := range d.cells {
			if in[i] && !done[i] && pending[i] == 0 {
				pick = i
				break
			}
		}
		if pick < 0 {
			for i := range d.cells {
				if in[i] && !done[i] {
					pick = i
					break
				}
			}
		}
		if pick < 0 {
			return out
		}
		done[pick] = true
		out = append(out, d.cells[pick].pos)
		for _, j := range next[pick] {
			pending[j]--
		}
	}
}

func readsAny(accessed, dirty []ir.SheetRect) bool {
	for _, a := range accessed {
		for _, d := range dirty {
			if a.Intersects(d) {
				return true
			}
		}
	}
	return false
}
