package grid

import (
	"fmt"
	"slices"

	"golang.org/x/text/cases"

	"github.com/roach88/gridcore/internal/ir"
)

// Defaults are the sizes used for rows and columns that were never resized.
type Defaults struct {
	RowHeight   float64
	ColumnWidth float64
}

// DefaultSizes matches the renderer's default cell box.
var DefaultSizes = Defaults{RowHeight: 21, ColumnWidth: 100}

// Grid is the full workbook: an ordered list of sheets.
//
// Grid is NOT safe for concurrent use. The engine is its single writer and
// evaluation reads happen on the same goroutine.
type Grid struct {
	sheets   []*Sheet
	defaults Defaults
	fold     cases.Caser
}

// New creates an empty grid using DefaultSizes.
func New() *Grid {
	return NewWithDefaults(DefaultSizes)
}

// NewWithDefaults creates an empty grid with custom default sizes.
func NewWithDefaults(d Defaults) *Grid {
	return &Grid{defaults: d, fold: cases.Fold()}
}

// Defaults returns the grid's default sizes.
func (g *Grid) Defaults() Defaults {
	return g.defaults
}

// AddSheet creates an empty sheet at the end of the sheet order. It is the
// setup path for new workbooks; inside a transaction use ops.AddSheet.
func (g *Grid) AddSheet(id ir.SheetID, name string) (*Sheet, error) {
	if err := g.checkNewSheet(id, name); err != nil {
		return nil, err
	}
	s := newSheet(id, name, &g.defaults)
	g.sheets = append(g.sheets, s)
	return s, nil
}

func (g *Grid) checkNewSheet(id ir.SheetID, name string) error {
	if id == "" {
		return fmt.Errorf("%w: empty sheet id", ErrInvalidOperation)
	}
	if g.Sheet(id) != nil {
		return fmt.Errorf("%w: sheet %s already exists", ErrInvalidOperation, id)
	}
	if _, ok := g.SheetByName(name); ok {
		return fmt.Errorf("%w: sheet name %q already in use", ErrInvalidOperation, name)
	}
	return nil
}

// Sheet returns the sheet with the given id, or nil.
func (g *Grid) Sheet(id ir.SheetID) *Sheet {
	for _, s := range g.sheets {
		if s.id == id {
			return s
		}
	}
	return nil
}

// Sheets returns the sheets in order.
func (g *Grid) Sheets() []*Sheet {
	return slices.Clone(g.sheets)
}

// HasSheet reports whether a sheet exists.
func (g *Grid) HasSheet(id ir.SheetID) bool {
	return g.Sheet(id) != nil
}

// SheetByName finds a sheet by name, ignoring case.
func (g *Grid) SheetByName(name string) (ir.SheetID, bool) {
	want := g.fold.String(name)
	for _, s := range g.sheets {
		if g.fold.String(s.name) == want {
			return s.id, true
		}
	}
	return "", false
}

// DisplayValue returns the value a cell shows, or a BadCellReference error
// value when the sheet does not exist.
func (g *Grid) DisplayValue(sp ir.SheetPos) ir.CellValue {
	s := g.Sheet(sp.SheetID)
	if s == nil {
		return ir.NewRunError(ir.ErrBadCellReference, "sheet %s not found", sp.SheetID)
	}
	return s.DisplayValue(sp.Pos())
}

// AutoResizeRows filters rows down to those whose height should be measured
// again: rows holding at least one wrapped cell with content that the user
// has not sized by hand. The result is sorted and deduplicated.
func (g *Grid) AutoResizeRows(id ir.SheetID, rows []int64) []int64 {
	s := g.Sheet(id)
	if s == nil {
		return nil
	}
	want := make(map[int64]bool)
	for _, r := range rows {
		if !s.RowClientResized(r) {
			want[r] = false
		}
	}
	for p, f := range s.formats {
		if _, ok := want[p.Y]; ok && f.WrapsText() && s.hasContent(p) {
			want[p.Y] = true
		}
	}
	var out []int64
	for r, ok := range want {
		if ok {
			out = append(out, r)
		}
	}
	slices.Sort(out)
	return out
}
