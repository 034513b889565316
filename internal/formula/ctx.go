package formula

import (
	"github.com/roach88/gridcore/internal/ir"
)

// DefaultCellRangeLimit is the largest width or height a range may have.
const DefaultCellRangeLimit = 10_000

// CellSource is the read-only grid view formulas evaluate against.
// *grid.Grid implements it.
type CellSource interface {
	HasSheet(id ir.SheetID) bool
	SheetByName(name string) (ir.SheetID, bool)
	DisplayValue(sp ir.SheetPos) ir.CellValue
}

// Ctx is the execution context of one formula evaluation.
type Ctx struct {
	source CellSource

	// SheetPos is the cell being computed. References without a sheet
	// resolve against its sheet.
	SheetPos ir.SheetPos

	// CellsAccessed collects every cell read during evaluation.
	CellsAccessed ir.CellsAccessed

	// SkipComputation turns reads and broadcasts into blanks; it is used
	// for syntax checks where only parsing and shape errors matter.
	SkipComputation bool

	// RangeLimit bounds the width and height of ranges.
	RangeLimit int
}

// NewCtx creates a context for evaluating a formula at pos.
func NewCtx(source CellSource, pos ir.SheetPos) *Ctx {
	return &Ctx{source: source, SheetPos: pos, RangeLimit: DefaultCellRangeLimit}
}

// NewSyntaxCheckCtx creates a context that parses and walks a formula
// without reading the grid. Results are meaningless (usually blank).
func NewSyntaxCheckCtx(source CellSource, sheet ir.SheetID) *Ctx {
	return &Ctx{
		source:          source,
		SheetPos:        ir.SheetPos{SheetID: sheet},
		SkipComputation: true,
		RangeLimit:      DefaultCellRangeLimit,
	}
}

// ResolveRef turns a reference into an absolute sheet position.
func (c *Ctx) ResolveRef(ref CellRef) (ir.SheetPos, error) {
	id := c.SheetPos.SheetID
	if ref.Sheet != "" {
		found, ok := c.source.SheetByName(ref.Sheet)
		if !ok {
			return ir.SheetPos{}, ir.NewRunError(ir.ErrBadCellReference, "sheet %q not found", ref.Sheet)
		}
		id = found
	} else if !c.source.HasSheet(id) {
		return ir.SheetPos{}, ir.NewRunError(ir.ErrBadCellReference, "sheet %s not found", id)
	}
	return ref.Pos.ToSheetPos(id), nil
}

// ResolveRangeRef turns a range reference into an absolute rectangle.
// Whole-row and whole-column ranges are not supported.
func (c *Ctx) ResolveRangeRef(r RangeRef) (ir.SheetRect, error) {
	switch r.Kind {
	case RangeRow:
		return ir.SheetRect{}, ir.NewRunError(ir.ErrUnimplemented, "row range")
	case RangeColumn:
		return ir.SheetRect{}, ir.NewRunError(ir.ErrUnimplemented, "column range")
	case RangeCells:
		start, err := c.ResolveRef(r.Start)
		if err != nil {
			return ir.SheetRect{}, err
		}
		end, err := c.ResolveRef(r.End)
		if err != nil {
			return ir.SheetRect{}, err
		}
		return ir.NewSheetRect(start.Pos(), end.Pos(), start.SheetID), nil
	default:
		pos, err := c.ResolveRef(r.Start)
		if err != nil {
			return ir.SheetRect{}, err
		}
		return ir.SingleSheetRect(pos), nil
	}
}

// GetCell reads the displayed value at pos.
//
// Errors are returned as values, never as Go errors: a missing sheet gives
// BadCellReference and reading the cell being computed gives
// CircularReference. Neither case is recorded in CellsAccessed.
func (c *Ctx) GetCell(pos ir.SheetPos) ir.CellValue {
	if c.SkipComputation {
		return ir.Blank{}
	}
	if !c.source.HasSheet(pos.SheetID) {
		return ir.NewRunError(ir.ErrBadCellReference, "sheet %s not found", pos.SheetID)
	}
	if pos == c.SheetPos {
		return ir.NewRunError(ir.ErrCircularReference, "%s refers to itself", pos)
	}
	c.CellsAccessed.AddPos(pos)
	return c.source.DisplayValue(pos)
}

// GetCellArray reads a rectangle in row-major order.
func (c *Ctx) GetCellArray(rect ir.SheetRect) (Value, error) {
	if c.SkipComputation {
		return Single{V: ir.Blank{}}, nil
	}
	size := rect.Size()
	limit := c.RangeLimit
	if limit <= 0 {
		limit = DefaultCellRangeLimit
	}
	if int(max(size.W, size.H)) > limit {
		return nil, ir.NewRunError(ir.ErrArrayTooBig, "range %s exceeds %d cells per side", size, limit)
	}
	values := make([]ir.CellValue, 0, size.Len())
	for y := rect.Min.Y; y <= rect.Max.Y; y++ {
		for x := rect.Min.X; x <= rect.Max.X; x++ {
			values = append(values, c.GetCell(ir.SheetPos{X: x, Y: y, SheetID: rect.SheetID}))
		}
	}
	return NewArray(size, values), nil
}

// ZipFunc computes one output element from corresponding input elements.
type ZipFunc func(c *Ctx, args []ir.CellValue) (ir.CellValue, error)

// ZipMap evaluates f once per element of the broadcast shape of arrays.
//
// A 1x3 array zipped with a 3x1 array evaluates f nine times; element
// (x, y) receives arrays[0][x, 0] and arrays[1][0, y]. When the common shape
// is 1x1 the result is a Single, not a 1x1 Array. Incompatible shapes fail
// the whole call with ArrayAxisMismatch, as does any error returned by f.
func (c *Ctx) ZipMap(arrays []Value, f ZipFunc) (Value, error) {
	if c.SkipComputation {
		return Single{V: ir.Blank{}}, nil
	}
	size, err := CommonArraySize(arrays)
	if err != nil {
		return nil, err
	}

	args := make([]ir.CellValue, len(arrays))
	if size.IsScalar() {
		for i, a := range arrays {
			args[i] = scalar(a)
		}
		v, err := f(c, args)
		if err != nil {
			return nil, err
		}
		return Single{V: v}, nil
	}

	out := make([]ir.CellValue, 0, size.Len())
	for y := uint32(0); y < size.H; y++ {
		for x := uint32(0); x < size.W; x++ {
			for i, a := range arrays {
				args[i] = a.Get(x, y)
			}
			v, err := f(c, args)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
	}
	return NewArray(size, out), nil
}

// RangeCriterion pairs an evaluation range with a parsed criterion.
type RangeCriterion struct {
	Range     Value
	Criterion Criterion
}

// CriteriaFunc computes one output element from the range/criterion pairs.
type CriteriaFunc func(c *Ctx, pairs []RangeCriterion) (ir.CellValue, error)

// ZipMapEvalRangesAndCriteria implements the argument convention of
// COUNTIFS-style functions: args alternate eval_range, criteria. The
// criteria (not the ranges) are broadcast with ZipMap; for each element the
// pairs are rebuilt with the criterion value at that element.
func (c *Ctx) ZipMapEvalRangesAndCriteria(args []Value, f CriteriaFunc) (Value, error) {
	if len(args) < 2 || len(args)%2 != 0 {
		return nil, ir.NewRunError(ir.ErrValue, "expected pairs of range and criteria, got %d arguments", len(args))
	}
	var ranges, criteria []Value
	for i := 0; i < len(args); i += 2 {
		ranges = append(ranges, args[i])
		criteria = append(criteria, args[i+1])
	}
	return c.ZipMap(criteria, func(c *Ctx, values []ir.CellValue) (ir.CellValue, error) {
		pairs := make([]RangeCriterion, len(values))
		for i, v := range values {
			crit, err := ParseCriterion(v)
			if err != nil {
				return nil, err
			}
			pairs[i] = RangeCriterion{Range: ranges[i], Criterion: crit}
		}
		return f(c, pairs)
	})
}
