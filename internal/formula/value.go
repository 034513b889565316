package formula

import (
	"github.com/roach88/gridcore/internal/ir"
)

// Value is the result of evaluating an expression: a Single cell value or
// an *Array.
type Value interface {
	formulaValue()

	// Size is 1x1 for a Single.
	Size() ir.ArraySize

	// Get returns the element at (x, y), broadcasting along any axis of
	// length one.
	Get(x, y uint32) ir.CellValue
}

// Single is a scalar value.
type Single struct {
	V ir.CellValue
}

func (Single) formulaValue() {}

// Size implements Value.
func (Single) Size() ir.ArraySize { return ir.ArraySize{W: 1, H: 1} }

// Get implements Value.
func (s Single) Get(uint32, uint32) ir.CellValue { return ir.OrBlank(s.V) }

// Array is a row-major two-dimensional array of values.
type Array struct {
	size   ir.ArraySize
	values []ir.CellValue
}

// NewArray builds an array from row-major values. len(values) must equal
// size.Len().
func NewArray(size ir.ArraySize, values []ir.CellValue) *Array {
	return &Array{size: size, values: values}
}

func (*Array) formulaValue() {}

// Size implements Value.
func (a *Array) Size() ir.ArraySize { return a.size }

// Get implements Value.
func (a *Array) Get(x, y uint32) ir.CellValue {
	if a.size.W == 1 {
		x = 0
	}
	if a.size.H == 1 {
		y = 0
	}
	if x >= a.size.W || y >= a.size.H {
		return ir.Blank{}
	}
	return ir.OrBlank(a.values[int(y)*int(a.size.W)+int(x)])
}

// Values returns the elements in row-major order.
func (a *Array) Values() []ir.CellValue {
	return a.values
}

// ToCellValues converts any Value into a block suitable for a code run
// output.
func ToCellValues(v Value) ir.CellValues {
	switch val := v.(type) {
	case *Array:
		return ir.CellValues{W: val.size.W, H: val.size.H, Values: append([]ir.CellValue(nil), val.values...)}
	case Single:
		return ir.SingleValue(val.V)
	default:
		return ir.SingleValue(ir.Blank{})
	}
}

// scalar returns the value of a 1x1 Value.
func scalar(v Value) ir.CellValue {
	return v.Get(0, 0)
}

// flatten returns every element of v in row-major order.
func flatten(v Value) []ir.CellValue {
	if a, ok := v.(*Array); ok {
		return a.values
	}
	return []ir.CellValue{scalar(v)}
}

// CommonArraySize computes the broadcast shape of several values. Along
// each axis every length must either be 1 or equal to the common length.
func CommonArraySize(values []Value) (ir.ArraySize, error) {
	out := ir.ArraySize{W: 1, H: 1}
	for _, v := range values {
		sz := v.Size()
		var err error
		if out.W, err = commonAxis(out.W, sz.W, "column"); err != nil {
			return ir.ArraySize{}, err
		}
		if out.H, err = commonAxis(out.H, sz.H, "row"); err != nil {
			return ir.ArraySize{}, err
		}
	}
	return out, nil
}

func commonAxis(cur, next uint32, axis string) (uint32, error) {
	switch {
	case cur == next, next == 1:
		return cur, nil
	case cur == 1:
		return next, nil
	default:
		return 0, ir.NewRunError(ir.ErrArrayAxisMismatch, "expected %s count %d, got %d", axis, cur, next)
	}
}
