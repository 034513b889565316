package formula

import (
	"github.com/roach88/gridcore/internal/ir"
)

type function func(c *Ctx, args []Value) (Value, error)

var functions map[string]function

func init() {
	functions = map[string]function{
		"SUM":      fnSum,
		"AVERAGE":  fnAverage,
		"COUNT":    fnCount,
		"IF":       fnIf,
		"COUNTIFS": fnCountIfs,
		"SUMIFS":   fnSumIfs,
	}
}

func (e callExpr) eval(c *Ctx) (Value, error) {
	fn, ok := functions[e.name]
	if !ok {
		return nil, ir.NewRunError(ir.ErrName, "unknown function %s", e.name)
	}
	args := make([]Value, len(e.args))
	for i, a := range e.args {
		v, err := a.eval(c)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	if c.SkipComputation {
		return Single{V: ir.Blank{}}, nil
	}
	return fn(c, args)
}

// numbers collects the numeric elements of args. Text and blanks inside
// arrays are skipped; errors abort.
func numbers(args []Value) ([]float64, error) {
	var out []float64
	for _, a := range args {
		_, isArray := a.(*Array)
		for _, v := range flatten(a) {
			switch x := ir.OrBlank(v).(type) {
			case *ir.RunError:
				return nil, x
			case ir.Number:
				out = append(out, float64(x))
			case ir.Logical, ir.Text:
				if isArray {
					continue
				}
				n, err := toNumber(x)
				if err != nil {
					return nil, err
				}
				out = append(out, n)
			}
		}
	}
	return out, nil
}

func fnSum(_ *Ctx, args []Value) (Value, error) {
	ns, err := numbers(args)
	if err != nil {
		return nil, err
	}
	var sum float64
	for _, n := range ns {
		sum += n
	}
	return Single{V: ir.Number(sum)}, nil
}

func fnAverage(_ *Ctx, args []Value) (Value, error) {
	ns, err := numbers(args)
	if err != nil {
		return nil, err
	}
	if len(ns) == 0 {
		return nil, ir.NewRunError(ir.ErrDivideByZero, "AVERAGE of no numbers")
	}
	var sum float64
	for _, n := range ns {
		sum += n
	}
	return Single{V: ir.Number(sum / float64(len(ns)))}, nil
}

func fnCount(_ *Ctx, args []Value) (Value, error) {
	n := 0
	for _, a := range args {
		for _, v := range flatten(a) {
			if _, ok := v.(ir.Number); ok {
				n++
			}
		}
	}
	return Single{V: ir.Number(n)}, nil
}

func fnIf(c *Ctx, args []Value) (Value, error) {
	if len(args) < 2 || len(args) > 3 {
		return nil, ir.NewRunError(ir.ErrValue, "IF takes 2 or 3 arguments, got %d", len(args))
	}
	if len(args) == 2 {
		args = append(args, Single{V: ir.Logical(false)})
	}
	return c.ZipMap(args, func(_ *Ctx, v []ir.CellValue) (ir.CellValue, error) {
		cond, err := toBool(v[0])
		if err != nil {
			return nil, err
		}
		if cond {
			return v[1], nil
		}
		return v[2], nil
	})
}

// matchingCells returns, for each element of the criteria ranges, whether
// every criterion matches. All ranges must share one shape.
func matchingCells(pairs []RangeCriterion) (ir.ArraySize, []bool, error) {
	size := pairs[0].Range.Size()
	for _, p := range pairs[1:] {
		if p.Range.Size() != size {
			return ir.ArraySize{}, nil, ir.NewRunError(ir.ErrArrayAxisMismatch, "criteria ranges differ in size: %s vs %s", size, p.Range.Size())
		}
	}
	out := make([]bool, 0, size.Len())
	for y := uint32(0); y < size.H; y++ {
		for x := uint32(0); x < size.W; x++ {
			ok := true
			for _, p := range pairs {
				if !p.Criterion.Matches(p.Range.Get(x, y)) {
					ok = false
					break
				}
			}
			out = append(out, ok)
		}
	}
	return size, out, nil
}

func fnCountIfs(c *Ctx, args []Value) (Value, error) {
	return c.ZipMapEvalRangesAndCriteria(args, func(_ *Ctx, pairs []RangeCriterion) (ir.CellValue, error) {
		_, matches, err := matchingCells(pairs)
		if err != nil {
			return nil, err
		}
		n := 0
		for _, m := range matches {
			if m {
				n++
			}
		}
		return ir.Number(n), nil
	})
}

func fnSumIfs(c *Ctx, args []Value) (Value, error) {
	if len(args) < 3 {
		return nil, ir.NewRunError(ir.ErrValue, "SUMIFS takes a sum range and criteria pairs")
	}
	sumRange := args[0]
	return c.ZipMapEvalRangesAndCriteria(args[1:], func(_ *Ctx, pairs []RangeCriterion) (ir.CellValue, error) {
		size, matches, err := matchingCells(pairs)
		if err != nil {
			return nil, err
		}
		if sumRange.Size() != size {
			return nil, ir.NewRunError(ir.ErrArrayAxisMismatch, "sum range is %s, criteria range is %s", sumRange.Size(), size)
		}
		var sum float64
		i := 0
		for y := uint32(0); y < size.H; y++ {
			for x := uint32(0); x < size.W; x++ {
				if matches[i] {
					if n, ok := sumRange.Get(x, y).(ir.Number); ok {
						sum += float64(n)
					}
				}
				i++
			}
		}
		return ir.Number(sum), nil
	})
}
