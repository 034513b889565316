package formula

import (
	"math"
	"strconv"
	"strings"

	"github.com/roach88/gridcore/internal/ir"
)

// Eval parses and evaluates source in c. Evaluation errors are returned as
// *ir.RunError.
func Eval(c *Ctx, source string) (Value, error) {
	expr, err := Parse(source)
	if err != nil {
		return nil, err
	}
	return expr.eval(c)
}

// CheckSyntax parses and walks source without reading any cells.
func CheckSyntax(source CellSource, sheet ir.SheetID, formula string) error {
	_, err := Eval(NewSyntaxCheckCtx(source, sheet), formula)
	return err
}

func (e numberExpr) eval(*Ctx) (Value, error) { return Single{V: ir.Number(e.v)}, nil }
func (e stringExpr) eval(*Ctx) (Value, error) { return Single{V: ir.Text(e.v)}, nil }
func (e boolExpr) eval(*Ctx) (Value, error)   { return Single{V: ir.Logical(e.v)}, nil }

func (e refExpr) eval(c *Ctx) (Value, error) {
	rect, err := c.ResolveRangeRef(e.ref)
	if err != nil {
		return nil, err
	}
	if e.ref.Kind == RangeCell {
		return Single{V: c.GetCell(ir.SheetPos{X: rect.Min.X, Y: rect.Min.Y, SheetID: rect.SheetID})}, nil
	}
	return c.GetCellArray(rect)
}

func (e unaryExpr) eval(c *Ctx) (Value, error) {
	x, err := e.x.eval(c)
	if err != nil {
		return nil, err
	}
	return c.ZipMap([]Value{x}, func(_ *Ctx, args []ir.CellValue) (ir.CellValue, error) {
		n, err := toNumber(args[0])
		if err != nil {
			return nil, err
		}
		if e.op == "-" {
			n = -n
		}
		return ir.Number(n), nil
	})
}

func (e binaryExpr) eval(c *Ctx) (Value, error) {
	l, err := e.l.eval(c)
	if err != nil {
		return nil, err
	}
	r, err := e.r.eval(c)
	if err != nil {
		return nil, err
	}
	return c.ZipMap([]Value{l, r}, func(_ *Ctx, args []ir.CellValue) (ir.CellValue, error) {
		return binaryOp(e.op, args[0], args[1])
	})
}

func binaryOp(op string, a, b ir.CellValue) (ir.CellValue, error) {
	if err, ok := a.(*ir.RunError); ok {
		return nil, err
	}
	if err, ok := b.(*ir.RunError); ok {
		return nil, err
	}
	switch op {
	case "&":
		return ir.Text(a.String() + b.String()), nil
	case "=", "<>", "<", ">", "<=", ">=":
		cmp, ok := compareValues(ir.OrBlank(a), ir.OrBlank(b))
		if !ok {
			return ir.Logical(op == "<>"), nil
		}
		return ir.Logical(cmp.satisfies(CompareOp(op))), nil
	}

	x, err := toNumber(a)
	if err != nil {
		return nil, err
	}
	y, err := toNumber(b)
	if err != nil {
		return nil, err
	}
	switch op {
	case "+":
		return ir.Number(x + y), nil
	case "-":
		return ir.Number(x - y), nil
	case "*":
		return ir.Number(x * y), nil
	case "/":
		if y == 0 {
			return nil, ir.NewRunError(ir.ErrDivideByZero, "")
		}
		return ir.Number(x / y), nil
	case "^":
		return ir.Number(math.Pow(x, y)), nil
	}
	return nil, ir.NewRunError(ir.ErrSyntax, "unknown operator %q", op)
}

// toNumber coerces a value for arithmetic. Blank is 0 and logicals are 0 or
// 1; text must parse as a number.
func toNumber(v ir.CellValue) (float64, error) {
	switch x := ir.OrBlank(v).(type) {
	case ir.Blank:
		return 0, nil
	case ir.Number:
		return float64(x), nil
	case ir.Logical:
		if x {
			return 1, nil
		}
		return 0, nil
	case ir.Text:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(x)), 64)
		if err != nil {
			return 0, ir.NewRunError(ir.ErrValue, "expected a number, got %q", string(x))
		}
		return f, nil
	case *ir.RunError:
		return 0, x
	}
	return 0, ir.NewRunError(ir.ErrValue, "expected a number")
}

// toBool coerces a value for IF.
func toBool(v ir.CellValue) (bool, error) {
	switch x := ir.OrBlank(v).(type) {
	case ir.Logical:
		return bool(x), nil
	case ir.Blank:
		return false, nil
	case ir.Number:
		return x != 0, nil
	case ir.Text:
		switch strings.ToUpper(string(x)) {
		case "TRUE":
			return true, nil
		case "FALSE":
			return false, nil
		}
		return false, ir.NewRunError(ir.ErrValue, "expected TRUE or FALSE, got %q", string(x))
	case *ir.RunError:
		return false, x
	}
	return false, ir.NewRunError(ir.ErrValue, "expected a logical")
}
