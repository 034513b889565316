package formula

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/roach88/gridcore/internal/ir"
)

// CompareOp is the comparison a criterion applies.
type CompareOp string

const (
	OpEq CompareOp = "="
	OpNe CompareOp = "<>"
	OpLt CompareOp = "<"
	OpGt CompareOp = ">"
	OpLe CompareOp = "<="
	OpGe CompareOp = ">="
)

// Criterion is a parsed COUNTIFS-style condition such as ">3" or "apple".
type Criterion struct {
	Op    CompareOp
	Value ir.CellValue
}

// ParseCriterion interprets a criteria value. Text may start with a
// comparison operator; the remainder is read as a number when it parses as
// one. Any other value is an equality test.
func ParseCriterion(v ir.CellValue) (Criterion, error) {
	switch val := ir.OrBlank(v).(type) {
	case *ir.RunError:
		return Criterion{}, val
	case ir.Text:
		s := string(val)
		op := OpEq
		for _, candidate := range []CompareOp{OpLe, OpGe, OpNe, OpLt, OpGt, OpEq} {
			if strings.HasPrefix(s, string(candidate)) {
				op = candidate
				s = s[len(candidate):]
				break
			}
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return Criterion{Op: op, Value: ir.Number(f)}, nil
		}
		switch strings.ToUpper(s) {
		case "TRUE":
			return Criterion{Op: op, Value: ir.Logical(true)}, nil
		case "FALSE":
			return Criterion{Op: op, Value: ir.Logical(false)}, nil
		}
		return Criterion{Op: op, Value: ir.Text(s)}, nil
	default:
		return Criterion{Op: OpEq, Value: val}, nil
	}
}

// Matches reports whether v satisfies the criterion. Values of different
// types only ever satisfy "<>".
func (c Criterion) Matches(v ir.CellValue) bool {
	cmp, ok := compareValues(ir.OrBlank(v), c.Value)
	if !ok {
		return c.Op == OpNe
	}
	return cmp.satisfies(c.Op)
}

type ordering int

func (o ordering) satisfies(op CompareOp) bool {
	switch op {
	case OpEq:
		return o == 0
	case OpNe:
		return o != 0
	case OpLt:
		return o < 0
	case OpGt:
		return o > 0
	case OpLe:
		return o <= 0
	case OpGe:
		return o >= 0
	}
	return false
}

// compareValues orders two values of the same type. Text compares
// case-insensitively and blank equals the empty string.
func compareValues(a, b ir.CellValue) (ordering, bool) {
	if _, ok := a.(ir.Blank); ok {
		a = blankLike(b)
	}
	if _, ok := b.(ir.Blank); ok {
		b = blankLike(a)
	}
	switch x := a.(type) {
	case ir.Blank:
		if _, ok := b.(ir.Blank); ok {
			return 0, true
		}
	case ir.Number:
		if y, ok := b.(ir.Number); ok {
			return orderOf(float64(x) < float64(y), float64(x) > float64(y)), true
		}
	case ir.Text:
		if y, ok := b.(ir.Text); ok {
			caser := cases.Fold()
			fx, fy := caser.String(string(x)), caser.String(string(y))
			return orderOf(fx < fy, fx > fy), true
		}
	case ir.Logical:
		if y, ok := b.(ir.Logical); ok {
			return orderOf(!bool(x) && bool(y), bool(x) && !bool(y)), true
		}
	}
	return 0, false
}

// blankLike returns the zero value of other's type, so that a blank cell
// compares as 0, "" or FALSE.
func blankLike(other ir.CellValue) ir.CellValue {
	switch other.(type) {
	case ir.Number:
		return ir.Number(0)
	case ir.Text:
		return ir.Text("")
	case ir.Logical:
		return ir.Logical(false)
	default:
		return ir.Blank{}
	}
}

func orderOf(less, greater bool) ordering {
	switch {
	case less:
		return -1
	case greater:
		return 1
	default:
		return 0
	}
}
