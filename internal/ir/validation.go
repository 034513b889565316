package ir

import "slices"

// ValidationRuleKind selects how a validation constrains cell input.
type ValidationRuleKind string

const (
	RuleList        ValidationRuleKind = "list"
	RuleLogical     ValidationRuleKind = "logical"
	RuleNumberRange ValidationRuleKind = "number_range"
)

// ValidationRule is the constraint of a validation.
type ValidationRule struct {
	Kind ValidationRuleKind `json:"kind"`
	List []string           `json:"list,omitempty"`
	Min  *float64           `json:"min,omitempty"`
	Max  *float64           `json:"max,omitempty"`
}

// Validation constrains the values accepted by a rectangle of cells.
type Validation struct {
	ID      string         `json:"id"`
	SheetID SheetID        `json:"sheet_id"`
	Rect    Rect           `json:"rect"`
	Rule    ValidationRule `json:"rule"`
	Message string         `json:"message,omitempty"`
}

// Check reports whether v satisfies the rule. Blank always passes.
func (r ValidationRule) Check(v CellValue) bool {
	if IsBlank(v) {
		return true
	}
	switch r.Kind {
	case RuleList:
		return slices.Contains(r.List, v.String())
	case RuleLogical:
		_, ok := v.(Logical)
		return ok
	case RuleNumberRange:
		n, ok := v.(Number)
		if !ok {
			return false
		}
		if r.Min != nil && float64(n) < *r.Min {
			return false
		}
		if r.Max != nil && float64(n) > *r.Max {
			return false
		}
		return true
	default:
		return true
	}
}
