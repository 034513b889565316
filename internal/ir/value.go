package ir

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// CellValue is a sealed interface over the values a cell can display.
// Only Blank, Text, Number, Logical and *RunError implement it.
//
// Values serialize as a tagged object:
//
//	{"type":"number","value":12.5}
//	{"type":"error","kind":"CircularReference","msg":"..."}
type CellValue interface {
	cellValue()

	// TypeName is the lowercase type name reported to code cells.
	TypeName() string

	// String is the display form of the value.
	String() string
}

// Blank is the absence of a value. Writing Blank to a cell clears it.
type Blank struct{}

// Text is a string value.
type Text string

// Number is a numeric value. NaN and infinities never reach the grid;
// arithmetic that would produce them yields a RunError instead.
type Number float64

// Logical is a boolean value.
type Logical bool

func (Blank) cellValue()   {}
func (Text) cellValue()    {}
func (Number) cellValue()  {}
func (Logical) cellValue() {}

// Type names reported by TypeName.
const (
	TypeBlank   = "blank"
	TypeText    = "text"
	TypeNumber  = "number"
	TypeLogical = "logical"
	TypeError   = "error"
)

func (Blank) TypeName() string   { return TypeBlank }
func (Text) TypeName() string    { return TypeText }
func (Number) TypeName() string  { return TypeNumber }
func (Logical) TypeName() string { return TypeLogical }

func (Blank) String() string { return "" }

func (t Text) String() string { return string(t) }

func (n Number) String() string {
	f := float64(n)
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func (l Logical) String() string {
	if l {
		return "TRUE"
	}
	return "FALSE"
}

// IsBlank reports whether v is nil or Blank.
func IsBlank(v CellValue) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Blank)
	return ok
}

// OrBlank maps nil to Blank.
func OrBlank(v CellValue) CellValue {
	if v == nil {
		return Blank{}
	}
	return v
}

// ValuesEqual compares two cell values, treating nil as Blank.
func ValuesEqual(a, b CellValue) bool {
	a, b = OrBlank(a), OrBlank(b)
	if ea, ok := a.(*RunError); ok {
		eb, ok := b.(*RunError)
		return ok && ea.Kind == eb.Kind && ea.Msg == eb.Msg
	}
	return a == b
}

// cellValueJSON is the wire form of every CellValue.
type cellValueJSON struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value,omitempty"`
	Kind  RunErrorKind    `json:"kind,omitempty"`
	Msg   string          `json:"msg,omitempty"`
}

func (Blank) MarshalJSON() ([]byte, error) {
	return json.Marshal(cellValueJSON{Type: TypeBlank})
}

func (t Text) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(string(t))
	if err != nil {
		return nil, err
	}
	return json.Marshal(cellValueJSON{Type: TypeText, Value: raw})
}

func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("number %v cannot be serialized", f)
	}
	raw, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return json.Marshal(cellValueJSON{Type: TypeNumber, Value: raw})
}

func (l Logical) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(bool(l))
	if err != nil {
		return nil, err
	}
	return json.Marshal(cellValueJSON{Type: TypeLogical, Value: raw})
}

// MarshalCellValue encodes v, mapping nil to Blank.
func MarshalCellValue(v CellValue) ([]byte, error) {
	return json.Marshal(OrBlank(v))
}

// UnmarshalCellValue decodes the tagged wire form of a cell value.
func UnmarshalCellValue(data []byte) (CellValue, error) {
	if string(data) == "null" {
		return Blank{}, nil
	}
	var w cellValueJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode cell value: %w", err)
	}
	switch w.Type {
	case TypeBlank, "":
		return Blank{}, nil
	case TypeText:
		var s string
		if err := json.Unmarshal(w.Value, &s); err != nil {
			return nil, fmt.Errorf("decode text value: %w", err)
		}
		return Text(s), nil
	case TypeNumber:
		var f float64
		if err := json.Unmarshal(w.Value, &f); err != nil {
			return nil, fmt.Errorf("decode number value: %w", err)
		}
		return Number(f), nil
	case TypeLogical:
		var b bool
		if err := json.Unmarshal(w.Value, &b); err != nil {
			return nil, fmt.Errorf("decode logical value: %w", err)
		}
		return Logical(b), nil
	case TypeError:
		return &RunError{Kind: w.Kind, Msg: w.Msg}, nil
	default:
		return nil, fmt.Errorf("unknown cell value type %q", w.Type)
	}
}

// unmarshalCellValues decodes a JSON array of tagged cell values.
func unmarshalCellValues(raw []json.RawMessage) ([]CellValue, error) {
	out := make([]CellValue, len(raw))
	for i, r := range raw {
		v, err := UnmarshalCellValue(r)
		if err != nil {
			return nil, fmt.Errorf("values[%d]: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// CellValues is a row-major block of values anchored at some position.
// A Blank entry clears the target cell.
type CellValues struct {
	W      uint32      `json:"w"`
	H      uint32      `json:"h"`
	Values []CellValue `json:"values"`
}

// NewCellValues allocates a w x h block of Blank values.
func NewCellValues(w, h uint32) CellValues {
	vals := make([]CellValue, int(w)*int(h))
	for i := range vals {
		vals[i] = Blank{}
	}
	return CellValues{W: w, H: h, Values: vals}
}

// SingleValue wraps one value in a 1x1 block.
func SingleValue(v CellValue) CellValues {
	return CellValues{W: 1, H: 1, Values: []CellValue{OrBlank(v)}}
}

// Get returns the value at (x, y) relative to the block origin.
func (c CellValues) Get(x, y uint32) CellValue {
	if x >= c.W || y >= c.H {
		return Blank{}
	}
	return OrBlank(c.Values[int(y)*int(c.W)+int(x)])
}

// Set stores a value at (x, y) relative to the block origin.
func (c *CellValues) Set(x, y uint32, v CellValue) {
	if x >= c.W || y >= c.H {
		return
	}
	c.Values[int(y)*int(c.W)+int(x)] = OrBlank(v)
}

// Size returns the block dimensions.
func (c CellValues) Size() ArraySize {
	return ArraySize{W: c.W, H: c.H}
}

// UnmarshalJSON decodes the tagged values of the block.
func (c *CellValues) UnmarshalJSON(data []byte) error {
	var w struct {
		W      uint32            `json:"w"`
		H      uint32            `json:"h"`
		Values []json.RawMessage `json:"values"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	vals, err := unmarshalCellValues(w.Values)
	if err != nil {
		return err
	}
	if len(vals) != int(w.W)*int(w.H) {
		return fmt.Errorf("cell values: %d values for %dx%d block", len(vals), w.W, w.H)
	}
	*c = CellValues{W: w.W, H: w.H, Values: vals}
	return nil
}
