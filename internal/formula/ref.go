package formula

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/gridcore/internal/ir"
)

// CellRef is a reference to one cell, optionally on a named sheet. An empty
// Sheet means the sheet of the cell being computed.
type CellRef struct {
	Sheet string
	Pos   ir.Pos
}

// RangeKind distinguishes the shapes a range reference can take.
type RangeKind int

const (
	// RangeCell is a single cell (A1).
	RangeCell RangeKind = iota
	// RangeCells is a rectangle (A1:B3).
	RangeCells
	// RangeColumn is a whole column span (A:C).
	RangeColumn
	// RangeRow is a whole row span (1:3).
	RangeRow
)

// RangeRef is a parsed reference. Start and End are set for RangeCells;
// only Start for RangeCell.
type RangeRef struct {
	Kind  RangeKind
	Start CellRef
	End   CellRef
}

// parseA1 parses "B3" or "$B$3" into a position where A1 is (1, 1).
func parseA1(s string) (ir.Pos, bool) {
	s = strings.ReplaceAll(s, "$", "")
	i := 0
	for i < len(s) && isLetter(s[i]) {
		i++
	}
	if i == 0 || i == len(s) {
		return ir.Pos{}, false
	}
	col, ok := columnFromLetters(s[:i])
	if !ok {
		return ir.Pos{}, false
	}
	row, err := strconv.ParseInt(s[i:], 10, 64)
	if err != nil || row < 1 {
		return ir.Pos{}, false
	}
	return ir.Pos{X: col, Y: row}, true
}

// ParseA1 parses a cell name such as "B3".
func ParseA1(s string) (ir.Pos, error) {
	p, ok := parseA1(strings.TrimSpace(s))
	if !ok {
		return ir.Pos{}, fmt.Errorf("invalid cell name %q", s)
	}
	return p, nil
}

// ParseA1Range parses "B3" or "A1:C4" into a normalized rectangle.
func ParseA1Range(s string) (ir.Rect, error) {
	from, to, found := strings.Cut(s, ":")
	a, err := ParseA1(from)
	if err != nil {
		return ir.Rect{}, err
	}
	if !found {
		return ir.SingleRect(a), nil
	}
	b, err := ParseA1(to)
	if err != nil {
		return ir.Rect{}, err
	}
	return ir.NewRect(a, b), nil
}

// columnFromLetters maps A→1, Z→26, AA→27.
func columnFromLetters(s string) (int64, bool) {
	s = strings.ToUpper(strings.ReplaceAll(s, "$", ""))
	if s == "" || len(s) > 7 {
		return 0, false
	}
	var n int64
	for i := 0; i < len(s); i++ {
		if !isLetter(s[i]) {
			return 0, false
		}
		n = n*26 + int64(s[i]-'A'+1)
	}
	return n, true
}

// ColumnName maps 1→A, 27→AA. Columns below 1 render as their number.
func ColumnName(col int64) string {
	if col < 1 {
		return fmt.Sprintf("[%d]", col)
	}
	var b []byte
	for col > 0 {
		col--
		b = append([]byte{byte('A' + col%26)}, b...)
		col /= 26
	}
	return string(b)
}

// A1 renders a position in A1 notation.
func A1(p ir.Pos) string {
	return fmt.Sprintf("%s%d", ColumnName(p.X), p.Y)
}

func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
