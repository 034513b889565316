package ir

import "fmt"

// SheetID identifies a sheet. Sheet ids are opaque strings (UUIDv7 in
// production, readable names in tests).
type SheetID string

// Pos is a cell position on a single sheet.
type Pos struct {
	X int64 `json:"x"`
	Y int64 `json:"y"`
}

// String renders the position as "(x, y)".
func (p Pos) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// ToSheetPos attaches a sheet to the position.
func (p Pos) ToSheetPos(id SheetID) SheetPos {
	return SheetPos{X: p.X, Y: p.Y, SheetID: id}
}

// SheetPos is a cell position qualified by sheet.
type SheetPos struct {
	X       int64   `json:"x"`
	Y       int64   `json:"y"`
	SheetID SheetID `json:"sheet_id"`
}

// Pos drops the sheet.
func (p SheetPos) Pos() Pos {
	return Pos{X: p.X, Y: p.Y}
}

// String renders the position as "sheet!(x, y)".
func (p SheetPos) String() string {
	return fmt.Sprintf("%s!(%d, %d)", p.SheetID, p.X, p.Y)
}

// Rect is an inclusive rectangle of cells. Min is always the top-left
// corner; use NewRect to normalize arbitrary corners.
type Rect struct {
	Min Pos `json:"min"`
	Max Pos `json:"max"`
}

// NewRect builds a normalized rectangle from any two corners.
func NewRect(a, b Pos) Rect {
	return Rect{
		Min: Pos{X: min(a.X, b.X), Y: min(a.Y, b.Y)},
		Max: Pos{X: max(a.X, b.X), Y: max(a.Y, b.Y)},
	}
}

// SingleRect is the 1x1 rectangle at p.
func SingleRect(p Pos) Rect {
	return Rect{Min: p, Max: p}
}

// Width is the number of columns in the rectangle.
func (r Rect) Width() int64 { return r.Max.X - r.Min.X + 1 }

// Height is the number of rows in the rectangle.
func (r Rect) Height() int64 { return r.Max.Y - r.Min.Y + 1 }

// Contains reports whether p lies inside the rectangle.
func (r Rect) Contains(p Pos) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// Intersects reports whether the two rectangles share at least one cell.
func (r Rect) Intersects(o Rect) bool {
	return r.Min.X <= o.Max.X && o.Min.X <= r.Max.X &&
		r.Min.Y <= o.Max.Y && o.Min.Y <= r.Max.Y
}

// Union is the smallest rectangle covering both.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		Min: Pos{X: min(r.Min.X, o.Min.X), Y: min(r.Min.Y, o.Min.Y)},
		Max: Pos{X: max(r.Max.X, o.Max.X), Y: max(r.Max.Y, o.Max.Y)},
	}
}

// Positions returns every position of the rectangle in row-major order.
func (r Rect) Positions() []Pos {
	out := make([]Pos, 0, r.Width()*r.Height())
	for y := r.Min.Y; y <= r.Max.Y; y++ {
		for x := r.Min.X; x <= r.Max.X; x++ {
			out = append(out, Pos{X: x, Y: y})
		}
	}
	return out
}

// ToSheetRect attaches a sheet to the rectangle.
func (r Rect) ToSheetRect(id SheetID) SheetRect {
	return SheetRect{Min: r.Min, Max: r.Max, SheetID: id}
}

// SheetRect is a rectangle qualified by sheet.
type SheetRect struct {
	Min     Pos     `json:"min"`
	Max     Pos     `json:"max"`
	SheetID SheetID `json:"sheet_id"`
}

// SingleSheetRect is the 1x1 sheet rectangle at p.
func SingleSheetRect(p SheetPos) SheetRect {
	return SheetRect{Min: p.Pos(), Max: p.Pos(), SheetID: p.SheetID}
}

// NewSheetRect builds a normalized sheet rectangle from two corners.
func NewSheetRect(a, b Pos, id SheetID) SheetRect {
	return NewRect(a, b).ToSheetRect(id)
}

// Rect drops the sheet.
func (r SheetRect) Rect() Rect {
	return Rect{Min: r.Min, Max: r.Max}
}

// Size returns the dimensions of the rectangle.
func (r SheetRect) Size() ArraySize {
	return ArraySize{W: uint32(r.Rect().Width()), H: uint32(r.Rect().Height())}
}

// Contains reports whether p lies inside the rectangle on the same sheet.
func (r SheetRect) Contains(p SheetPos) bool {
	return r.SheetID == p.SheetID && r.Rect().Contains(p.Pos())
}

// Intersects reports whether the two rectangles overlap on the same sheet.
func (r SheetRect) Intersects(o SheetRect) bool {
	return r.SheetID == o.SheetID && r.Rect().Intersects(o.Rect())
}

// String renders the rectangle as "sheet!(x1, y1):(x2, y2)".
func (r SheetRect) String() string {
	return fmt.Sprintf("%s!%s:%s", r.SheetID, r.Min, r.Max)
}

// ArraySize is the width and height of a two-dimensional array of values.
type ArraySize struct {
	W uint32 `json:"w"`
	H uint32 `json:"h"`
}

// Len is the number of cells W*H.
func (s ArraySize) Len() int {
	return int(s.W) * int(s.H)
}

// IsScalar reports whether the size is 1x1.
func (s ArraySize) IsScalar() bool {
	return s.W == 1 && s.H == 1
}

// String renders the size as "WxH".
func (s ArraySize) String() string {
	return fmt.Sprintf("%dx%d", s.W, s.H)
}

// RowHeight pairs a row index with a height in pixels.
type RowHeight struct {
	Row    int64   `json:"row"`
	Height float64 `json:"height"`
}
