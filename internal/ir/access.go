package ir

import "slices"

// CellsAccessed is an insertion-ordered set of sheet rectangles read while
// computing one or more cells.
type CellsAccessed struct {
	rects []SheetRect
	seen  map[SheetRect]struct{}
}

// Add records a rectangle. Duplicates are ignored.
func (c *CellsAccessed) Add(r SheetRect) {
	if c.seen == nil {
		c.seen = make(map[SheetRect]struct{})
	}
	if _, ok := c.seen[r]; ok {
		return
	}
	c.seen[r] = struct{}{}
	c.rects = append(c.rects, r)
}

// AddPos records a single cell.
func (c *CellsAccessed) AddPos(p SheetPos) {
	c.Add(SingleSheetRect(p))
}

// Merge adds every rectangle of o.
func (c *CellsAccessed) Merge(o *CellsAccessed) {
	if o == nil {
		return
	}
	for _, r := range o.rects {
		c.Add(r)
	}
}

// Contains reports whether exactly this rectangle was recorded.
func (c *CellsAccessed) Contains(r SheetRect) bool {
	_, ok := c.seen[r]
	return ok
}

// Len is the number of distinct rectangles.
func (c *CellsAccessed) Len() int {
	return len(c.rects)
}

// Rects returns the rectangles in insertion order.
func (c *CellsAccessed) Rects() []SheetRect {
	return slices.Clone(c.rects)
}

// Intersects reports whether any recorded rectangle overlaps r.
func (c *CellsAccessed) Intersects(r SheetRect) bool {
	for _, x := range c.rects {
		if x.Intersects(r) {
			return true
		}
	}
	return false
}
