package grid

import "github.com/roach88/gridcore/internal/ir"

// Effect describes what one applied operation changed. The engine uses it
// to schedule dependent recomputation and renderer round trips.
type Effect struct {
	SheetID ir.SheetID

	// Changed are the regions whose displayed values may have changed.
	Changed []ir.SheetRect

	// CodeCells are code cells placed, replaced, moved or removed.
	CodeCells []ir.SheetPos

	// AutoResizeRows are rows whose rendered height may have changed and
	// should be measured again (already filtered by Grid.AutoResizeRows).
	AutoResizeRows []int64

	// ResizedRows are rows whose stored height actually changed.
	ResizedRows []ir.RowHeight

	// SheetRemoved is set when the operation deleted the sheet.
	SheetRemoved bool
}

// IsEmpty reports whether the effect carries nothing for the engine.
func (e Effect) IsEmpty() bool {
	return len(e.Changed) == 0 && len(e.CodeCells) == 0 &&
		len(e.AutoResizeRows) == 0 && len(e.ResizedRows) == 0 && !e.SheetRemoved
}
