package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/gridcore/internal/ir"
)

// checkExpect compares the final controller state against the scenario's
// expectations and returns one message per mismatch, in a stable order.
func (h *Harness) checkExpect(e Expect) []string {
	var errs []string

	refs := make([]string, 0, len(e.Cells))
	for ref := range e.Cells {
		refs = append(refs, ref)
	}
	slices.Sort(refs)
	for _, ref := range refs {
		if msg := h.checkCell(ref, e.Cells[ref]); msg != "" {
			errs = append(errs, msg)
		}
	}

	for _, rh := range e.RowHeights {
		id, err := h.sheetID(rh.Sheet)
		if err != nil {
			errs = append(errs, fmt.Sprintf("row_heights: %v", err))
			continue
		}
		if got := h.ctrl.Grid().Sheet(id).RowHeight(rh.Row); got != rh.Height {
			errs = append(errs, fmt.Sprintf("row %d of %s: expected height %g, got %g", rh.Row, id, rh.Height, got))
		}
	}

	checkInt := func(name string, want *int, got int) {
		if want != nil && *want != got {
			errs = append(errs, fmt.Sprintf("%s: expected %d, got %d", name, *want, got))
		}
	}
	checkInt("parked", e.Parked, h.ctrl.Registry().Len())
	checkInt("undo_depth", e.UndoDepth, h.ctrl.History().UndoDepth())
	checkInt("redo_depth", e.RedoDepth, h.ctrl.History().RedoDepth())

	return errs
}

func (h *Harness) checkCell(ref string, want any) string {
	sp, err := h.cell(ref)
	if err != nil {
		return fmt.Sprintf("cell %s: %v", ref, err)
	}
	got := h.ctrl.Grid().DisplayValue(sp)

	if s, ok := want.(string); ok && strings.HasPrefix(s, "#") {
		kind := ir.RunErrorKind(strings.TrimPrefix(s, "#"))
		re, ok := got.(*ir.RunError)
		if !ok || re.Kind != kind {
			return fmt.Sprintf("cell %s: expected error %s, got %s", ref, kind, describe(got))
		}
		return ""
	}

	wantValue, err := cellValue(want)
	if err != nil {
		return fmt.Sprintf("cell %s: %v", ref, err)
	}
	if !ir.ValuesEqual(wantValue, got) {
		return fmt.Sprintf("cell %s: expected %s, got %s", ref, describe(wantValue), describe(got))
	}
	return ""
}

// describe renders a value with its type, e.g. number:3 or error:DivideByZero.
func describe(v ir.CellValue) string {
	v = ir.OrBlank(v)
	if re, ok := v.(*ir.RunError); ok {
		return "error:" + string(re.Kind)
	}
	return v.TypeName() + ":" + v.String()
}
