package testutil

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/gridcore/internal/grid"
	"github.com/roach88/gridcore/internal/ir"
)

// NewGrid creates a grid with one sheet per name. Sheet ids are "s1", "s2"
// and so on in the order given. With no names it creates "Sheet1".
func NewGrid(t testing.TB, names ...string) *grid.Grid {
	t.Helper()

	if len(names) == 0 {
		names = []string{"Sheet1"}
	}

	g := grid.New()
	for i, name := range names {
		_, err := g.AddSheet(SheetID(i+1), name)
		require.NoError(t, err)
	}
	return g
}

// SheetID returns the id NewGrid gives the n-th sheet.
func SheetID(n int) ir.SheetID {
	return ir.SheetID(fmt.Sprintf("s%d", n))
}

// At builds a SheetPos on sheet "s1".
func At(x, y int64) ir.SheetPos {
	return ir.SheetPos{X: x, Y: y, SheetID: SheetID(1)}
}
