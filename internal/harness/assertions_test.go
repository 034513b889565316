package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/gridcore/internal/ir"
)

func TestDescribe(t *testing.T) {
	assert.Equal(t, "number:3", describe(ir.Number(3)))
	assert.Equal(t, "text:hi", describe(ir.Text("hi")))
	assert.Equal(t, "blank:", describe(nil))
	assert.Equal(t, "logical:TRUE", describe(ir.Logical(true)))
	assert.Equal(t, "error:DivideByZero", describe(ir.NewRunError(ir.ErrDivideByZero, "divide by zero")))
}

func TestCheckExpect_RowHeights(t *testing.T) {
	s := &Scenario{
		Name:        "manual_row",
		Description: "a row sized by hand keeps its height",
		Steps: []Step{
			{Edit: []Action{{ResizeRow: &ResizeAction{Index: 2, Size: 50}}}},
		},
		Expect: Expect{RowHeights: []RowHeightExpect{
			{Row: 2, Height: 50},
			{Row: 3, Height: 99},
		}},
	}

	result, err := Run(s)
	assert.NoError(t, err)
	assert.Equal(t, []string{"row 3 of s1: expected height 99, got 21"}, result.Errors)
}
