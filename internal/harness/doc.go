// Package harness runs scripted scenarios against a real controller.
//
// A scenario drives one engine.Controller through edits, undo and redo,
// and the replies an interpreter or renderer would send, then checks the
// final grid. The interpreter and renderer are recorders: every request
// they receive lands in the step's trace event, and the scenario supplies
// the replies as later steps.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	sheets: [Sheet1, Data]
//	config: |
//	  max_cascade_steps: 10
//	steps:
//	  - edit:
//	      - set: {cell: A1, value: 2}
//	      - formula: {cell: B1, code: "=A1*3"}
//	      - code: {cell: C1, language: Python, code: "q.cells('A1')"}
//	      - format: {range: "A1:B1", wrap: true}
//	  - get_cells: {range: "A1:B1"}
//	  - code_result: {value: 7}
//	  - row_heights: {heights: {1: 40}}
//	  - undo: true
//	  - redo: true
//	  - server:
//	      - delete_column: {column: B}
//	    expect_error: TRANSACTION_NOT_FOUND
//	expect:
//	  cells: {A1: 2, B1: 6, "Data!A1": null, C1: "#DivideByZero"}
//	  row_heights: [{row: 1, height: 40}]
//	  parked: 0
//	  undo_depth: 1
//	  redo_depth: 0
//
// Replies (code_result, row_heights, get_cells) go to the single parked
// transaction. Cell expectations use "#Kind" for a cell error and null for
// a blank cell.
//
// # Journal Replay
//
// Every run journals to SQLite. When nothing is left parked the journal is
// replayed into a fresh grid and the digests must match. Edits made while
// another transaction is parked replay too, since a parked transaction's
// writes only reach the grid when it commits.
//
// # Golden Files
//
// RunWithGolden compares the canonical JSON trace with
// testdata/golden/{name}.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
