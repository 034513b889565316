// Package formula evaluates spreadsheet formulas against a read-only view
// of the grid.
//
// The evaluation context (Ctx) resolves references relative to the cell
// being computed, records every cell read into CellsAccessed, reports a
// CircularReference when a formula reads its own cell, and applies
// array-broadcast semantics through ZipMap.
//
// The language itself is deliberately small: numbers, strings, booleans,
// A1 references with optional sheet prefix, ranges, arithmetic and
// comparison operators, and a handful of functions (SUM, AVERAGE, IF,
// COUNTIFS, SUMIFS).
package formula
