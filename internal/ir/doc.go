// Package ir provides the canonical data shapes shared by every gridcore
// package: coordinates, cell values, formats, borders, data tables and
// validations, plus canonical JSON and content hashing.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. Operations (package ops) and the
// grid store (package grid) are both expressed in these types, which keeps
// reverse operations exact: a reverse operation carries the same ir values
// the grid held before the forward operation ran.
//
// Key design constraints:
//   - Coordinates are int64 and unbounded in both directions
//   - CellValue is a sealed interface; Blank is the explicit "no value"
//   - All JSON tags use snake_case
//   - Transaction order uses logical sequence numbers, never wall-clock time
package ir
