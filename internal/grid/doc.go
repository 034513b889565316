// Package grid is the in-memory grid store the transaction engine mutates.
//
// The store exposes one mutation entry point, Grid.Apply, which applies a
// single operation and returns the Effect (what changed) and the reverse
// operations that restore the prior state exactly. Apply is deterministic
// and all-or-nothing: an operation either applies completely or returns an
// error with the grid untouched.
//
// Reverse operations are returned in push order. Undoing a transaction
// applies the accumulated reverse list back to front, so the last reverse
// operation of a group runs first (DeleteColumn relies on this to re-insert
// the column before restoring its content).
//
// Reads for formula evaluation go through DisplayValue, which resolves
// code cell output over plain values.
package grid
