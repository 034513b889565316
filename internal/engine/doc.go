// Package engine implements the gridcore transaction controller.
//
// The controller is the heart of gridcore: it applies operations to the
// grid, records their reverse operations for undo, suspends transactions
// that wait on interpreters or the renderer, and recomputes code cells whose
// inputs changed.
//
// ARCHITECTURE:
//
// Single Writer:
// All grid and transaction state is mutated on one goroutine. Hosts either
// call the controller directly from a single thread, or run Controller.Run
// and submit work with Enqueue. Interpreter and renderer replies arrive on
// arbitrary goroutines and are funnelled through the inbox.
//
// Transaction Flow:
//  1. Start creates a PendingTransaction with a FIFO queue of operations
//  2. drain applies operations one at a time; the grid returns the effect
//     and the reverse operations, which are appended to the transaction
//  3. A ComputeCode for a non-formula cell parks the transaction in the
//     AsyncRegistry and sends a CodeRequest
//  4. CompleteCode removes it from the registry, turns the reply into a
//     SetDataTable and resumes draining
//  5. When the queue is empty, rows that need measuring park the
//     transaction on the renderer (user transactions only)
//  6. finalize pushes the reverse operations onto the undo or redo stack,
//     journals the transaction and schedules dependent recomputation in a
//     follow-up transaction
//
// Dependents recompute in dependency order. A cell whose reads lead back to
// its own output becomes a CircularReference, and the number of follow-ups
// in one cascade is capped by max_cascade_steps.
//
// Journal entries are stamped with seq numbers from a logical Clock, never
// wall-clock time, so replay applies them in commit order.
package engine
