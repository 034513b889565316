package harness

// TraceEvent records what one step did, as seen from outside the
// controller.
type TraceEvent struct {
	Step int    `json:"step"`
	Kind string `json:"kind"`

	// Error is the CoreError code, or the message of any other error.
	Error string `json:"error,omitempty"`

	// Noop is set on an undo or redo with nothing to revert.
	Noop bool `json:"noop,omitempty"`

	// Requests are the interpreter and renderer requests the step sent,
	// e.g. "run_code s1!B1 Python" or "row_heights s1 [1 2]".
	Requests []string `json:"requests,omitempty"`

	// Resized are row height notifications, e.g. "s1 1=40".
	Resized []string `json:"resized,omitempty"`

	// Cells are the cells a get_cells step returned, e.g. "A1=number:3".
	Cells []string `json:"cells,omitempty"`

	Parked    int `json:"parked"`
	UndoDepth int `json:"undo_depth"`
	RedoDepth int `json:"redo_depth"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step and expectation matched.
	Pass bool `json:"pass"`

	Trace  []TraceEvent `json:"trace"`
	Errors []string     `json:"errors,omitempty"`

	// Digest is the final grid digest.
	Digest string `json:"digest"`

	// Replayed reports whether the journal was replayed and matched.
	Replayed bool `json:"replayed"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
