package harness

import "encoding/json"

// Trace event kinds.
const (
	EventAccount     = "account"
	EventEvent       = "event"
	EventInstruction = "instruction"
)

// TraceEvent records one executed check.
type TraceEvent struct {
	Seq  int64  `json:"seq"`
	Kind string `json:"kind"`
	Name string `json:"name"`

	// Data is the hex of the bytes decoded or built.
	Data string `json:"data,omitempty"`

	// Value is the decoded value, or the parsed arguments of an
	// instruction, as ordered JSON.
	Value json.RawMessage `json:"value,omitempty"`

	// Accounts lists resolved account keys for full instruction builds.
	Accounts []string `json:"accounts,omitempty"`

	// Error is the error kind when the operation failed.
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario.
type Result struct {
	// Pass is true when every check matched its expectation.
	Pass bool `json:"pass"`

	// Trace holds one event per check in execution order: accounts,
	// then events, then instructions.
	Trace []TraceEvent `json:"trace"`

	// Errors holds one message per failed check. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// addTrace appends ev with the next sequence number.
func (r *Result) addTrace(ev TraceEvent) {
	ev.Seq = int64(len(r.Trace) + 1)
	r.Trace = append(r.Trace, ev)
}
