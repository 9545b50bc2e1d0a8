package harness

import "github.com/roach88/crosshatch/internal/values"

// TraceEvent records one executed scenario step: who performed which
// operation, with which resolved arguments, and what came back. Events
// serialize to canonical JSON for golden comparison.
type TraceEvent struct {
	Seq    int64
	Actor  string
	Op     string
	Args   values.Values
	Result values.Values
}

// toValues flattens the event into a value bag for canonical
// serialization. Empty args and result bags are omitted so golden files
// stay readable.
func (e TraceEvent) toValues() values.Values {
	bag := values.Values{
		"seq":   values.Int(e.Seq),
		"actor": values.String(e.Actor),
		"op":    values.String(e.Op),
	}
	if len(e.Args) > 0 {
		bag["args"] = e.Args
	}
	if len(e.Result) > 0 {
		bag["result"] = e.Result
	}
	return bag
}

// Result is the outcome of one scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool

	// Trace lists executed steps in order.
	Trace []TraceEvent

	// Errors holds expect and assertion failures. Empty when Pass.
	Errors []string

	// Bindings maps bind names to the ids and counts steps produced.
	Bindings map[string]int64
}

// NewResult creates an empty passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Trace:    []TraceEvent{},
		Errors:   []string{},
		Bindings: make(map[string]int64),
	}
}

// AddError records a failure and marks the result failed.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}

// AddTrace appends one executed step to the trace.
func (r *Result) AddTrace(seq int64, actor, op string, args, result values.Values) {
	r.Trace = append(r.Trace, TraceEvent{
		Seq:    seq,
		Actor:  actor,
		Op:     op,
		Args:   args,
		Result: result,
	})
}
