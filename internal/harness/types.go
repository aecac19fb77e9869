package harness

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq int    `json:"seq"`
	Do  string `json:"do"`

	// Outcome is "ok" or the rule error code the step returned.
	Outcome string `json:"outcome"`

	// Ref is the id of the entity the step produced or touched.
	Ref string `json:"ref,omitempty"`

	// Detail carries a step-specific summary, e.g. the invoice number.
	Detail string `json:"detail,omitempty"`
}

// OutcomeOK marks a step that returned no error.
const OutcomeOK = "ok"

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step matched its expectation and every
	// assertion held.
	Pass bool `json:"pass"`

	Trace  []TraceEvent `json:"trace"`
	Errors []string     `json:"errors,omitempty"`
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

func (r *Result) addTrace(ev TraceEvent) {
	ev.Seq = len(r.Trace) + 1
	r.Trace = append(r.Trace, ev)
}
