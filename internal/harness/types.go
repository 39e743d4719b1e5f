package harness

// TraceEvent records one executed step and the questionnaire after it.
type TraceEvent struct {
	Step       int      `json:"step"`
	Op         string   `json:"op"`
	Outcome    string   `json:"outcome"` // "ok", "partial" or "error"
	Code       string   `json:"code,omitempty"`
	Error      string   `json:"error,omitempty"`
	Questions  []string `json:"questions,omitempty"`
	FiredRules []string `json:"fired_rules,omitempty"`
	Lines      []string `json:"lines"` // active lines as "variable@sort_order"
}

// Step outcomes.
const (
	OutcomeOK      = "ok"
	OutcomePartial = "partial"
	OutcomeError   = "error"
)

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true if every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace contains one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Lines are the project's active lines after the last step.
	Lines []string `json:"lines"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Lines:  []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step event.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
