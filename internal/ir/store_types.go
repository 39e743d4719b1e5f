package ir

import "errors"

// NOTE: These types describe the record store contract, not catalog content.

// ErrNoRecord is returned by record store point lookups when nothing matches.
var ErrNoRecord = errors.New("record not found")

// BatchMode selects how a record store batch reacts to a failing item.
type BatchMode int

const (
	// ContinueOnError executes every item and reports each outcome.
	ContinueOnError BatchMode = iota
	// FailFast stops at the first failing item and keeps no partial state.
	FailFast
)

// String returns the batch mode name used in logs.
func (m BatchMode) String() string {
	switch m {
	case ContinueOnError:
		return "continue_on_error"
	case FailFast:
		return "fail_fast"
	default:
		return "unknown"
	}
}

// ItemOutcome is the per-item result of a batch operation.
// Index refers to the position of the item in the submitted batch.
type ItemOutcome struct {
	Index int    `json:"index"`
	ID    string `json:"id"`
	Err   error  `json:"-"`
}

// OK reports whether the item was written.
func (o ItemOutcome) OK() bool {
	return o.Err == nil
}

// LineUpdate changes mutable fields of an existing questionnaire line.
// Nil fields are left untouched.
type LineUpdate struct {
	ID        string `json:"id"`
	SortOrder *int   `json:"sort_order,omitempty"`
	Active    *bool  `json:"active,omitempty"`
}

// LineScope filters questionnaire line queries.
type LineScope int

const (
	// ScopeActive returns active lines only.
	ScopeActive LineScope = iota
	// ScopeAll returns active and inactive lines.
	ScopeAll
)
