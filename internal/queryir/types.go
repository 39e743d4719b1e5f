package queryir

// Query represents an abstract query.
//
// This is a sealed interface - only types in this package implement it.
type Query interface {
	queryNode() // Marker method - seals interface to this package
}

// Predicate represents a filter condition.
//
// This is a sealed interface - only types in this package implement it.
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Select represents a single-table read.
//
// Semantics:
//
//	SELECT <columns> FROM <from> WHERE <filter> ORDER BY <order_by>, id
//
// Example:
//
//	Select{
//	  From:    "questionnaire_lines",
//	  Columns: []string{"id", "sort_order"},
//	  Filter: And{Predicates: []Predicate{
//	    Equals{Field: "project_id", Value: "P1"},
//	    Equals{Field: "active", Value: true},
//	  }},
//	  OrderBy: []string{"sort_order"},
//	}
//
// When TieBreak is empty the backend appends "id" as the final ordering key
// so results are deterministic even when OrderBy values repeat.
type Select struct {
	From     string    // Table name
	Columns  []string  // Explicit column list (required)
	Filter   Predicate // WHERE conditions (nil = no filter)
	OrderBy  []string  // Ascending ordering keys
	TieBreak string    // Final ordering key, defaults to "id"
}

func (Select) queryNode() {}

// Equals represents a field-equals-literal predicate.
//
// Value must be a string, an integer or a bool. Bools are stored as 0/1
// integers so they compare identically on every backend.
type Equals struct {
	Field string
	Value any
}

func (Equals) predicateNode() {}

// In represents a field membership predicate.
//
// An empty Values slice matches nothing.
type In struct {
	Field  string
	Values []any
}

func (In) predicateNode() {}

// IsNull matches rows where Field is NULL.
type IsNull struct {
	Field string
}

func (IsNull) predicateNode() {}

// And represents a conjunction of predicates (all must be true).
// An empty Predicates slice is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Where is shorthand for And over the given predicates.
func Where(preds ...Predicate) And {
	return And{Predicates: preds}
}
