// Package queryir provides an abstract query representation for the
// record store's filtered queries.
//
// QueryIR is the abstraction boundary between the gateway operations
// (list template lines, list rules by source question, list questionnaire
// lines by scope) and the SQL dialects the store runs on. Gateway code
// describes WHAT rows it needs; querysql decides HOW to ask a given backend.
//
//	[gateway method] → [Query IR] → [SQLite SQL]
//	                              → [PostgreSQL SQL]
//
// SUPPORTED FRAGMENT:
//   - Select(from, columns, filter, order) - single table access
//   - Predicates: Equals, In, IsNull, And
//   - Explicit columns (no SELECT *)
//   - Deterministic ordering (an explicit ORDER BY is always emitted)
//
// SEALED INTERFACES:
//
// Query and Predicate are sealed interfaces using the marker method pattern.
// Only types in this package can implement them, which keeps type switches
// in backends exhaustive:
//
//	switch p := pred.(type) {
//	case Equals:
//	case In:
//	case IsNull:
//	case And:
//	}
//
// Identifiers (tables, columns) are validated against a conservative
// pattern because they are spliced into SQL text; values are always
// parameterized by the backend.
package queryir
