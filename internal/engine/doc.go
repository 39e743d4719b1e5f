// Package engine implements the questionnaire composition engine.
//
// The engine turns a project's product template and configuration answers
// into questionnaire lines, and merges hand-picked questions and modules
// into an existing questionnaire without duplicates.
//
// ARCHITECTURE:
//
// Pure core, effectful shell:
//   - Rule Evaluator (Fires, FiredRules) and Inclusion Resolver (Resolve)
//     are pure functions over already-loaded records
//   - Expander, the Duplicate Guard and the Sort-Order Allocator talk to
//     the record store through the Gateway interface
//   - Composer wires them into the public operations (ApplyTemplate,
//     AddQuestionsOrModules, AddCustomQuestion, line lifecycle)
//
// Resolution is a fold over effects: template-line seeds in declaration
// order, then fired rules ordered by (seq, id). Each effect overwrites the
// inclusion flag of every question bank its target expands to, so the
// last applied effect wins.
//
// CRITICAL PATTERNS:
//
// Deterministic evaluation
// The same records always produce the same resolution and fingerprint.
// No randomness, no wall clock, no goroutines.
//
// Validation before writes
// Not-found, duplicate and request errors abort before the first write.
// Only batch insertion can leave partial state, and it reports it as
// PARTIAL_BATCH_FAILURE together with the committed result.
package engine
