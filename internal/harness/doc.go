// Package harness runs questionnaire composition scenarios end to end.
//
// A scenario names a CUE catalog, a project from it, optional selection
// overrides and pre-existing questionnaire lines, then a list of steps
// executed through the engine against a real SQLite store.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	catalog: ../catalogs/music.cue
//	project: P1
//	selections:
//	  music_genre: [rock, pop]
//	lines:
//	  - { id: E1, question: AGE, sort_order: 1 }
//	  - { id: C1, variable_name: Q_OTHER, sort_order: 2, active: false }
//	steps:
//	  - op: resolve
//	    expect: { questions: [A, B] }
//	  - op: add
//	    kind: Question
//	    ids: [BRAND]
//	    sort_order: 2
//	  - op: apply
//	    expect: { code: VALIDATION, error: "already exists" }
//	assertions:
//	  - type: lines_order
//	    lines: ["A@1", "BRAND@2", "B@3"]
//
// # Steps
//
//   - resolve: ResolveTemplate, expect.questions matches resolved ids
//   - apply: ApplyTemplate, expect.questions matches applied ids
//   - add: AddQuestionsOrModules with kind, ids and sort_order
//   - custom: AddCustomQuestion with variable_name, text and sort_order
//   - deactivate / reactivate: line lifecycle on the line id
//
// A step without sort_order appends. An error fails the scenario unless the
// step expects it.
//
// # Deterministic Testing
//
// Line ids come from a sequence generator ("line-001", ...) and every
// scenario runs on a fresh database, so traces are identical across runs
// and can be compared against golden files.
package harness
