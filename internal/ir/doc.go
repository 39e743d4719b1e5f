// Package ir provides the domain types shared by every layer of the study
// designer: the configuration catalog (questions, answers, rules, templates,
// modules, question banks), projects with their answer selections, and the
// materialized questionnaire lines.
//
// This package contains type definitions and small pure helpers only. All
// other internal packages import ir; ir imports nothing internal. This keeps
// ir the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Targets are a tagged union (Target{Kind, ID}), never an interface
//     hierarchy, so a single expansion function handles both kinds
//   - All JSON tags use snake_case
//   - Ordering is always explicit (Position, Seq, SortOrder), never implied
//     by map iteration or wall-clock time
package ir
