// Package sema runs the static analyses over the core IR: arity
// inference and Hindley-Milner type inference on top of the constraint
// solver.
//
// Both passes iterate over the call graph's strongly connected
// components in dependency order, so callees are fully inferred before
// their callers. Singleton components only; larger components hit the
// mutual-recursion limitation. Functions that fail a pass are skipped by
// the passes that follow, but the pipeline continues for the rest of the
// module.
package sema
