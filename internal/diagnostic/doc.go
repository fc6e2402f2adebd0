// Package diagnostic provides the error taxonomy of the traversal engine and
// structured warnings collected while a graph is walked.
//
// Key capabilities:
//   - Typed errors (ambiguous match, bidirectional drift, polymorphic
//     narrowing, unknown property, unmapped surrogate id) usable with errors.Is/As
//   - Per-traversal Diagnostics with codes, object paths and suggestions
//   - Best-effort failures recorded as warnings instead of aborting
package diagnostic
