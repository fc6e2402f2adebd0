// Package action implements the deferred mutation queue of one traversal.
//
// Setters, element additions and removals are keyed by PropertyKey. A later
// setter on the same key supersedes the earlier one; element actions
// accumulate. Actions may run after a cause action, and Flush replays them in
// a single topological pass: the main pass first, then the persistence step
// inserting transient objects, then the open property actions that had to
// wait for generated identifiers.
//
// Bidirectional associations are maintained by SetReference, AddReference and
// RemoveReference, which queue the opposite-side actions as dependents of the
// forward one. Conflicting claims are reported before flush and the
// invariant is verified after it.
package action
