// Package match resolves record keys to properties. Keys and property names
// are split into words and compared by edit distance; kind compatibility
// breaks ties.
//
// Key functions:
//   - KeyScore: rates a record key against a property name
//   - ScoreKindCompatibility: scores how a value kind fits a property kind
//   - Rank: ranks record keys against a property
//   - Pick: chooses the key of a property or reports ambiguity
//   - Suggest: proposes close names for an unknown one
package match
