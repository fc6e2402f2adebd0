package match

import (
	"sort"

	"aggregate-mapper/internal/diagnostic"
	"aggregate-mapper/primitive"
)

// Field is a named slot with an optional scalar kind: a record key with the
// kind of its value, or a property with its declared kind.
type Field struct {
	Name string
	Kind primitive.KindEnum
}

// Candidate represents a potential match of a source field to a target field.
type Candidate struct {
	Source Field
	Target Field

	// Scoring components
	NameScore float64                 // KeyScore of the source name (0-1)
	Compat    KindCompatibilityResult // Kind compatibility result

	// Combined score for ranking (higher is better)
	CombinedScore float64

	NormalizedSourceName string
	NormalizedTargetName string
}

// CandidateList is a list of candidates with ranking functionality.
type CandidateList []Candidate

// Rank finds and ranks source fields against a target field.
// Returns candidates sorted by combined score (descending).
func Rank(target Field, sources []Field, allowed primitive.CategoryEnum) CandidateList {
	candidates := make(CandidateList, 0, len(sources))

	targetNorm := NormalizeKey(target.Name)

	for _, source := range sources {
		sourceNorm := NormalizeKey(source.Name)
		nameScore := KeyScore(source.Name, target.Name)

		compat := ScoreKindCompatibility(source.Kind, target.Kind, allowed)

		candidates = append(candidates, Candidate{
			Source:               source,
			Target:               target,
			NameScore:            nameScore,
			Compat:               compat,
			CombinedScore:        calculateCombinedScore(nameScore, compat.Compatibility),
			NormalizedSourceName: sourceNorm,
			NormalizedTargetName: targetNorm,
		})
	}

	sort.Sort(candidates)

	return candidates
}

// calculateCombinedScore computes a combined score from name similarity and kind compatibility.
// Weights:
//   - Name similarity: 70% (0.0-0.7)
//   - Kind compatibility: 30% (0.0-0.3)
func calculateCombinedScore(nameScore float64, compat KindCompatibility) float64 {
	const (
		nameWeight = 0.7
		kindWeight = 0.3
	)

	var kindScore float64
	switch compat {
	case KindIdentical:
		kindScore = 1.0
	case KindConvertible:
		kindScore = 0.8
	case KindUnknown:
		kindScore = 0.6
	case KindIncompatible:
		kindScore = 0.0
	}

	return nameScore*nameWeight + kindScore*kindWeight
}

// Len implements sort.Interface.
func (c CandidateList) Len() int { return len(c) }

// Swap implements sort.Interface.
func (c CandidateList) Swap(i, j int) { c[i], c[j] = c[j], c[i] }

// Less implements sort.Interface.
// Sorts by combined score descending, then by source name for determinism.
func (c CandidateList) Less(i, j int) bool {
	if c[i].CombinedScore != c[j].CombinedScore {
		return c[i].CombinedScore > c[j].CombinedScore
	}

	return c[i].Source.Name < c[j].Source.Name
}

// Top returns the top n candidates.
func (c CandidateList) Top(n int) CandidateList {
	if n >= len(c) {
		return c
	}
	return c[:n]
}

// Best returns the best candidate, or nil if no candidates.
func (c CandidateList) Best() *Candidate {
	if len(c) == 0 {
		return nil
	}
	return &c[0]
}

// IsAmbiguous returns true if the top two candidates are within the threshold.
func (c CandidateList) IsAmbiguous(threshold float64) bool {
	if len(c) < 2 {
		return false
	}
	return c[0].CombinedScore-c[1].CombinedScore < threshold
}

// AboveThreshold returns candidates with combined score above the threshold.
func (c CandidateList) AboveThreshold(threshold float64) CandidateList {
	var result CandidateList
	for _, cand := range c {
		if cand.CombinedScore >= threshold {
			result = append(result, cand)
		}
	}
	return result
}

// HighConfidence returns the best candidate if it's significantly better than alternatives.
// Returns nil if no clear winner exists.
func (c CandidateList) HighConfidence(minScore, minGap float64) *Candidate {
	if len(c) == 0 {
		return nil
	}
	best := &c[0]

	if best.CombinedScore < minScore {
		return nil
	}

	if best.Compat.Compatibility == KindIncompatible {
		return nil
	}

	if len(c) > 1 && c[0].CombinedScore-c[1].CombinedScore < minGap {
		return nil
	}

	return best
}

// Confidence thresholds for auto-accepting matches.
const (
	// DefaultMinScore is the minimum combined score for auto-acceptance.
	DefaultMinScore = 0.75
	// DefaultMinGap is the minimum score gap between top candidates.
	DefaultMinGap = 0.1
	// DefaultSuggestScore is the minimum name score for a suggestion.
	DefaultSuggestScore = 0.5
)

// Pick chooses the source field matching target. It returns (nil, nil) when
// no candidate reaches DefaultMinScore, and an AmbiguousMatchError when
// several do but none stands out by DefaultMinGap.
func Pick(typeName string, target Field, sources []Field, allowed primitive.CategoryEnum) (*Candidate, error) {
	ranked := Rank(target, sources, allowed)

	if best := ranked.HighConfidence(DefaultMinScore, DefaultMinGap); best != nil {
		return best, nil
	}

	contenders := ranked.AboveThreshold(DefaultMinScore)
	if len(contenders) < 2 {
		return nil, nil
	}

	names := make([]string, 0, len(contenders))
	for _, cand := range contenders {
		names = append(names, cand.Source.Name)
	}

	return nil, &diagnostic.AmbiguousMatchError{
		Type:       typeName,
		Path:       target.Name,
		Candidates: names,
	}
}

// Suggest returns up to n names closest to name, best first.
func Suggest(name string, names []string, n int) []string {
	sources := make([]Field, 0, len(names))
	for _, candidate := range names {
		sources = append(sources, Field{Name: candidate})
	}

	var res []string
	for _, cand := range Rank(Field{Name: name}, sources, primitive.CategoryNone).Top(n) {
		if cand.NameScore >= DefaultSuggestScore {
			res = append(res, cand.Source.Name)
		}
	}

	return res
}
