package match

// Levenshtein returns the edit distance between a and b counted in runes,
// so that non-ASCII record keys are compared by character.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) < len(rb) {
		ra, rb = rb, ra
	}

	// single row over the shorter key; diag holds the previous row's value
	// to the left of the current cell
	row := make([]int, len(rb)+1)
	for j := range row {
		row[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		diag := row[0]
		row[0] = i

		for j := 1; j <= len(rb); j++ {
			above := row[j]

			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}

			row[j] = min(above+1, row[j-1]+1, diag+cost)
			diag = above
		}
	}

	return row[len(rb)]
}

// Similarity maps the edit distance of a and b onto [0, 1], 1 meaning equal.
func Similarity(a, b string) float64 {
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 1
	}

	return 1 - float64(Levenshtein(a, b))/float64(longest)
}

// KeyScore rates how well a record key names a property. Both are
// normalized first; the score is the better of the plain comparison and the
// one with identifier-like trailing words dropped, so "customer_id" fully
// matches both "customerId" and "customer".
func KeyScore(key, name string) float64 {
	plain := Similarity(NormalizeKey(key), NormalizeKey(name))
	stripped := Similarity(StripKeySuffix(key), StripKeySuffix(name))

	return max(plain, stripped)
}
