package dedup

// Sequence-ratio similarity in [0, 1] over already-normalized text.
// The full ratio is 2*LCS/(len(a)+len(b)); on top of that a partial
// window pass lets a short venue name ("la forum") score against the
// best same-length slice of a longer one ("los angeles forum"), which
// is what catches abbreviated venues across sources.

// Similarity returns the larger of the full and partial ratios.
func Similarity(a, b string) float64 {
	if a == b {
		if a == "" {
			return 0
		}
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	full := seqRatio(a, b)
	partial := partialRatio(a, b)
	if partial > full {
		return partial
	}
	return full
}

func seqRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	l := lcs(ra, rb)
	return 2 * float64(l) / float64(len(ra)+len(rb))
}

// partialRatio slides the shorter string across the longer and takes
// the best window ratio.
func partialRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}
	if len(ra) == 0 || len(ra) == len(rb) {
		return 0
	}
	best := 0.0
	for start := 0; start+len(ra) <= len(rb); start++ {
		window := rb[start : start+len(ra)]
		l := lcs(ra, window)
		r := float64(l) / float64(len(ra))
		if r > best {
			best = r
		}
	}
	return best
}

// lcs is the classic two-row longest-common-subsequence DP.
func lcs(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
			} else if prev[j] >= cur[j-1] {
				cur[j] = prev[j]
			} else {
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
