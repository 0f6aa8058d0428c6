package driver

import (
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// maxTypoDistance bounds the Levenshtein fallback; anything further away is
// not offered as a suggestion.
const maxTypoDistance = 2

// findClosestMatch finds the closest string match using fuzzy matching.
// Subsequence matches ("lay" for "layout") win; otherwise the nearest
// candidate by edit distance is returned when it is close enough.
func findClosestMatch(target string, candidates []string) string {
	if len(candidates) == 0 || target == "" {
		return ""
	}

	ranks := fuzzy.RankFindFold(target, candidates)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target
	}

	best, bestDist := "", maxTypoDistance+1
	for _, c := range candidates {
		if d := fuzzy.LevenshteinDistance(target, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
