package search

import (
	"slices"
	"strconv"
)

// ScoredDoc is one entry of a result list.
type ScoredDoc struct {
	DocID int
	Score float64
}

// sortByScore sorts descending by score, ascending by document id on ties.
func sortByScore(results []ScoredDoc) {
	slices.SortFunc(results, func(a, b ScoredDoc) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return a.DocID - b.DocID
	})
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
