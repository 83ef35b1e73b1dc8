package search

import (
	"math"
	"slices"
)

// positionMerge combines one document's position lists, one per argument,
// into the positions where the operator matches.
type positionMerge func(positions [][]int, k int) []int

// unionPostings merges argument lists document by document, joining positions.
func unionPostings(args []*node) []Posting {
	var out []Posting
	for {
		doc := math.MaxInt
		for _, a := range args {
			if a.hasMatch() {
				doc = min(doc, a.match())
			}
		}
		if doc == math.MaxInt {
			return out
		}

		var positions []int
		for _, a := range args {
			if a.matches(doc) {
				positions = append(positions, a.posting().Positions...)
			}
		}
		slices.Sort(positions)
		out = append(out, Posting{DocID: doc, Positions: slices.Compact(positions)})

		for _, a := range args {
			a.advancePast(doc)
		}
	}
}

// proximityPostings runs merge on every document present in all argument lists.
func proximityPostings(args []*node, k int, merge positionMerge) []Posting {
	var out []Posting
	positions := make([][]int, len(args))
	for {
		doc, ok := alignAll(args)
		if !ok {
			return out
		}
		for i, a := range args {
			positions[i] = a.posting().Positions
		}
		if matched := merge(positions, k); len(matched) > 0 {
			out = append(out, Posting{DocID: doc, Positions: matched})
		}
		args[0].advancePast(doc)
	}
}

// nearPositions matches ordered chains p0 < p1 <= p0+k, p1 < p2 <= p1+k, ...
// taking the smallest candidate at each step. A match reports the chain's last
// position and consumes one position from every list. Positions at or before
// the chain in lists 1..n never become candidates again.
func nearPositions(positions [][]int, k int) []int {
	next := make([]int, len(positions))
	var out []int

	for ; next[0] < len(positions[0]); next[0]++ {
		prev := positions[0][next[0]]
		chained := true
		for j := 1; j < len(positions); j++ {
			list := positions[j]
			for next[j] < len(list) && list[next[j]] <= prev {
				next[j]++
			}
			if next[j] == len(list) {
				return compactSorted(out)
			}
			if list[next[j]] > prev+k {
				chained = false
				break
			}
			prev = list[next[j]]
		}
		if chained {
			out = append(out, prev)
			for j := 1; j < len(positions); j++ {
				next[j]++
			}
		}
	}
	return compactSorted(out)
}

// windowPositions matches one position per list such that max-min+1 <= k and
// reports the window's minimum. A match consumes one position from every list;
// a window that is too wide drops the smallest position, preferring the
// earliest list on ties.
func windowPositions(positions [][]int, k int) []int {
	next := make([]int, len(positions))
	var out []int

	for {
		lo, hi, loList := math.MaxInt, math.MinInt, 0
		for j, list := range positions {
			if next[j] == len(list) {
				return compactSorted(out)
			}
			p := list[next[j]]
			if p < lo {
				lo, loList = p, j
			}
			hi = max(hi, p)
		}

		if hi-lo+1 <= k {
			out = append(out, lo)
			for j := range next {
				next[j]++
			}
		} else {
			next[loList]++
		}
	}
}

func compactSorted(positions []int) []int {
	slices.Sort(positions)
	return slices.Compact(positions)
}
