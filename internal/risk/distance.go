// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

package risk

// damerauLevenshtein computes the true Damerau-Levenshtein edit distance
// (insertions, deletions, substitutions and transpositions of adjacent
// characters) between two strings. Transpositions matter here: "gtihub"
// is distance 1 from "github", not 2, and typosquats lean on exactly that.
func damerauLevenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	la := len(ra)
	lb := len(rb)

	maxDist := la + lb
	d := make([][]int, la+2)
	for i := range d {
		d[i] = make([]int, lb+2)
	}
	d[0][0] = maxDist
	for i := 0; i <= la; i++ {
		d[i+1][0] = maxDist
		d[i+1][1] = i
	}
	for j := 0; j <= lb; j++ {
		d[0][j+1] = maxDist
		d[1][j+1] = j
	}

	lastRow := make(map[rune]int, la)
	for i := 1; i <= la; i++ {
		lastMatchCol := 0
		for j := 1; j <= lb; j++ {
			i1 := lastRow[rb[j-1]]
			j1 := lastMatchCol
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
				lastMatchCol = j
			}
			// substitution, insertion, deletion, transposition
			d[i+1][j+1] = minInt(
				d[i][j]+cost,
				d[i+1][j]+1,
				d[i][j+1]+1,
				d[i1][j1]+(i-i1-1)+1+(j-j1-1),
			)
		}
		lastRow[ra[i-1]] = i
	}
	return d[la+1][lb+1]
}

func minInt(values ...int) int {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
