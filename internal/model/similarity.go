package model

import (
	"math"
	"sort"
)

// Match is a tweet annotated with its similarity to a search query.
type Match struct {
	Tweet
	Similarity float64
}

// CosineSimilarity computes dot(a,b)/(|a|*|b|). Returns NaN when either
// vector has zero magnitude; callers must treat NaN as "no similarity".
// Vectors are assumed to have equal length (the backend emits fixed-length
// embeddings); extra elements of the longer vector are ignored.
func CosineSimilarity(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, magA, magB float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
	}
	for _, v := range a {
		magA += v * v
	}
	for _, v := range b {
		magB += v * v
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// RankBySimilarity scores every tweet against the query embedding, keeps
// those strictly above threshold, and sorts descending. NaN scores are
// dropped.
func RankBySimilarity(query []float64, items []Tweet, threshold float64) []Match {
	out := make([]Match, 0, len(items))
	for _, t := range items {
		s := CosineSimilarity(query, t.Embedding)
		if math.IsNaN(s) || s <= threshold {
			continue
		}
		out = append(out, Match{Tweet: t, Similarity: s})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	return out
}
