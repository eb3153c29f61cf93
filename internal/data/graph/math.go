package graph

import "math"

// cosine returns the cosine similarity of two equal-length vectors, 0 for
// mismatched or zero-magnitude input.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i, av := range a {
		x, y := float64(av), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}
