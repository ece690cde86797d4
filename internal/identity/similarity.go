// Package identity discovers unique people within an album and matches them
// to the global person registry shared across albums.
package identity

import "math"

// Normalize returns an L2-normalized copy of the embedding. Every embedding
// in the cache and the registry is normalized at write time, so similarity is
// a plain dot product. A zero vector is returned unchanged.
func Normalize(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sumSq == 0 {
		copy(out, v)
		return out
	}
	norm := math.Sqrt(sumSq)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// Similarity computes the cosine similarity of two L2-normalized embeddings
// as a plain dot product. Mismatched or empty vectors score 0.
func Similarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}
