package identity

import (
	"sort"
	"sync"
	"time"

	"github.com/coder/hnsw"

	"github.com/kozaktomas/photo-ranker/internal/constants"
)

// Candidate is one searchable identity: a global person or an album cluster
// representative. Album clusters carry a zero CreatedAt; tie-breaking falls
// through to the reference string, which is stable.
type Candidate struct {
	Ref       PersonRef
	Name      string
	Embedding []float32
	CreatedAt time.Time
}

// Match is a candidate scored against a query embedding.
type Match struct {
	Candidate
	Similarity float64
}

// SearchIndex wraps an HNSW graph over a candidate set for approximate
// nearest-neighbor retrieval; returned neighbors are re-scored with the
// exact dot product.
type SearchIndex struct {
	mu         sync.RWMutex
	graph      *hnsw.Graph[int]
	candidates []Candidate
}

// NewSearchIndex builds an index over the candidate set. Candidates with an
// empty embedding are kept out of the graph.
func NewSearchIndex(candidates []Candidate) *SearchIndex {
	g := hnsw.NewGraph[int]()
	g.M = constants.HNSWMaxNeighbors
	g.Ml = 1.0 / float64(constants.HNSWMaxNeighbors) // Standard HNSW formula
	g.Distance = hnsw.CosineDistance

	ix := &SearchIndex{graph: g, candidates: candidates}
	for i := range candidates {
		if len(candidates[i].Embedding) == 0 {
			continue
		}
		g.Add(hnsw.MakeNode(i, candidates[i].Embedding))
	}
	return ix
}

// Count returns the number of indexed candidates.
func (ix *SearchIndex) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.candidates)
}

// Search returns the k best matches for the query embedding, sorted by
// similarity descending with ties broken by earliest-created identity.
// Duplicate references (a global person also present as a linked album
// cluster) collapse to their best-scoring occurrence.
func (ix *SearchIndex) Search(query []float32, k int) []Match {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if k <= 0 || len(ix.candidates) == 0 {
		return nil
	}

	// Fetch extra neighbors so threshold checks and deduplication still see
	// enough distinct identities.
	fetch := k
	if fetch < constants.MinSearchNeighbors {
		fetch = constants.MinSearchNeighbors
	}

	neighbors := ix.graph.Search(query, fetch)
	seen := make(map[string]int, len(neighbors))
	matches := make([]Match, 0, len(neighbors))
	for _, n := range neighbors {
		cand := ix.candidates[n.Key]
		sim := Similarity(query, cand.Embedding)
		key := cand.Ref.String()
		if idx, ok := seen[key]; ok {
			if sim > matches[idx].Similarity {
				matches[idx].Similarity = sim
			}
			continue
		}
		seen[key] = len(matches)
		matches = append(matches, Match{Candidate: cand, Similarity: sim})
	}

	sortMatches(matches)
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

// sortMatches orders by similarity descending, then earliest created, then
// reference string.
func sortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.Ref.String() < b.Ref.String()
	})
}
