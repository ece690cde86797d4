package identity

import (
	"log"

	"github.com/kozaktomas/photo-ranker/internal/metadata"
)

// Matcher links album clusters to the global registry and answers
// "find person by photo" queries across albums.
type Matcher struct {
	registry *Registry
}

// NewMatcher creates a matcher over the global registry.
func NewMatcher(registry *Registry) *Matcher {
	return &Matcher{registry: registry}
}

// FindResult is the outcome of a find-person query: either a confident match
// or the best candidates for manual disambiguation.
type FindResult struct {
	Matched    bool    `json:"matched"`
	Best       *Match  `json:"best,omitempty"`
	Candidates []Match `json:"candidates,omitempty"`
}

// Link assigns global identities to album clusters. For each cluster without
// a link, the representative embedding is compared against every global
// person; the best similarity at or above the threshold links the cluster.
// The linking threshold is deliberately tighter than the clustering
// threshold: a wrong link propagates a name across albums.
//
// A pre-existing link to a person that no longer exists is a data-integrity
// bug; the link is dropped and the cluster treated as unlinked.
func (m *Matcher) Link(album *metadata.Album, clusters []PersonCluster, threshold float64) {
	people := m.registry.List()

	for i := range clusters {
		cluster := &clusters[i]

		if cluster.GlobalID != "" {
			if m.registry.Get(cluster.GlobalID) == nil {
				log.Printf("identity: dropping dangling global link %s from cluster %d", cluster.GlobalID, cluster.Index)
				cluster.GlobalID = ""
			} else {
				continue
			}
		}

		rep := album.Face(cluster.Representative.Filename, cluster.Representative.FaceIndex)
		if rep == nil || len(rep.Embedding) == 0 {
			continue
		}

		bestID := ""
		bestSim := 0.0
		for _, p := range people {
			sim := Similarity(rep.Embedding, p.Embedding)
			if sim >= threshold && (bestID == "" || sim > bestSim) {
				bestID = p.ID
				bestSim = sim
			}
		}
		cluster.GlobalID = bestID
	}
}

// Find searches the union of all global people and the supplied per-album
// cluster representatives. Linked clusters must already carry their global
// reference and name in albumCandidates so they collapse with the registry
// entry during deduplication.
//
// Returns a confident match when the best similarity reaches the threshold;
// otherwise Matched is false and Candidates holds the topK best identities,
// ties broken by earliest-created.
func (m *Matcher) Find(query []float32, albumCandidates []Candidate, threshold float64, topK int) FindResult {
	candidates := make([]Candidate, 0, len(albumCandidates))
	for _, p := range m.registry.List() {
		candidates = append(candidates, Candidate{
			Ref:       GlobalRef(p.ID),
			Name:      p.Name,
			Embedding: p.Embedding,
			CreatedAt: p.CreatedAt,
		})
	}
	candidates = append(candidates, albumCandidates...)

	if topK <= 0 {
		topK = 1
	}
	matches := NewSearchIndex(candidates).Search(query, topK)
	if len(matches) == 0 {
		return FindResult{}
	}

	if matches[0].Similarity >= threshold {
		best := matches[0]
		return FindResult{Matched: true, Best: &best}
	}
	return FindResult{Candidates: matches}
}
