package identity

import (
	"github.com/kozaktomas/photo-ranker/internal/metadata"
)

// FaceRef identifies one face record inside an album cache.
type FaceRef struct {
	Filename  string `json:"filename"`
	FaceIndex int    `json:"face_index"`
}

// Less orders face refs by filename, then face index. This is the total order
// used for deterministic processing and tie-breaking.
func (r FaceRef) Less(other FaceRef) bool {
	if r.Filename != other.Filename {
		return r.Filename < other.Filename
	}
	return r.FaceIndex < other.FaceIndex
}

// PersonCluster groups the faces of one person within an album. Cluster
// indices follow creation order and are only stable within a single
// clustering pass; durable cross-album identity goes through GlobalID.
type PersonCluster struct {
	Index          int       `json:"index"`
	Representative FaceRef   `json:"representative"`
	Members        []FaceRef `json:"members"`
	GlobalID       string    `json:"global_id,omitempty"`
}

// clusterState tracks a growing cluster during one pass.
type clusterState struct {
	members []FaceRef
	rep     FaceRef
	repEmb  []float32
	repSize int
}

// Cluster groups the album's faces into unique-person clusters by greedy
// assignment against cluster representatives.
//
// Faces are processed in a stable order (filename, then face index). Each
// face joins the existing cluster whose representative is most similar when
// that similarity reaches the threshold, otherwise it starts a new cluster.
// The representative is always the member with the largest bounding box,
// ties broken by filename then face index, so it stays traceable to one real
// detection. Given the same faces, order and threshold the output is
// identical; there is no randomness.
func Cluster(album *metadata.Album, threshold float64) []PersonCluster {
	var clusters []clusterState

	for _, filename := range album.SortedFilenames() {
		entry := album.Images[filename]
		for i := range entry.Faces {
			face := &entry.Faces[i]
			if len(face.Embedding) == 0 {
				continue
			}
			ref := FaceRef{Filename: filename, FaceIndex: face.FaceIndex}

			// Earlier-created cluster wins similarity ties.
			best := -1
			bestSim := 0.0
			for c := range clusters {
				sim := Similarity(face.Embedding, clusters[c].repEmb)
				if sim >= threshold && (best < 0 || sim > bestSim) {
					best = c
					bestSim = sim
				}
			}

			if best >= 0 {
				cl := &clusters[best]
				cl.members = append(cl.members, ref)
				if face.SizePx > cl.repSize || (face.SizePx == cl.repSize && ref.Less(cl.rep)) {
					cl.rep = ref
					cl.repEmb = face.Embedding
					cl.repSize = face.SizePx
				}
			} else {
				clusters = append(clusters, clusterState{
					members: []FaceRef{ref},
					rep:     ref,
					repEmb:  face.Embedding,
					repSize: face.SizePx,
				})
			}
		}
	}

	out := make([]PersonCluster, len(clusters))
	for i, cl := range clusters {
		out[i] = PersonCluster{
			Index:          i,
			Representative: cl.rep,
			Members:        cl.members,
		}
	}
	return out
}
