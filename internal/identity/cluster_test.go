package identity

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/kozaktomas/photo-ranker/internal/metadata"
)

// testAlbum builds an album document from face specs per filename.
func testAlbum(images map[string][]metadata.FaceRecord) *metadata.Album {
	album := metadata.NewAlbum()
	for name, faces := range images {
		album.Images[name] = &metadata.ImageMetadata{Filename: name, Faces: faces}
	}
	return album
}

func face(index int, embedding []float32, sizePx int) metadata.FaceRecord {
	return metadata.FaceRecord{
		FaceIndex: index,
		BBox:      []float64{0, 0, float64(sizePx), float64(sizePx)},
		Embedding: Normalize(embedding),
		SizePx:    sizePx,
	}
}

func TestClusterGroupsSamePerson(t *testing.T) {
	// One person appearing in 7 of 10 photos, three photos without them.
	images := make(map[string][]metadata.FaceRecord)
	for i := 0; i < 7; i++ {
		images[fmt.Sprintf("p%02d.jpg", i)] = []metadata.FaceRecord{
			face(0, []float32{1, 0.01 * float32(i), 0}, 100+i),
		}
	}
	for i := 7; i < 10; i++ {
		images[fmt.Sprintf("p%02d.jpg", i)] = nil
	}

	clusters := Cluster(testAlbum(images), 0.45)
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	if len(clusters[0].Members) != 7 {
		t.Errorf("expected 7 members, got %d", len(clusters[0].Members))
	}
	// Largest face wins the representative slot.
	want := FaceRef{Filename: "p06.jpg", FaceIndex: 0}
	if clusters[0].Representative != want {
		t.Errorf("representative = %+v; want %+v", clusters[0].Representative, want)
	}
}

func TestClusterSeparatesDistinctPeople(t *testing.T) {
	images := map[string][]metadata.FaceRecord{
		"a.jpg": {face(0, []float32{1, 0, 0}, 80)},
		"b.jpg": {face(0, []float32{0, 1, 0}, 90)},
		"c.jpg": {
			face(0, []float32{1, 0.05, 0}, 70),
			face(1, []float32{0, 1, 0.05}, 60),
		},
	}

	clusters := Cluster(testAlbum(images), 0.45)
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}
	// Creation order: a.jpg is processed first.
	if len(clusters[0].Members) != 2 || len(clusters[1].Members) != 2 {
		t.Errorf("expected 2 members each, got %d and %d", len(clusters[0].Members), len(clusters[1].Members))
	}
	if clusters[0].Index != 0 || clusters[1].Index != 1 {
		t.Errorf("cluster indices not in creation order: %d, %d", clusters[0].Index, clusters[1].Index)
	}
}

func TestClusterEachFaceAssignedOnce(t *testing.T) {
	images := map[string][]metadata.FaceRecord{
		"a.jpg": {face(0, []float32{1, 0, 0}, 50), face(1, []float32{0.9, 0.1, 0}, 50)},
		"b.jpg": {face(0, []float32{1, 0.02, 0}, 50)},
	}

	clusters := Cluster(testAlbum(images), 0.45)
	seen := make(map[FaceRef]int)
	total := 0
	for _, cluster := range clusters {
		for _, ref := range cluster.Members {
			seen[ref]++
			total++
		}
	}
	if total != 3 {
		t.Fatalf("expected 3 assigned faces, got %d", total)
	}
	for ref, n := range seen {
		if n != 1 {
			t.Errorf("face %+v assigned %d times", ref, n)
		}
	}
}

func TestClusterSkipsFacesWithoutEmbedding(t *testing.T) {
	images := map[string][]metadata.FaceRecord{
		"a.jpg": {
			{FaceIndex: 0, SizePx: 40},
			face(1, []float32{1, 0, 0}, 50),
		},
	}

	clusters := Cluster(testAlbum(images), 0.45)
	if len(clusters) != 1 || len(clusters[0].Members) != 1 {
		t.Fatalf("expected 1 cluster with 1 member, got %+v", clusters)
	}
	if clusters[0].Members[0].FaceIndex != 1 {
		t.Errorf("wrong face clustered: %+v", clusters[0].Members[0])
	}
}

func TestClusterRepresentativeTieBreak(t *testing.T) {
	// Two faces of the same person with identical bbox size; the earlier
	// filename wins.
	images := map[string][]metadata.FaceRecord{
		"b.jpg": {face(0, []float32{1, 0, 0}, 80)},
		"a.jpg": {face(0, []float32{1, 0.01, 0}, 80)},
	}

	clusters := Cluster(testAlbum(images), 0.45)
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	if clusters[0].Representative.Filename != "a.jpg" {
		t.Errorf("representative = %+v; want a.jpg", clusters[0].Representative)
	}
}

func TestClusterDeterministic(t *testing.T) {
	images := map[string][]metadata.FaceRecord{
		"a.jpg": {face(0, []float32{1, 0, 0}, 50), face(1, []float32{0, 1, 0}, 60)},
		"b.jpg": {face(0, []float32{0.98, 0.05, 0}, 70)},
		"c.jpg": {face(0, []float32{0.1, 0.95, 0}, 55)},
	}

	first := Cluster(testAlbum(images), 0.45)
	for i := 0; i < 5; i++ {
		again := Cluster(testAlbum(images), 0.45)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("clustering not deterministic:\nfirst: %+v\nagain: %+v", first, again)
		}
	}
}

func TestClusterThresholdBoundary(t *testing.T) {
	// Similarity exactly at the threshold joins the cluster.
	a := Normalize([]float32{1, 0})
	b := Normalize([]float32{1, 1}) // similarity ~0.7071 to a

	images := map[string][]metadata.FaceRecord{
		"a.jpg": {{FaceIndex: 0, Embedding: a, SizePx: 50, BBox: []float64{0, 0, 50, 50}}},
		"b.jpg": {{FaceIndex: 0, Embedding: b, SizePx: 50, BBox: []float64{0, 0, 50, 50}}},
	}

	sim := Similarity(a, b)
	if got := Cluster(testAlbum(images), sim); len(got) != 1 {
		t.Errorf("threshold == similarity: expected 1 cluster, got %d", len(got))
	}
	if got := Cluster(testAlbum(images), sim+1e-6); len(got) != 2 {
		t.Errorf("threshold just above similarity: expected 2 clusters, got %d", len(got))
	}
}
