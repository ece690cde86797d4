package ranking

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/kozaktomas/photo-ranker/internal/config"
	"github.com/kozaktomas/photo-ranker/internal/identity"
	"github.com/kozaktomas/photo-ranker/internal/metadata"
)

func singleFaceEntry(smile, facing, confidence, blur float64) *metadata.ImageMetadata {
	return &metadata.ImageMetadata{
		BlurScore: blur,
		Faces: []metadata.FaceRecord{
			{FaceIndex: 0, SmileScore: smile, FacingScore: facing, Confidence: confidence},
		},
	}
}

func TestScoreSingleFormula(t *testing.T) {
	s := config.DefaultScoring()
	entry := singleFaceEntry(0.8, 0.9, 0.95, s.BlurDivisor/2)

	got := Score(entry, 0, s)
	want := s.Weights.SingleSmile*0.8 + s.Weights.SingleFacing*0.9 + s.Weights.SingleSharpness*0.5
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Score = %f; want %f", got, want)
	}
}

func TestScoreSingleMonotonicInSmile(t *testing.T) {
	s := config.DefaultScoring()
	low := Score(singleFaceEntry(0.2, 0.9, 0.9, 100), 0, s)
	high := Score(singleFaceEntry(0.9, 0.9, 0.9, 100), 0, s)
	if high <= low {
		t.Errorf("smilier photo should score higher: %f vs %f", high, low)
	}
}

func TestScoreGroupFormula(t *testing.T) {
	s := config.DefaultScoring()
	// Four faces, three of them good (facing and confident enough).
	good := metadata.FaceRecord{FacingScore: 0.9, Confidence: 0.9}
	bad := metadata.FaceRecord{FacingScore: 0.3, Confidence: 0.9}
	entry := &metadata.ImageMetadata{
		BlurScore: s.BlurDivisor, // saturates sharpness at 1
		Faces:     []metadata.FaceRecord{good, good, good, bad},
	}

	got := Score(entry, 0, s)
	want := s.Weights.GroupQuality*0.75 + s.Weights.GroupSharpness*1
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("group score = %f; want %f", got, want)
	}
}

func TestScoreGroupIgnoresTargetSmile(t *testing.T) {
	s := config.DefaultScoring()
	base := &metadata.ImageMetadata{
		BlurScore: 100,
		Faces: []metadata.FaceRecord{
			{FacingScore: 0.9, Confidence: 0.9, SmileScore: 0},
			{FacingScore: 0.9, Confidence: 0.9, SmileScore: 0},
		},
	}
	smiling := &metadata.ImageMetadata{
		BlurScore: 100,
		Faces: []metadata.FaceRecord{
			{FacingScore: 0.9, Confidence: 0.9, SmileScore: 1},
			{FacingScore: 0.9, Confidence: 0.9, SmileScore: 1},
		},
	}
	if Score(base, 0, s) != Score(smiling, 0, s) {
		t.Error("group score must not depend on individual smile scores")
	}
}

func TestScoreTargetOutOfRange(t *testing.T) {
	s := config.DefaultScoring()
	entry := singleFaceEntry(0.8, 0.9, 0.9, 100)
	if got := Score(entry, 5, s); got != 0 {
		t.Errorf("out-of-range target scored %f; want 0", got)
	}
}

func rankAlbum() (*metadata.Album, []identity.FaceRef) {
	album := metadata.NewAlbum()
	album.Images["good.jpg"] = singleFaceEntry(0.9, 0.95, 0.9, 400)
	album.Images["ok.jpg"] = singleFaceEntry(0.5, 0.5, 0.9, 200)
	album.Images["bad.jpg"] = singleFaceEntry(0.1, 0.2, 0.9, 50)
	album.Images["other.jpg"] = singleFaceEntry(0.9, 0.9, 0.9, 400) // not the target

	members := []identity.FaceRef{
		{Filename: "good.jpg", FaceIndex: 0},
		{Filename: "ok.jpg", FaceIndex: 0},
		{Filename: "bad.jpg", FaceIndex: 0},
	}
	return album, members
}

func TestRankOrdersByScore(t *testing.T) {
	album, members := rankAlbum()
	ranked := Rank(album, members, config.DefaultScoring(), 0)

	if len(ranked) != 3 {
		t.Fatalf("expected 3 photos, got %d", len(ranked))
	}
	want := []string{"good.jpg", "ok.jpg", "bad.jpg"}
	for i, name := range want {
		if ranked[i].Filename != name {
			t.Errorf("rank %d = %s; want %s", i, ranked[i].Filename, name)
		}
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Score > ranked[i-1].Score {
			t.Errorf("scores not descending at %d", i)
		}
	}
}

func TestRankExcludesNonMemberPhotos(t *testing.T) {
	album, members := rankAlbum()
	ranked := Rank(album, members, config.DefaultScoring(), 0)
	for _, photo := range ranked {
		if photo.Filename == "other.jpg" {
			t.Error("photo without the target person was ranked")
		}
	}
}

func TestRankTruncatesToTopK(t *testing.T) {
	album, members := rankAlbum()
	ranked := Rank(album, members, config.DefaultScoring(), 2)
	if len(ranked) != 2 {
		t.Errorf("expected 2 photos, got %d", len(ranked))
	}
	if ranked[0].Filename != "good.jpg" {
		t.Errorf("top photo = %s; want good.jpg", ranked[0].Filename)
	}
}

func TestRankTiesBrokenByFilename(t *testing.T) {
	album := metadata.NewAlbum()
	album.Images["b.jpg"] = singleFaceEntry(0.5, 0.5, 0.9, 100)
	album.Images["a.jpg"] = singleFaceEntry(0.5, 0.5, 0.9, 100)
	members := []identity.FaceRef{
		{Filename: "a.jpg", FaceIndex: 0},
		{Filename: "b.jpg", FaceIndex: 0},
	}

	ranked := Rank(album, members, config.DefaultScoring(), 0)
	if ranked[0].Filename != "a.jpg" {
		t.Errorf("equal scores: %s first; want a.jpg", ranked[0].Filename)
	}
}

func TestRankLowestFaceIndexStandsIn(t *testing.T) {
	s := config.DefaultScoring()
	album := metadata.NewAlbum()
	album.Images["twice.jpg"] = &metadata.ImageMetadata{
		BlurScore: 100,
		Faces: []metadata.FaceRecord{
			{FaceIndex: 0, SmileScore: 0.9, FacingScore: 0.9, Confidence: 0.9},
		},
	}
	// The person appears as face 0; a duplicate member ref must not double-rank.
	members := []identity.FaceRef{
		{Filename: "twice.jpg", FaceIndex: 0},
		{Filename: "twice.jpg", FaceIndex: 0},
	}

	ranked := Rank(album, members, s, 0)
	if len(ranked) != 1 {
		t.Errorf("expected 1 ranked photo, got %d", len(ranked))
	}
}

// liveExtractor returns fixed signals so RankLive can be compared against Rank.
type liveExtractor struct {
	entries map[string]metadata.ImageMetadata // keyed by file content
}

func (l *liveExtractor) Extract(_ context.Context, imageData []byte) (metadata.ImageMetadata, error) {
	return l.entries[string(imageData)], nil
}

func TestRankLiveMatchesCachedGivenSameSignals(t *testing.T) {
	s := config.DefaultScoring()
	dir := t.TempDir()

	cached := metadata.NewAlbum()
	live := &liveExtractor{entries: make(map[string]metadata.ImageMetadata)}
	members := []identity.FaceRef{
		{Filename: "x.jpg", FaceIndex: 0},
		{Filename: "y.jpg", FaceIndex: 0},
	}

	for name, entry := range map[string]*metadata.ImageMetadata{
		"x.jpg": singleFaceEntry(0.9, 0.9, 0.9, 300),
		"y.jpg": singleFaceEntry(0.4, 0.6, 0.9, 100),
	} {
		cached.Images[name] = entry
		content := "content-of-" + name
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		live.entries[content] = *entry
	}

	fromCache := Rank(cached, members, s, 0)
	fromLive, err := RankLive(context.Background(), dir, live, members, s, 0)
	if err != nil {
		t.Fatalf("RankLive failed: %v", err)
	}

	if len(fromCache) != len(fromLive) {
		t.Fatalf("lengths differ: %d vs %d", len(fromCache), len(fromLive))
	}
	for i := range fromCache {
		if fromCache[i] != fromLive[i] {
			t.Errorf("rank %d differs: cached %+v, live %+v", i, fromCache[i], fromLive[i])
		}
	}
}
