// Package ranking scores and orders an album's photos for a chosen person
// using cached quality signals only; images are never re-decoded on the fast
// path.
package ranking

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/kozaktomas/photo-ranker/internal/config"
	"github.com/kozaktomas/photo-ranker/internal/identity"
	"github.com/kozaktomas/photo-ranker/internal/metadata"
	"github.com/kozaktomas/photo-ranker/internal/quality"
)

// RankedPhoto is one photo with its quality score for the target person.
type RankedPhoto struct {
	Filename string  `json:"filename"`
	Score    float64 `json:"score"`
}

// Score computes the quality score of one image for the target face.
//
// Group photos (at least MinFacesForGroup faces) score by the fraction of
// faces that are "good" (facing and confident) plus sharpness; the target's
// presence is guaranteed by selection and it need not individually be good.
// Single-subject photos score the target face's smile and facing plus
// sharpness. Both branches read cached signals only, so the same function
// serves the cached and live paths identically.
func Score(entry *metadata.ImageMetadata, targetFace int, s config.Scoring) float64 {
	blurNorm := quality.NormalizeBlur(entry.BlurScore, s.BlurDivisor)

	if len(entry.Faces) >= s.MinFacesForGroup {
		good := 0
		for i := range entry.Faces {
			f := &entry.Faces[i]
			if f.FacingScore >= s.FacingGoodThreshold && f.Confidence >= s.ConfidenceGoodThreshold {
				good++
			}
		}
		fraction := float64(good) / float64(len(entry.Faces))
		return s.Weights.GroupQuality*fraction + s.Weights.GroupSharpness*blurNorm
	}

	if targetFace < 0 || targetFace >= len(entry.Faces) {
		return 0
	}
	face := &entry.Faces[targetFace]
	return s.Weights.SingleSmile*face.SmileScore +
		s.Weights.SingleFacing*face.FacingScore +
		s.Weights.SingleSharpness*blurNorm
}

// targetFaces maps each filename to the target's face index in that image.
// When a person has several faces in one image, the lowest index stands in.
func targetFaces(members []identity.FaceRef) map[string]int {
	targets := make(map[string]int, len(members))
	for _, ref := range members {
		if idx, ok := targets[ref.Filename]; !ok || ref.FaceIndex < idx {
			targets[ref.Filename] = ref.FaceIndex
		}
	}
	return targets
}

// Rank scores every image containing at least one of the target's faces and
// returns them ordered by score descending, ties broken by filename
// ascending, truncated to topK (topK <= 0 means no truncation).
func Rank(album *metadata.Album, members []identity.FaceRef, s config.Scoring, topK int) []RankedPhoto {
	targets := targetFaces(members)

	ranked := make([]RankedPhoto, 0, len(targets))
	for _, filename := range album.SortedFilenames() {
		faceIndex, ok := targets[filename]
		if !ok {
			continue
		}
		entry := album.Images[filename]
		ranked = append(ranked, RankedPhoto{
			Filename: filename,
			Score:    Score(entry, faceIndex, s),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Filename < ranked[j].Filename
	})

	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked
}

// RankLive re-extracts quality signals for the target's images on demand and
// ranks from those instead of the cache. Given identical signals it produces
// exactly what Rank produces; it exists to support a no-cache override.
func RankLive(ctx context.Context, dir string, extractor metadata.Extractor, members []identity.FaceRef, s config.Scoring, topK int) ([]RankedPhoto, error) {
	targets := targetFaces(members)

	live := metadata.NewAlbum()
	for filename := range targets {
		data, err := os.ReadFile(filepath.Join(dir, filename))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", filename, err)
		}
		entry, err := extractor.Extract(ctx, data)
		if err != nil {
			return nil, fmt.Errorf("extracting %s: %w", filename, err)
		}
		entry.Filename = filename
		live.Images[filename] = &entry
	}

	return Rank(live, members, s, topK), nil
}
