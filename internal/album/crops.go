package album

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/kozaktomas/photo-ranker/internal/constants"
	"github.com/kozaktomas/photo-ranker/internal/identity"
	"github.com/kozaktomas/photo-ranker/internal/metadata"
	"github.com/kozaktomas/photo-ranker/internal/quality"
)

// cropFileName returns the crop filename for a cluster index.
func cropFileName(clusterIndex int) string {
	return fmt.Sprintf("%s%d.jpg", constants.FaceCropPrefix, clusterIndex)
}

// writeCrops regenerates the album's representative face crops, one per
// cluster. The crop dir is rebuilt from scratch so no stale crops from a
// previous pass survive. A failed crop is logged and skipped; the pipeline
// does not fail over a thumbnail.
func writeCrops(dir string, album *metadata.Album, clusters []identity.PersonCluster) error {
	cropDir := filepath.Join(dir, constants.FaceCropDirName)
	if err := os.RemoveAll(cropDir); err != nil {
		return fmt.Errorf("clear crop directory: %w", err)
	}
	if err := os.MkdirAll(cropDir, 0o755); err != nil {
		return fmt.Errorf("create crop directory: %w", err)
	}

	for _, cluster := range clusters {
		rep := album.Face(cluster.Representative.Filename, cluster.Representative.FaceIndex)
		if rep == nil {
			continue
		}
		out := filepath.Join(cropDir, cropFileName(cluster.Index))
		if err := writeFaceCrop(filepath.Join(dir, cluster.Representative.Filename), rep.BBox, out); err != nil {
			log.Printf("album: crop for cluster %d failed: %v", cluster.Index, err)
		}
	}
	return nil
}

// writeFaceCrop cuts the face out of the source image, resizes it to the
// standard thumbnail size and writes it as JPEG.
func writeFaceCrop(srcPath string, bbox []float64, destPath string) error {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("reading source image: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decoding source image: %w", err)
	}
	crop, err := quality.CropFace(img, bbox)
	if err != nil {
		return err
	}
	jpegData, err := quality.EncodeJPEG(quality.ResizeSquare(crop, constants.FaceCropSize))
	if err != nil {
		return err
	}
	if err := os.WriteFile(destPath, jpegData, 0o644); err != nil {
		return fmt.Errorf("writing crop: %w", err)
	}
	return nil
}

// copyCrop copies an album crop into the global people crop directory so the
// thumbnail survives album deletion. Returns the stored crop filename.
func copyCrop(srcPath, peopleDir, personID string) (string, error) {
	if err := os.MkdirAll(peopleDir, 0o755); err != nil {
		return "", fmt.Errorf("create people crop directory: %w", err)
	}
	src, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("open crop: %w", err)
	}
	defer src.Close()

	name := personID + ".jpg"
	dst, err := os.Create(filepath.Join(peopleDir, name))
	if err != nil {
		return "", fmt.Errorf("create person crop: %w", err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("copy crop: %w", err)
	}
	return name, nil
}
