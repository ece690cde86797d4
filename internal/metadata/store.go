package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kozaktomas/photo-ranker/internal/constants"
)

const currentSchemaVersion = constants.CacheSchemaVersion

// imageExtensions are the file extensions treated as album photos.
var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
	".bmp":  {},
}

// Extractor computes the quality signals and face records for one image.
// The store fills in filename and fingerprint afterwards.
type Extractor interface {
	Extract(ctx context.Context, imageData []byte) (ImageMetadata, error)
}

// Report summarizes one sync pass.
type Report struct {
	Updated  []string          // filenames re-extracted in this pass
	Removed  []string          // cache entries dropped because the file is gone
	Failures map[string]string // per-image extraction failures (absorbed, logged)
}

// Store is the incremental metadata cache for one album directory.
type Store struct {
	dir       string
	extractor Extractor
}

// NewStore creates a store for an album directory.
func NewStore(dir string, extractor Extractor) *Store {
	return &Store{dir: dir, extractor: extractor}
}

// CachePath returns the path of the cache document inside an album directory.
func CachePath(dir string) string {
	return filepath.Join(dir, constants.CacheFileName)
}

// Fingerprint is the cheap change detector for one file: modification time
// plus size. Deterministic, no content read.
func Fingerprint(info os.FileInfo) string {
	return fmt.Sprintf("%d-%d", info.ModTime().UnixNano(), info.Size())
}

// ListImages returns the image filenames in dir, ascending. Dotfiles and
// non-image extensions are skipped.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading album directory: %w", err)
	}
	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if _, ok := imageExtensions[strings.ToLower(filepath.Ext(name))]; !ok {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Load reads the cache document for an album directory. A missing, unreadable
// or incompatible document is treated as empty: the cache is rebuilt on the
// next sync instead of failing.
func Load(dir string) *Album {
	path := CachePath(dir)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("metadata: unreadable cache %s: %v (rebuilding)", path, err)
		}
		return NewAlbum()
	}
	var album Album
	if err := json.Unmarshal(data, &album); err != nil {
		log.Printf("metadata: corrupt cache %s: %v (rebuilding)", path, err)
		return NewAlbum()
	}
	if album.SchemaVersion != currentSchemaVersion {
		log.Printf("metadata: cache %s has schema %d, want %d (rebuilding)", path, album.SchemaVersion, currentSchemaVersion)
		return NewAlbum()
	}
	if album.Images == nil {
		album.Images = make(map[string]*ImageMetadata)
	}
	return &album
}

// Sync brings the cache in line with the album directory: new or changed
// files are re-extracted, entries for deleted files are removed, unchanged
// entries are reused without touching the extractor. The updated document is
// persisted atomically before Sync returns.
//
// Per-image extraction failures are recorded in the report and do not abort
// the pass; a failure to list the directory or persist the cache does.
func (s *Store) Sync(ctx context.Context, progress func(done, total int)) (*Album, Report, error) {
	report := Report{Failures: make(map[string]string)}

	names, err := ListImages(s.dir)
	if err != nil {
		return nil, report, err
	}

	album := Load(s.dir)

	for i, name := range names {
		path := filepath.Join(s.dir, name)
		info, err := os.Stat(path)
		if err != nil {
			// Deleted between listing and stat; the removal pass below cleans up.
			continue
		}
		fp := Fingerprint(info)
		// Failed entries never count as current: a transient model error is
		// retried on every pass until extraction succeeds.
		if entry, ok := album.Images[name]; ok && entry.Fingerprint == fp && !entry.Failed {
			if progress != nil {
				progress(i+1, len(names))
			}
			continue
		}

		entry, err := s.extract(ctx, path)
		if err != nil {
			log.Printf("metadata: extraction failed for %s: %v", name, err)
			report.Failures[name] = err.Error()
		}
		entry.Filename = name
		entry.Fingerprint = fp
		album.Images[name] = &entry
		report.Updated = append(report.Updated, name)

		if progress != nil {
			progress(i+1, len(names))
		}
	}

	present := make(map[string]struct{}, len(names))
	for _, name := range names {
		present[name] = struct{}{}
	}
	for _, name := range album.SortedFilenames() {
		if _, ok := present[name]; !ok {
			delete(album.Images, name)
			report.Removed = append(report.Removed, name)
		}
	}

	sort.Strings(report.Updated)
	sort.Strings(report.Removed)

	if err := Save(s.dir, album); err != nil {
		return nil, report, err
	}
	return album, report, nil
}

// extract runs the extractor on one file. On failure the returned entry is
// marked failed but still carries whatever signals were computed (blur).
func (s *Store) extract(ctx context.Context, path string) (ImageMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ImageMetadata{Failed: true, FailReason: err.Error()}, fmt.Errorf("reading %s: %w", path, err)
	}
	entry, err := s.extractor.Extract(ctx, data)
	if err != nil {
		entry.Failed = true
		entry.FailReason = err.Error()
		return entry, err
	}
	return entry, nil
}

// Save persists the album document crash-safely: the JSON is written to a
// temp file in the same directory and atomically renamed over the live cache,
// so a reader never observes a partial write.
func Save(dir string, album *Album) error {
	data, err := json.Marshal(album)
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	path := CachePath(dir)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp cache: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath) // cleanup on failure
		return fmt.Errorf("promote cache: %w", err)
	}
	return nil
}

// Forget drops one filename from the cache and persists the document.
// Used when a photo is deleted through the host API between syncs.
func Forget(dir, filename string) error {
	album := Load(dir)
	if _, ok := album.Images[filename]; !ok {
		return nil
	}
	delete(album.Images, filename)
	return Save(dir, album)
}
