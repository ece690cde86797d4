// Package album owns the on-disk album layout and runs the per-album
// sync -> cluster -> link pipeline around the engine packages.
package album

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/kozaktomas/photo-ranker/internal/constants"
	"github.com/kozaktomas/photo-ranker/internal/identity"
	"github.com/kozaktomas/photo-ranker/internal/metadata"
)

// Sentinel error conditions surfaced to callers.
var (
	ErrAlbumNotFound  = errors.New("album not found")
	ErrPhotoNotFound  = errors.New("photo not found")
	ErrSyncInProgress = errors.New("album sync already in progress")
	ErrNotProcessed   = errors.New("album not processed yet")
)

// Status is the lifecycle state of an album's processing pipeline.
type Status string

// Album pipeline states.
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

// Meta is the persisted album document: display name, pipeline status and
// the output of the last clustering pass (including global links). Cluster
// indices in here are only valid for that pass; a resync replaces them all.
type Meta struct {
	Name     string                   `json:"name"`
	Status   Status                   `json:"status"`
	Error    string                   `json:"error,omitempty"`
	Clusters []identity.PersonCluster `json:"clusters,omitempty"`
	Hidden   []int                    `json:"hidden_clusters,omitempty"`
}

// hiddenSet returns the hidden cluster indices as a set.
func (m *Meta) hiddenSet() map[int]struct{} {
	set := make(map[int]struct{}, len(m.Hidden))
	for _, idx := range m.Hidden {
		set[idx] = struct{}{}
	}
	return set
}

// Info is the public album summary.
type Info struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Store manages album directories under <dataDir>/albums.
type Store struct {
	dataDir string
}

// NewStore creates a store rooted at dataDir.
func NewStore(dataDir string) *Store {
	return &Store{dataDir: dataDir}
}

func (s *Store) albumsRoot() string {
	return filepath.Join(s.dataDir, "albums")
}

// Dir returns the directory of one album.
func (s *Store) Dir(albumID string) string {
	return filepath.Join(s.albumsRoot(), albumID)
}

// RegistryPath returns the path of the global person registry document.
func (s *Store) RegistryPath() string {
	return filepath.Join(s.dataDir, constants.RegistryFileName)
}

// PeopleCropDir returns the directory of global person crops.
func (s *Store) PeopleCropDir() string {
	return filepath.Join(s.dataDir, constants.PeopleCropDirName)
}

// Exists reports whether an album directory exists.
func (s *Store) Exists(albumID string) bool {
	info, err := os.Stat(s.Dir(albumID))
	return err == nil && info.IsDir()
}

// Create makes a new empty album and returns its summary.
func (s *Store) Create(name string) (Info, error) {
	albumID := uuid.NewString()
	dir := s.Dir(albumID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Info{}, fmt.Errorf("create album directory: %w", err)
	}
	meta := Meta{Name: cleanAlbumName(name), Status: StatusPending}
	if err := s.SaveMeta(albumID, meta); err != nil {
		return Info{}, err
	}
	return Info{ID: albumID, Name: meta.Name, Status: meta.Status}, nil
}

// Get returns one album summary.
func (s *Store) Get(albumID string) (Info, error) {
	if !s.Exists(albumID) {
		return Info{}, fmt.Errorf("album %s: %w", albumID, ErrAlbumNotFound)
	}
	meta, err := s.LoadMeta(albumID)
	if err != nil {
		return Info{}, err
	}
	return Info{ID: albumID, Name: meta.Name, Status: meta.Status, Error: meta.Error}, nil
}

// List returns all albums, sorted by id for stable output.
func (s *Store) List() ([]Info, error) {
	entries, err := os.ReadDir(s.albumsRoot())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading albums directory: %w", err)
	}
	var out []Info
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := s.Get(entry.Name())
		if err != nil {
			continue
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Rename updates the album display name.
func (s *Store) Rename(albumID, name string) error {
	meta, err := s.LoadMeta(albumID)
	if err != nil {
		return err
	}
	meta.Name = cleanAlbumName(name)
	return s.SaveMeta(albumID, meta)
}

// Delete removes the album directory and everything in it. Global people
// referenced by the album's clusters are left untouched.
func (s *Store) Delete(albumID string) error {
	if !s.Exists(albumID) {
		return fmt.Errorf("album %s: %w", albumID, ErrAlbumNotFound)
	}
	if err := os.RemoveAll(s.Dir(albumID)); err != nil {
		return fmt.Errorf("delete album: %w", err)
	}
	return nil
}

// LoadMeta reads the album document.
func (s *Store) LoadMeta(albumID string) (Meta, error) {
	if !s.Exists(albumID) {
		return Meta{}, fmt.Errorf("album %s: %w", albumID, ErrAlbumNotFound)
	}
	path := filepath.Join(s.Dir(albumID), constants.AlbumMetaFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Meta{Name: "Untitled Album", Status: StatusPending}, nil
		}
		return Meta{}, fmt.Errorf("reading album meta: %w", err)
	}
	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return Meta{}, fmt.Errorf("parsing album meta: %w", err)
	}
	return meta, nil
}

// SaveMeta persists the album document atomically.
func (s *Store) SaveMeta(albumID string, meta Meta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal album meta: %w", err)
	}
	path := filepath.Join(s.Dir(albumID), constants.AlbumMetaFileName)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp album meta: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("promote album meta: %w", err)
	}
	return nil
}

// SaveUpload stores an uploaded photo inside the album under its sanitized
// base name and returns the stored filename.
func (s *Store) SaveUpload(albumID, filename string, r io.Reader) (string, error) {
	if !s.Exists(albumID) {
		return "", fmt.Errorf("album %s: %w", albumID, ErrAlbumNotFound)
	}
	safe := filepath.Base(strings.TrimSpace(filename))
	if safe == "" || safe == "." || safe == string(filepath.Separator) || strings.HasPrefix(safe, ".") {
		safe = "image.jpg"
	}
	dest := filepath.Join(s.Dir(albumID), safe)
	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create photo file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("write photo file: %w", err)
	}
	return safe, nil
}

// ListPhotos returns the album's image filenames, ascending.
func (s *Store) ListPhotos(albumID string) ([]string, error) {
	if !s.Exists(albumID) {
		return nil, fmt.Errorf("album %s: %w", albumID, ErrAlbumNotFound)
	}
	return metadata.ListImages(s.Dir(albumID))
}

// PhotoPath resolves a photo filename to its absolute path.
func (s *Store) PhotoPath(albumID, filename string) (string, error) {
	if !s.Exists(albumID) {
		return "", fmt.Errorf("album %s: %w", albumID, ErrAlbumNotFound)
	}
	path := filepath.Join(s.Dir(albumID), filepath.Base(filename))
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return "", fmt.Errorf("photo %s: %w", filename, ErrPhotoNotFound)
	}
	return path, nil
}

// DeletePhoto removes a photo file and drops its cache entry so people
// counts stay correct before the next sync.
func (s *Store) DeletePhoto(albumID, filename string) error {
	path, err := s.PhotoPath(albumID, filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	return metadata.Forget(s.Dir(albumID), filepath.Base(filename))
}

// CropDir returns the album's face crop directory.
func (s *Store) CropDir(albumID string) string {
	return filepath.Join(s.Dir(albumID), constants.FaceCropDirName)
}

// CropPath resolves a crop filename (person_<n>.jpg) to its absolute path.
func (s *Store) CropPath(albumID, cropName string) (string, error) {
	path := filepath.Join(s.CropDir(albumID), filepath.Base(cropName))
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return "", fmt.Errorf("crop %s: %w", cropName, ErrPhotoNotFound)
	}
	return path, nil
}

func cleanAlbumName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Untitled Album"
	}
	return name
}
