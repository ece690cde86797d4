// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// File layout constants
const (
	// CacheFileName is the per-album metadata cache document
	CacheFileName = ".photo_ranker_cache.json"

	// AlbumMetaFileName holds album name, status and the last clustering pass
	AlbumMetaFileName = ".album.json"

	// FaceCropDirName is the per-album directory of representative face crops
	FaceCropDirName = ".faces"

	// FaceCropPrefix is the filename prefix for representative face crops
	FaceCropPrefix = "person_"

	// RegistryFileName is the global person registry document
	RegistryFileName = "global_people.json"

	// PeopleCropDirName is the directory of global person crops under the data dir
	PeopleCropDirName = "people"

	// SyncLockFileName guards an album against concurrent sync pipelines
	SyncLockFileName = ".sync.lock"
)

// Schema versions for persisted documents. Bumping a version discards
// incompatible cached data on load.
const (
	CacheSchemaVersion    = 1
	RegistrySchemaVersion = 1
)

// Face crop constants
const (
	// FaceCropSize is the edge length of saved face thumbnails in pixels
	FaceCropSize = 256
)

// Search constants
const (
	// DefaultFindTopK is the number of candidates returned when no confident match exists
	DefaultFindTopK = 3

	// DefaultRankTopK is the default number of ranked photos to return
	DefaultRankTopK = 200

	// MinSearchNeighbors is the minimum number of neighbors fetched from the
	// HNSW index so that threshold checks see enough candidates
	MinSearchNeighbors = 10

	// HNSWMaxNeighbors is the M parameter of the HNSW graph
	HNSWMaxNeighbors = 16
)

// File upload constants
const (
	// MaxUploadSize is the maximum photo upload size in bytes (100MB)
	MaxUploadSize = 100 << 20
)
