package identity

import (
	"fmt"
	"strconv"
	"strings"
)

// PersonRef identifies a person either globally (registry id) or scoped to
// one album's current clustering pass. Album-scoped refs are ephemeral: the
// cluster index is only meaningful until the album is resynced.
type PersonRef struct {
	GlobalID     string `json:"global_id,omitempty"`
	AlbumID      string `json:"album_id,omitempty"`
	ClusterIndex int    `json:"cluster_index,omitempty"`
}

// GlobalRef returns a reference to a global person.
func GlobalRef(id string) PersonRef {
	return PersonRef{GlobalID: id}
}

// ClusterRef returns a reference to an unlinked album cluster.
func ClusterRef(albumID string, index int) PersonRef {
	return PersonRef{AlbumID: albumID, ClusterIndex: index}
}

// IsGlobal reports whether the reference names a global person.
func (r PersonRef) IsGlobal() bool {
	return r.GlobalID != ""
}

// String renders the reference as "global:<id>" or "album:<id>/person_<n>".
func (r PersonRef) String() string {
	if r.IsGlobal() {
		return "global:" + r.GlobalID
	}
	return fmt.Sprintf("album:%s/person_%d", r.AlbumID, r.ClusterIndex)
}

// ParsePersonRef parses the string form produced by String.
func ParsePersonRef(s string) (PersonRef, error) {
	if id, ok := strings.CutPrefix(s, "global:"); ok && id != "" {
		return GlobalRef(id), nil
	}
	if rest, ok := strings.CutPrefix(s, "album:"); ok {
		albumID, suffix, found := strings.Cut(rest, "/person_")
		if found && albumID != "" {
			index, err := strconv.Atoi(suffix)
			if err == nil && index >= 0 {
				return ClusterRef(albumID, index), nil
			}
		}
	}
	return PersonRef{}, fmt.Errorf("invalid person reference %q", s)
}
