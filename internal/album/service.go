package album

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/kozaktomas/photo-ranker/internal/config"
	"github.com/kozaktomas/photo-ranker/internal/constants"
	"github.com/kozaktomas/photo-ranker/internal/detect"
	"github.com/kozaktomas/photo-ranker/internal/identity"
	"github.com/kozaktomas/photo-ranker/internal/metadata"
	"github.com/kozaktomas/photo-ranker/internal/quality"
	"github.com/kozaktomas/photo-ranker/internal/ranking"
)

// Service ties the engine packages together behind one API used by both the
// web server and the CLI: album CRUD, the processing pipeline, people queries,
// ranking and cross-album person search.
type Service struct {
	store     *Store
	provider  detect.Provider
	extractor metadata.Extractor
	registry  *identity.Registry
	matcher   *identity.Matcher
	scoring   config.Scoring

	mu      sync.Mutex
	running map[string]bool
}

// NewService wires a service from the configuration and a model provider.
func NewService(cfg *config.Config, provider detect.Provider) *Service {
	store := NewStore(cfg.Data.Dir)
	registry := identity.NewRegistry(store.RegistryPath())
	return &Service{
		store:     store,
		provider:  provider,
		extractor: quality.NewExtractor(provider, provider, cfg.Scoring),
		registry:  registry,
		matcher:   identity.NewMatcher(registry),
		scoring:   cfg.Scoring,
		running:   make(map[string]bool),
	}
}

// Store exposes the underlying album store for photo and crop file access.
func (svc *Service) Store() *Store {
	return svc.store
}

// Registry exposes the global person registry.
func (svc *Service) Registry() *identity.Registry {
	return svc.registry
}

// Person is the public view of one album cluster.
type Person struct {
	Index      int    `json:"index"`
	Name       string `json:"name,omitempty"`
	GlobalID   string `json:"global_id,omitempty"`
	Crop       string `json:"crop"`
	FaceCount  int    `json:"face_count"`
	PhotoCount int    `json:"photo_count"`
}

// PhotoFace is one detected face in a photo together with the person it
// belongs to in the current clustering pass.
type PhotoFace struct {
	FaceIndex   int       `json:"face_index"`
	BBox        []float64 `json:"bbox"`
	PersonIndex int       `json:"person_index"`
	Name        string    `json:"name,omitempty"`
}

// Appearance lists the photos of one person within one album.
type Appearance struct {
	AlbumID   string   `json:"album_id"`
	AlbumName string   `json:"album_name"`
	Photos    []string `json:"photos"`
}

// ResolvedPerson is a person reference expanded to every photo it appears in.
type ResolvedPerson struct {
	Ref         identity.PersonRef `json:"ref"`
	Name        string             `json:"name,omitempty"`
	Appearances []Appearance       `json:"appearances"`
}

// doneMeta loads the album document and requires a completed pipeline pass.
func (svc *Service) doneMeta(albumID string) (Meta, error) {
	meta, err := svc.store.LoadMeta(albumID)
	if err != nil {
		return Meta{}, err
	}
	if meta.Status != StatusDone {
		return Meta{}, fmt.Errorf("album %s has status %s: %w", albumID, meta.Status, ErrNotProcessed)
	}
	return meta, nil
}

// cluster finds a visible cluster by index in a processed album.
func (svc *Service) cluster(albumID string, index int) (Meta, *identity.PersonCluster, error) {
	meta, err := svc.doneMeta(albumID)
	if err != nil {
		return Meta{}, nil, err
	}
	hidden := meta.hiddenSet()
	for i := range meta.Clusters {
		if meta.Clusters[i].Index != index {
			continue
		}
		if _, ok := hidden[index]; ok {
			break
		}
		return meta, &meta.Clusters[i], nil
	}
	return Meta{}, nil, fmt.Errorf("person %d in album %s: %w", index, albumID, identity.ErrPersonNotFound)
}

// People returns the visible persons of a processed album, ordered by cluster
// index. Linked clusters carry the global person's name.
func (svc *Service) People(albumID string) ([]Person, error) {
	meta, err := svc.doneMeta(albumID)
	if err != nil {
		return nil, err
	}

	hidden := meta.hiddenSet()
	out := make([]Person, 0, len(meta.Clusters))
	for _, cluster := range meta.Clusters {
		if _, ok := hidden[cluster.Index]; ok {
			continue
		}
		p := Person{
			Index:     cluster.Index,
			GlobalID:  cluster.GlobalID,
			Crop:      cropFileName(cluster.Index),
			FaceCount: len(cluster.Members),
		}
		photos := make(map[string]struct{}, len(cluster.Members))
		for _, ref := range cluster.Members {
			photos[ref.Filename] = struct{}{}
		}
		p.PhotoCount = len(photos)
		if cluster.GlobalID != "" {
			if gp := svc.registry.Get(cluster.GlobalID); gp != nil {
				p.Name = gp.Name
			}
		}
		out = append(out, p)
	}
	return out, nil
}

// RankedPhotos returns the album's photos containing the person, best first.
// With noCache the quality signals are re-extracted from the image files
// instead of read from the cache; identity assignment still comes from the
// last pipeline pass.
func (svc *Service) RankedPhotos(ctx context.Context, albumID string, personIndex, topK int, noCache bool) ([]ranking.RankedPhoto, error) {
	_, cluster, err := svc.cluster(albumID, personIndex)
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = constants.DefaultRankTopK
	}

	dir := svc.store.Dir(albumID)
	if noCache {
		return ranking.RankLive(ctx, dir, svc.extractor, cluster.Members, svc.scoring, topK)
	}
	return ranking.Rank(metadata.Load(dir), cluster.Members, svc.scoring, topK), nil
}

// FindPerson identifies the most prominent face in the query image against
// all known identities: the global registry plus every processed album's
// visible clusters. Linked clusters are presented under their global
// reference so they deduplicate against the registry entry.
func (svc *Service) FindPerson(ctx context.Context, imageData []byte, topK int) (identity.FindResult, error) {
	entry, err := svc.extractor.Extract(ctx, imageData)
	if err != nil {
		return identity.FindResult{}, fmt.Errorf("extracting query image: %w", err)
	}
	query := metadata.LargestFaceEmbedding(entry.Faces)
	if query == nil {
		return identity.FindResult{}, identity.ErrNoFaceFound
	}

	candidates, err := svc.albumCandidates()
	if err != nil {
		return identity.FindResult{}, err
	}
	if topK <= 0 {
		topK = constants.DefaultFindTopK
	}
	return svc.matcher.Find(query, candidates, svc.scoring.FindThreshold, topK), nil
}

// albumCandidates collects the searchable identities from every processed
// album's visible clusters.
func (svc *Service) albumCandidates() ([]identity.Candidate, error) {
	infos, err := svc.store.List()
	if err != nil {
		return nil, err
	}

	var out []identity.Candidate
	for _, info := range infos {
		if info.Status != StatusDone {
			continue
		}
		meta, err := svc.store.LoadMeta(info.ID)
		if err != nil {
			log.Printf("album: skipping %s in person search: %v", info.ID, err)
			continue
		}
		hidden := meta.hiddenSet()
		album := metadata.Load(svc.store.Dir(info.ID))
		for _, cluster := range meta.Clusters {
			if _, ok := hidden[cluster.Index]; ok {
				continue
			}
			rep := album.Face(cluster.Representative.Filename, cluster.Representative.FaceIndex)
			if rep == nil || len(rep.Embedding) == 0 {
				continue
			}
			cand := identity.Candidate{
				Ref:       identity.ClusterRef(info.ID, cluster.Index),
				Embedding: rep.Embedding,
			}
			if cluster.GlobalID != "" {
				if gp := svc.registry.Get(cluster.GlobalID); gp != nil {
					cand.Ref = identity.GlobalRef(gp.ID)
					cand.Name = gp.Name
					cand.CreatedAt = gp.CreatedAt
				}
			}
			out = append(out, cand)
		}
	}
	return out, nil
}

// ResolvePerson expands a person reference to the photos it appears in. A
// global reference spans every processed album linked to that person; an
// album reference covers only its own album.
func (svc *Service) ResolvePerson(ref identity.PersonRef) (ResolvedPerson, error) {
	resolved := ResolvedPerson{Ref: ref}

	if ref.IsGlobal() {
		person := svc.registry.Get(ref.GlobalID)
		if person == nil {
			return ResolvedPerson{}, fmt.Errorf("person %s: %w", ref.GlobalID, identity.ErrPersonNotFound)
		}
		resolved.Name = person.Name

		infos, err := svc.store.List()
		if err != nil {
			return ResolvedPerson{}, err
		}
		for _, info := range infos {
			meta, err := svc.store.LoadMeta(info.ID)
			if err != nil || meta.Status != StatusDone {
				continue
			}
			hidden := meta.hiddenSet()
			for _, cluster := range meta.Clusters {
				if cluster.GlobalID != person.ID {
					continue
				}
				if _, ok := hidden[cluster.Index]; ok {
					continue
				}
				resolved.Appearances = append(resolved.Appearances, Appearance{
					AlbumID:   info.ID,
					AlbumName: info.Name,
					Photos:    memberPhotos(cluster.Members),
				})
			}
		}
		return resolved, nil
	}

	meta, cluster, err := svc.cluster(ref.AlbumID, ref.ClusterIndex)
	if err != nil {
		return ResolvedPerson{}, err
	}
	if cluster.GlobalID != "" {
		if gp := svc.registry.Get(cluster.GlobalID); gp != nil {
			resolved.Name = gp.Name
		}
	}
	resolved.Appearances = []Appearance{{
		AlbumID:   ref.AlbumID,
		AlbumName: meta.Name,
		Photos:    memberPhotos(cluster.Members),
	}}
	return resolved, nil
}

// memberPhotos returns the distinct filenames of a member list, ascending.
func memberPhotos(members []identity.FaceRef) []string {
	set := make(map[string]struct{}, len(members))
	for _, ref := range members {
		set[ref.Filename] = struct{}{}
	}
	photos := make([]string, 0, len(set))
	for name := range set {
		photos = append(photos, name)
	}
	sort.Strings(photos)
	return photos
}

// RenamePerson names an album person. A cluster already linked to a global
// person renames that person everywhere. An unlinked cluster is linked to the
// existing global person of the same name (case and diacritics insensitive)
// or, failing that, promotes the cluster into a new global person with the
// representative embedding and crop.
func (svc *Service) RenamePerson(albumID string, personIndex int, name string) (identity.GlobalPerson, error) {
	meta, cluster, err := svc.cluster(albumID, personIndex)
	if err != nil {
		return identity.GlobalPerson{}, err
	}

	if cluster.GlobalID != "" {
		if err := svc.registry.SetName(cluster.GlobalID, name); err != nil {
			return identity.GlobalPerson{}, err
		}
		return *svc.registry.Get(cluster.GlobalID), nil
	}

	person := svc.registry.FindByName(name)
	if person == nil {
		rep := metadata.Load(svc.store.Dir(albumID)).Face(cluster.Representative.Filename, cluster.Representative.FaceIndex)
		if rep == nil || len(rep.Embedding) == 0 {
			return identity.GlobalPerson{}, fmt.Errorf("person %d in album %s has no representative embedding: %w",
				personIndex, albumID, identity.ErrPersonNotFound)
		}
		created, err := svc.registry.Add(name, rep.Embedding, "")
		if err != nil {
			return identity.GlobalPerson{}, err
		}
		person = &created

		cropSrc := filepath.Join(svc.store.CropDir(albumID), cropFileName(cluster.Index))
		cropRef, err := copyCrop(cropSrc, svc.store.PeopleCropDir(), created.ID)
		if err != nil {
			log.Printf("album: cannot copy crop for person %s: %v", created.ID, err)
		} else if err := svc.registry.SetCrop(created.ID, cropRef); err != nil {
			log.Printf("album: cannot record crop for person %s: %v", created.ID, err)
		}
	}

	cluster.GlobalID = person.ID
	if err := svc.store.SaveMeta(albumID, meta); err != nil {
		return identity.GlobalPerson{}, err
	}
	return *svc.registry.Get(person.ID), nil
}

// DeletePerson hides an album person until the next pipeline pass: the
// cluster is excluded from people listings and person search, its crop is
// removed and its global link dropped. The global person itself is untouched.
func (svc *Service) DeletePerson(albumID string, personIndex int) error {
	meta, cluster, err := svc.cluster(albumID, personIndex)
	if err != nil {
		return err
	}

	cluster.GlobalID = ""
	meta.Hidden = append(meta.Hidden, personIndex)

	crop := filepath.Join(svc.store.CropDir(albumID), cropFileName(personIndex))
	if err := os.Remove(crop); err != nil && !os.IsNotExist(err) {
		log.Printf("album: cannot remove crop %s: %v", crop, err)
	}
	return svc.store.SaveMeta(albumID, meta)
}

// DeleteGlobalPerson removes a person from the registry and its stored crop.
// Album clusters that still reference the person drop the dangling link on
// their next pipeline pass.
func (svc *Service) DeleteGlobalPerson(personID string) error {
	person := svc.registry.Get(personID)
	if person == nil {
		return fmt.Errorf("person %s: %w", personID, identity.ErrPersonNotFound)
	}
	if err := svc.registry.Delete(personID); err != nil {
		return err
	}
	if person.CropRef != "" {
		crop := filepath.Join(svc.store.PeopleCropDir(), filepath.Base(person.CropRef))
		if err := os.Remove(crop); err != nil && !os.IsNotExist(err) {
			log.Printf("album: cannot remove person crop %s: %v", crop, err)
		}
	}
	return nil
}

// FacesInPhoto returns the faces detected in one photo of a processed album,
// each tagged with the person cluster it belongs to. Faces of hidden persons
// carry PersonIndex -1.
func (svc *Service) FacesInPhoto(albumID, filename string) ([]PhotoFace, error) {
	meta, err := svc.doneMeta(albumID)
	if err != nil {
		return nil, err
	}
	entry, ok := metadata.Load(svc.store.Dir(albumID)).Images[filename]
	if !ok {
		return nil, fmt.Errorf("photo %s: %w", filename, ErrPhotoNotFound)
	}

	owner := make(map[int]int, len(entry.Faces)) // face index -> cluster index
	hidden := meta.hiddenSet()
	for _, cluster := range meta.Clusters {
		for _, ref := range cluster.Members {
			if ref.Filename == filename {
				owner[ref.FaceIndex] = cluster.Index
			}
		}
	}

	out := make([]PhotoFace, 0, len(entry.Faces))
	for i := range entry.Faces {
		face := &entry.Faces[i]
		pf := PhotoFace{FaceIndex: face.FaceIndex, BBox: face.BBox, PersonIndex: -1}
		if idx, ok := owner[face.FaceIndex]; ok {
			if _, isHidden := hidden[idx]; !isHidden {
				pf.PersonIndex = idx
				for _, cluster := range meta.Clusters {
					if cluster.Index == idx && cluster.GlobalID != "" {
						if gp := svc.registry.Get(cluster.GlobalID); gp != nil {
							pf.Name = gp.Name
						}
					}
				}
			}
		}
		out = append(out, pf)
	}
	return out, nil
}
