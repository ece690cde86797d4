package album

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/kozaktomas/photo-ranker/internal/constants"
	"github.com/kozaktomas/photo-ranker/internal/identity"
	"github.com/kozaktomas/photo-ranker/internal/metadata"
)

// Trigger starts the sync -> cluster -> link -> crops pipeline for an album
// in the background. At most one pipeline runs per album: a second trigger
// while one is in flight returns ErrSyncInProgress. Pipelines for different
// albums run independently.
//
// There is no mid-pipeline cancellation; once started, the run completes or
// fails and the album status records which.
func (svc *Service) Trigger(albumID string) error {
	if !svc.store.Exists(albumID) {
		return fmt.Errorf("album %s: %w", albumID, ErrAlbumNotFound)
	}

	svc.mu.Lock()
	if svc.running[albumID] {
		svc.mu.Unlock()
		return ErrSyncInProgress
	}
	svc.running[albumID] = true
	svc.mu.Unlock()

	meta, err := svc.store.LoadMeta(albumID)
	if err != nil {
		svc.finish(albumID)
		return err
	}
	meta.Status = StatusProcessing
	meta.Error = ""
	if err := svc.store.SaveMeta(albumID, meta); err != nil {
		svc.finish(albumID)
		return err
	}

	go svc.run(albumID)
	return nil
}

func (svc *Service) finish(albumID string) {
	svc.mu.Lock()
	delete(svc.running, albumID)
	svc.mu.Unlock()
}

// run executes the pipeline and records the terminal status. A pipeline
// failure leaves the previously committed cache untouched; only the status
// changes.
func (svc *Service) run(albumID string) {
	defer svc.finish(albumID)

	err := svc.process(context.Background(), albumID)

	meta, loadErr := svc.store.LoadMeta(albumID)
	if loadErr != nil {
		log.Printf("album: cannot record pipeline result for %s: %v", albumID, loadErr)
		return
	}
	if err != nil {
		log.Printf("album: pipeline failed for %s: %v", albumID, err)
		meta.Status = StatusError
		meta.Error = err.Error()
	} else {
		meta.Status = StatusDone
		meta.Error = ""
	}
	if err := svc.store.SaveMeta(albumID, meta); err != nil {
		log.Printf("album: cannot persist pipeline result for %s: %v", albumID, err)
	}
}

// process runs one full pipeline pass for an album.
func (svc *Service) process(ctx context.Context, albumID string) error {
	dir := svc.store.Dir(albumID)

	// Guard against a pipeline in another process writing the same cache.
	lock := flock.New(filepath.Join(dir, constants.SyncLockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquiring album lock: %w", err)
	}
	if !locked {
		return ErrSyncInProgress
	}
	defer lock.Unlock()

	// An unreachable model service fails the whole pipeline up front instead
	// of marking every image failed one by one.
	if err := svc.provider.Ping(ctx); err != nil {
		return fmt.Errorf("detection provider: %w", err)
	}

	store := metadata.NewStore(dir, svc.extractor)
	album, report, err := store.Sync(ctx, nil)
	if err != nil {
		return fmt.Errorf("syncing metadata: %w", err)
	}
	if len(report.Failures) > 0 {
		log.Printf("album: %s sync finished with %d failed images (updated %d, removed %d)",
			albumID, len(report.Failures), len(report.Updated), len(report.Removed))
	}

	clusters := identity.Cluster(album, svc.scoring.ClusterThreshold)
	svc.matcher.Link(album, clusters, svc.scoring.LinkThreshold)

	if err := writeCrops(dir, album, clusters); err != nil {
		return err
	}

	meta, err := svc.store.LoadMeta(albumID)
	if err != nil {
		return err
	}
	meta.Clusters = clusters
	// Hidden indices referred to the previous pass; they do not carry over.
	meta.Hidden = nil
	return svc.store.SaveMeta(albumID, meta)
}
