// Package services holds the pure pipeline logic that turns a claimed job
// into provider calls, persisted state, and sink writes. Workers own the
// claim loop, concurrency gating, and polling; services own what happens
// once a job has been claimed.
package services

import (
	"context"
	"fmt"

	"github.com/andrewbelles/ml-shuffle/internal/core/domain"
	"github.com/andrewbelles/ml-shuffle/internal/core/ports"
)

// LinkResolver resolves a track's canonical recording id, first by ISRC and
// falling back to a title/artist search, then enqueues the features job.
type LinkResolver struct {
	store     ports.Store
	authority ports.AuthorityClient
}

// NewLinkResolver builds a LinkResolver.
func NewLinkResolver(store ports.Store, authority ports.AuthorityClient) *LinkResolver {
	return &LinkResolver{store: store, authority: authority}
}

// Resolve processes one link job: if the link lookup itself fails terminally
// (after the shared HTTP executor has exhausted retries), the job is failed
// rather than left claimed forever, since nothing will ever reclaim an
// "active" row once its original owner has given up.
func (r *LinkResolver) Resolve(ctx context.Context, job *domain.Job) error {
	meta, err := r.store.GetTrackMetadata(ctx, job.TrackID)
	if err != nil {
		return fmt.Errorf("services: get track metadata: %w", err)
	}
	if meta == nil {
		return r.store.FailJob(ctx, job.ID, "track not found")
	}

	authorityID, err := r.lookup(ctx, *meta)
	if err != nil {
		if failErr := r.store.FailJob(ctx, job.ID, err.Error()); failErr != nil {
			return fmt.Errorf("services: fail job after lookup error: %w (lookup error: %v)", failErr, err)
		}
		return nil
	}

	if err := r.store.SetAuthorityID(ctx, job.TrackID, authorityID); err != nil {
		return fmt.Errorf("services: set authority id: %w", err)
	}
	if err := r.store.CompleteJob(ctx, job.ID); err != nil {
		return fmt.Errorf("services: complete link job: %w", err)
	}
	if err := r.store.EnqueueFeatures(ctx, job.TrackID); err != nil {
		return fmt.Errorf("services: enqueue features: %w", err)
	}
	return nil
}

func (r *LinkResolver) lookup(ctx context.Context, meta domain.Track) (string, error) {
	if meta.ISRC != "" {
		return r.lookupByISRC(ctx, meta.ISRC)
	}
	return r.lookupByQuery(ctx, meta.Title, meta.FirstArtist())
}

func (r *LinkResolver) lookupByISRC(ctx context.Context, isrc string) (string, error) {
	resp, err := r.authority.LookupISRC(ctx, isrc)
	if err != nil {
		return "", fmt.Errorf("lookup by isrc: %w", err)
	}
	return firstRecordingID(resp)
}

func (r *LinkResolver) lookupByQuery(ctx context.Context, title, artist string) (string, error) {
	query := fmt.Sprintf("recording:%q AND artist:%q", title, artist)
	resp, err := r.authority.SearchRecording(ctx, query, 10, 0)
	if err != nil {
		return "", fmt.Errorf("lookup by query: %w", err)
	}
	return firstRecordingID(resp)
}

func firstRecordingID(resp map[string]any) (string, error) {
	recordings, _ := resp["recordings"].([]any)
	for _, r := range recordings {
		rec, ok := r.(map[string]any)
		if !ok {
			continue
		}
		if id, ok := rec["id"].(string); ok && id != "" {
			return id, nil
		}
	}
	return "", fmt.Errorf("no recording found")
}
