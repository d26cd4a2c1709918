package services

import (
	"context"
	"fmt"

	"github.com/andrewbelles/ml-shuffle/internal/core/domain"
	"github.com/andrewbelles/ml-shuffle/internal/core/ports"
	"github.com/andrewbelles/ml-shuffle/internal/extract"
)

// FeatureExtractor fetches acoustic descriptors and social tags for a linked
// track, persists the raw responses, and upserts the extracted feature rows.
type FeatureExtractor struct {
	store    ports.Store
	acoustic ports.AcousticClient
	tags     ports.TagClient
	sink     ports.Sink
}

// NewFeatureExtractor builds a FeatureExtractor.
func NewFeatureExtractor(store ports.Store, acoustic ports.AcousticClient, tags ports.TagClient, sink ports.Sink) *FeatureExtractor {
	return &FeatureExtractor{store: store, acoustic: acoustic, tags: tags, sink: sink}
}

// Extract processes one features job: high-level then low-level acoustic
// descriptors, then social tags (by mbid, falling back to artist/title), all
// indexed against the track's internal id rather than the provider-assigned
// id used to address the acoustic/tag request itself.
func (f *FeatureExtractor) Extract(ctx context.Context, job *domain.Job) error {
	meta, err := f.store.GetTrackMetadata(ctx, job.TrackID)
	if err != nil {
		return fmt.Errorf("services: get track metadata: %w", err)
	}
	if meta == nil {
		return f.store.FailJob(ctx, job.ID, "track not found")
	}
	if meta.AuthorityID == "" {
		return f.store.FailJob(ctx, job.ID, "no authority id linked")
	}

	if err := f.extractHighLevel(ctx, job.TrackID, meta.AuthorityID); err != nil {
		if failErr := f.store.FailJob(ctx, job.ID, err.Error()); failErr != nil {
			return fmt.Errorf("services: fail job after high-level fetch error: %w (fetch error: %v)", failErr, err)
		}
		return nil
	}
	if err := f.extractLowLevel(ctx, job.TrackID, meta.AuthorityID); err != nil {
		if failErr := f.store.FailJob(ctx, job.ID, err.Error()); failErr != nil {
			return fmt.Errorf("services: fail job after low-level fetch error: %w (fetch error: %v)", failErr, err)
		}
		return nil
	}
	f.extractTags(ctx, job.TrackID, meta.AuthorityID, meta.Title, meta.FirstArtist())

	if err := f.store.MarkFeaturesOK(ctx, job.TrackID); err != nil {
		return fmt.Errorf("services: mark features ok: %w", err)
	}
	return f.store.CompleteJob(ctx, job.ID)
}

func (f *FeatureExtractor) extractHighLevel(ctx context.Context, trackID, authorityID string) error {
	resp, err := f.acoustic.Features(ctx, authorityID, "high-level")
	if err != nil {
		return fmt.Errorf("services: fetch high-level features: %w", err)
	}
	relPath, err := f.sink.WriteJSON("acousticbrainz.high", authorityID, resp)
	if err != nil {
		return fmt.Errorf("services: write high-level raw file: %w", err)
	}
	// trackID, not authorityID: the raw file is content-addressed by the
	// provider key, but indexed in the relational store against the
	// internal record it belongs to.
	if err := f.store.IndexRawFile(ctx, domain.RawFileRecord{
		TrackID: trackID, Source: "acousticbrainz", Subtype: "high-level", Key: authorityID, RelPath: relPath,
	}); err != nil {
		return fmt.Errorf("services: index high-level raw file: %w", err)
	}

	nums, texts := extract.ExtractHighLevel(resp)
	if err := f.store.UpsertFeaturesNum(ctx, trackID, "acousticbrainz", nums); err != nil {
		return fmt.Errorf("services: upsert high-level numeric features: %w", err)
	}
	if err := f.store.UpsertFeaturesText(ctx, trackID, "acousticbrainz", texts); err != nil {
		return fmt.Errorf("services: upsert high-level text features: %w", err)
	}
	return nil
}

func (f *FeatureExtractor) extractLowLevel(ctx context.Context, trackID, authorityID string) error {
	resp, err := f.acoustic.Features(ctx, authorityID, "low-level")
	if err != nil {
		return fmt.Errorf("services: fetch low-level features: %w", err)
	}
	relPath, err := f.sink.WriteJSON("acousticbrainz.low", authorityID, resp)
	if err != nil {
		return fmt.Errorf("services: write low-level raw file: %w", err)
	}
	if err := f.store.IndexRawFile(ctx, domain.RawFileRecord{
		TrackID: trackID, Source: "acousticbrainz", Subtype: "low-level", Key: authorityID, RelPath: relPath,
	}); err != nil {
		return fmt.Errorf("services: index low-level raw file: %w", err)
	}

	nums := extract.ExtractLowLevel(resp)
	if err := f.store.UpsertFeaturesNum(ctx, trackID, "acousticbrainz", nums); err != nil {
		return fmt.Errorf("services: upsert low-level numeric features: %w", err)
	}
	return nil
}

// extractTags is best-effort: a missing social-tag document should not fail
// the whole features job, only skip the enrichment it would have provided.
func (f *FeatureExtractor) extractTags(ctx context.Context, trackID, authorityID, title, artist string) {
	resp, err := f.tags.TopTagsByMBID(ctx, authorityID)
	if err != nil {
		resp, err = f.tags.TopTags(ctx, artist, title)
	}
	if err != nil {
		return
	}

	relPath, writeErr := f.sink.WriteJSON("lastfm.toptags", authorityID, resp)
	if writeErr != nil {
		return
	}
	_ = f.store.IndexRawFile(ctx, domain.RawFileRecord{
		TrackID: trackID, Source: "lastfm", Subtype: "toptags", Key: authorityID, RelPath: relPath,
	})

	nums := extract.ExtractTopTags(resp)
	_ = f.store.UpsertFeaturesNum(ctx, trackID, "lastfm", nums)
}
