// Package ports defines the interfaces the core pipeline depends on, so that
// services and workers can be tested against fakes without a real database
// or network.
package ports

import (
	"context"

	"github.com/andrewbelles/ml-shuffle/internal/core/domain"
)

// Store is the durable, at-most-one-claim job queue plus track/feature
// relational storage. Implementations must make ClaimOneJob safe under
// concurrent callers: exactly one caller may receive a given pending job.
type Store interface {
	UpsertTrack(ctx context.Context, t domain.CatalogTrack) (trackID string, created bool, err error)
	EnsureTrack(ctx context.Context, t domain.CatalogTrack) (trackID string, err error)
	EnqueueJobIfMissing(ctx context.Context, trackID string, kind domain.JobKind) error
	EnqueueFeatures(ctx context.Context, trackID string) error
	ClaimOneJob(ctx context.Context, kind domain.JobKind) (*domain.Job, error)
	CompleteJob(ctx context.Context, jobID int64) error
	FailJob(ctx context.Context, jobID int64, reason string) error
	CountJobs(ctx context.Context, kind domain.JobKind, status domain.JobStatus) (int64, error)
	GetTrackMetadata(ctx context.Context, trackID string) (*domain.Track, error)
	SetAuthorityID(ctx context.Context, trackID, authorityID string) error
	MarkFeaturesOK(ctx context.Context, trackID string) error
	IndexRawFile(ctx context.Context, rec domain.RawFileRecord) error
	UpsertFeaturesNum(ctx context.Context, trackID, source string, items []domain.NumFeature) error
	UpsertFeaturesText(ctx context.Context, trackID, source string, items []domain.TextFeature) error
	ReapStale(ctx context.Context, olderThanSec int64) (int64, error)
	Close() error
}
