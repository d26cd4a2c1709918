// Package sqlite provides the SQLite-backed job store: the durable,
// at-most-one-claim queue plus the relational tables for tracks, raw-file
// pointers, and extracted features.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/andrewbelles/ml-shuffle/internal/core/domain"
	"github.com/andrewbelles/ml-shuffle/internal/crawlererr"
)

// Store implements ports.Store against a SQLite database.
type Store struct {
	db *sql.DB
}

// New opens storagePath, applies pragmas appropriate to file-backed
// databases, and runs idempotent schema migrations.
func New(storagePath string) (*Store, error) {
	db, err := sql.Open("sqlite3", storagePath)
	if err != nil {
		return nil, crawlererr.Wrap(crawlererr.Storage, "open", err)
	}
	if err := db.Ping(); err != nil {
		return nil, crawlererr.Wrap(crawlererr.Storage, "ping", err)
	}

	if storagePath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return nil, crawlererr.Wrap(crawlererr.Storage, "set wal", err)
		}
		if _, err := db.Exec("PRAGMA synchronous=NORMAL;"); err != nil {
			return nil, crawlererr.Wrap(crawlererr.Storage, "set synchronous", err)
		}
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		return nil, crawlererr.Wrap(crawlererr.Storage, "set foreign_keys", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, crawlererr.Wrap(crawlererr.Storage, "migrate", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tracks (
	  id                TEXT PRIMARY KEY,
	  catalog_id        TEXT UNIQUE,
	  isrc              TEXT UNIQUE,
	  authority_id      TEXT UNIQUE,
	  title             TEXT,
	  artist_all        TEXT,
	  album             TEXT,
	  duration_ms       INTEGER,
	  release_date      TEXT,
	  explicit          INTEGER,
	  popularity        INTEGER,
	  linked_ok         INTEGER NOT NULL DEFAULT 0,
	  features_ok       INTEGER NOT NULL DEFAULT 0,
	  created_at        INTEGER NOT NULL,
	  updated_at        INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS jobs (
	  job_id      INTEGER PRIMARY KEY AUTOINCREMENT,
	  track_id    TEXT NOT NULL,
	  kind        TEXT NOT NULL CHECK (kind IN ('link','features')),
	  status      TEXT NOT NULL CHECK (status IN ('pending','active','done','failed')) DEFAULT 'pending',
	  attempt     INTEGER NOT NULL DEFAULT 0,
	  last_error  TEXT,
	  created_at  INTEGER NOT NULL,
	  updated_at  INTEGER NOT NULL,
	  UNIQUE(track_id, kind),
	  FOREIGN KEY(track_id) REFERENCES tracks(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS raw_files (
	  id          INTEGER PRIMARY KEY AUTOINCREMENT,
	  track_id    TEXT NOT NULL,
	  source      TEXT NOT NULL,
	  subtype     TEXT NOT NULL,
	  key         TEXT NOT NULL,
	  rel_path    TEXT NOT NULL,
	  created_at  INTEGER NOT NULL,
	  UNIQUE (source, subtype, key)
	);

	CREATE TABLE IF NOT EXISTS features (
	  track_id    TEXT NOT NULL,
	  source      TEXT NOT NULL,
	  feature     TEXT NOT NULL,
	  dtype       TEXT NOT NULL CHECK (dtype IN ('num','text')),
	  num_value   REAL,
	  text_value  TEXT,
	  updated_at  INTEGER NOT NULL,
	  PRIMARY KEY (track_id, source, feature)
	);

	CREATE INDEX IF NOT EXISTS idx_jobs_pending ON jobs(kind, status);
	CREATE INDEX IF NOT EXISTS idx_tracks_catalog ON tracks(catalog_id);
	CREATE INDEX IF NOT EXISTS idx_tracks_authority ON tracks(authority_id);
	CREATE INDEX IF NOT EXISTS idx_raw_files_track ON raw_files(track_id);
	CREATE INDEX IF NOT EXISTS idx_features_track ON features(track_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Guarded migration for installs created before authority_id was renamed
	// from mb_recording_id; safe to run repeatedly.
	if _, err := s.db.Exec("ALTER TABLE tracks ADD COLUMN authority_id TEXT"); err != nil {
		if !isDuplicateColumnError(err) {
			return err
		}
	}

	return nil
}

func isDuplicateColumnError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "duplicate column") || strings.Contains(err.Error(), "already exists"))
}

func now() int64 { return time.Now().Unix() }

func (s *Store) UpsertTrack(ctx context.Context, t domain.CatalogTrack) (string, bool, error) {
	if t.CatalogID == "" {
		return "", false, crawlererr.New(crawlererr.Storage, "upsert_track", "missing catalog id")
	}

	existing, err := s.trackIDByCatalogID(ctx, t.CatalogID)
	if err != nil {
		return "", false, err
	}

	artistJSON, err := json.Marshal(t.ArtistAll)
	if err != nil {
		return "", false, crawlererr.Wrap(crawlererr.Parse, "marshal artist_all", err)
	}

	if existing != "" {
		_, err := s.db.ExecContext(ctx, `
			UPDATE tracks
			   SET title = COALESCE(?, title),
			       artist_all = COALESCE(?, artist_all),
			       album = COALESCE(?, album),
			       duration_ms = COALESCE(?, duration_ms),
			       release_date = COALESCE(?, release_date),
			       explicit = COALESCE(?, explicit),
			       popularity = COALESCE(?, popularity),
			       updated_at = ?
			 WHERE id = ?
		`, t.Title, string(artistJSON), t.Album, t.DurationMs, t.ReleaseDate, boolToInt(t.Explicit), t.Popularity, now(), existing)
		if err != nil {
			return "", false, crawlererr.Wrap(crawlererr.Storage, "update track", err)
		}

		if t.ISRC != "" {
			if _, err := s.db.ExecContext(ctx,
				"UPDATE tracks SET isrc = COALESCE(isrc, ?) WHERE id = ?", t.ISRC, existing,
			); err != nil {
				return "", false, crawlererr.Wrap(crawlererr.Storage, "fill isrc", err)
			}
		}
		return existing, false, nil
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tracks (
			id, catalog_id, isrc, title, artist_all, album, duration_ms,
			release_date, explicit, popularity, linked_ok, features_ok, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?, ?)
	`, id, t.CatalogID, nullableString(t.ISRC), t.Title, string(artistJSON), t.Album, t.DurationMs,
		t.ReleaseDate, boolToInt(t.Explicit), t.Popularity, now(), now())
	if err != nil {
		return "", false, crawlererr.Wrap(crawlererr.Storage, "insert track", err)
	}
	return id, true, nil
}

func (s *Store) trackIDByCatalogID(ctx context.Context, catalogID string) (string, error) {
	var id string
	row := s.db.QueryRowContext(ctx, "SELECT id FROM tracks WHERE catalog_id = ? LIMIT 1", catalogID)
	if err := row.Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", crawlererr.Wrap(crawlererr.Storage, "lookup track by catalog id", err)
	}
	return id, nil
}

func (s *Store) EnsureTrack(ctx context.Context, t domain.CatalogTrack) (string, error) {
	trackID, _, err := s.UpsertTrack(ctx, t)
	if err != nil {
		return "", err
	}

	var linkedOK int
	row := s.db.QueryRowContext(ctx, "SELECT linked_ok FROM tracks WHERE id = ?", trackID)
	if err := row.Scan(&linkedOK); err != nil {
		return "", crawlererr.Wrap(crawlererr.Storage, "read linked_ok", err)
	}
	if linkedOK == 0 {
		if err := s.EnqueueJobIfMissing(ctx, trackID, domain.JobLink); err != nil {
			return "", err
		}
	}
	return trackID, nil
}

func (s *Store) EnqueueJobIfMissing(ctx context.Context, trackID string, kind domain.JobKind) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO jobs (track_id, kind, status, attempt, created_at, updated_at)
		VALUES (?, ?, 'pending', 0, ?, ?)
	`, trackID, string(kind), now(), now())
	if err != nil {
		return crawlererr.Wrap(crawlererr.Storage, "enqueue_job_if_missing", err)
	}
	return nil
}

func (s *Store) EnqueueFeatures(ctx context.Context, trackID string) error {
	var linkedOK, featuresOK int
	row := s.db.QueryRowContext(ctx, "SELECT linked_ok, features_ok FROM tracks WHERE id = ?", trackID)
	if err := row.Scan(&linkedOK, &featuresOK); err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return crawlererr.Wrap(crawlererr.Storage, "enqueue_features", err)
	}
	if linkedOK == 1 && featuresOK == 0 {
		return s.EnqueueJobIfMissing(ctx, trackID, domain.JobFeatures)
	}
	return nil
}

// ClaimOneJob atomically claims the oldest pending job of kind, or returns
// (nil, nil) if none is available. The SELECT-then-conditional-UPDATE inside
// one transaction is what makes the claim at-most-one: a second caller racing
// the same row finds its UPDATE affects zero rows and rolls back empty-handed.
func (s *Store) ClaimOneJob(ctx context.Context, kind domain.JobKind) (*domain.Job, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, crawlererr.Wrap(crawlererr.Storage, "claim_one_job begin", err)
	}
	defer tx.Rollback()

	var job domain.Job
	row := tx.QueryRowContext(ctx, `
		SELECT job_id, track_id, attempt FROM jobs
		WHERE kind = ? AND status = 'pending'
		ORDER BY created_at ASC
		LIMIT 1
	`, string(kind))
	if err := row.Scan(&job.ID, &job.TrackID, &job.Attempt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, crawlererr.Wrap(crawlererr.Storage, "claim_one_job select", err)
	}
	job.Kind = kind

	res, err := tx.ExecContext(ctx, `
		UPDATE jobs SET status = 'active', attempt = attempt + 1, updated_at = ?
		WHERE job_id = ? AND status = 'pending'
	`, now(), job.ID)
	if err != nil {
		return nil, crawlererr.Wrap(crawlererr.Storage, "claim_one_job update", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, crawlererr.Wrap(crawlererr.Storage, "claim_one_job rows_affected", err)
	}
	if affected == 0 {
		return nil, nil
	}

	if err := tx.Commit(); err != nil {
		return nil, crawlererr.Wrap(crawlererr.Storage, "claim_one_job commit", err)
	}
	job.Attempt++
	return &job, nil
}

func (s *Store) CompleteJob(ctx context.Context, jobID int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE jobs SET status='done', updated_at = ?, last_error = NULL WHERE job_id = ?", now(), jobID)
	if err != nil {
		return crawlererr.Wrap(crawlererr.Storage, "complete_job", err)
	}
	return nil
}

func (s *Store) FailJob(ctx context.Context, jobID int64, reason string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE jobs SET status='failed', updated_at = ?, last_error = ? WHERE job_id = ?", now(), reason, jobID)
	if err != nil {
		return crawlererr.Wrap(crawlererr.Storage, "fail_job", err)
	}
	return nil
}

func (s *Store) CountJobs(ctx context.Context, kind domain.JobKind, status domain.JobStatus) (int64, error) {
	var count int64
	row := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM jobs WHERE kind = ? AND status = ?", string(kind), string(status))
	if err := row.Scan(&count); err != nil {
		return 0, crawlererr.Wrap(crawlererr.Storage, "count_jobs", err)
	}
	return count, nil
}

func (s *Store) GetTrackMetadata(ctx context.Context, trackID string) (*domain.Track, error) {
	var t domain.Track
	var artistJSON sql.NullString
	var isrc, authorityID sql.NullString
	var linkedOK, featuresOK int

	row := s.db.QueryRowContext(ctx, `
		SELECT id, catalog_id, title, artist_all, isrc, authority_id, linked_ok, features_ok, updated_at
		FROM tracks WHERE id = ?
	`, trackID)
	if err := row.Scan(&t.ID, &t.CatalogID, &t.Title, &artistJSON, &isrc, &authorityID, &linkedOK, &featuresOK, &t.UpdatedAtUnixSec); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, crawlererr.Wrap(crawlererr.Storage, "get_track_metadata", err)
	}

	if artistJSON.Valid {
		_ = json.Unmarshal([]byte(artistJSON.String), &t.ArtistAll)
	}
	t.ISRC = isrc.String
	t.AuthorityID = authorityID.String
	t.LinkedOK = linkedOK == 1
	t.FeaturesOK = featuresOK == 1
	return &t, nil
}

func (s *Store) SetAuthorityID(ctx context.Context, trackID, authorityID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE tracks SET authority_id = ?, linked_ok = 1, updated_at = ? WHERE id = ?", authorityID, now(), trackID)
	if err != nil {
		return crawlererr.Wrap(crawlererr.Storage, "set_authority_id", err)
	}
	return nil
}

func (s *Store) MarkFeaturesOK(ctx context.Context, trackID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE tracks SET features_ok = 1, updated_at = ? WHERE id = ?", now(), trackID)
	if err != nil {
		return crawlererr.Wrap(crawlererr.Storage, "mark_features_ok", err)
	}
	return nil
}

func (s *Store) IndexRawFile(ctx context.Context, rec domain.RawFileRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO raw_files (track_id, source, subtype, key, rel_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.TrackID, rec.Source, rec.Subtype, rec.Key, rec.RelPath, now())
	if err != nil {
		return crawlererr.Wrap(crawlererr.Storage, "index_raw_file", err)
	}
	return nil
}

func (s *Store) UpsertFeaturesNum(ctx context.Context, trackID, source string, items []domain.NumFeature) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return crawlererr.Wrap(crawlererr.Storage, "upsert_features_num begin", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO features (track_id, source, feature, dtype, num_value, text_value, updated_at)
		VALUES (?, ?, ?, 'num', ?, NULL, ?)
		ON CONFLICT(track_id, source, feature) DO UPDATE SET
			dtype='num', num_value=excluded.num_value, text_value=NULL, updated_at=excluded.updated_at
	`)
	if err != nil {
		return crawlererr.Wrap(crawlererr.Storage, "upsert_features_num prepare", err)
	}
	defer stmt.Close()

	for _, item := range items {
		if _, err := stmt.ExecContext(ctx, trackID, source, item.Name, item.Value, now()); err != nil {
			return crawlererr.Wrap(crawlererr.Storage, fmt.Sprintf("upsert_features_num %s", item.Name), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return crawlererr.Wrap(crawlererr.Storage, "upsert_features_num commit", err)
	}
	return nil
}

func (s *Store) UpsertFeaturesText(ctx context.Context, trackID, source string, items []domain.TextFeature) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return crawlererr.Wrap(crawlererr.Storage, "upsert_features_text begin", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO features (track_id, source, feature, dtype, num_value, text_value, updated_at)
		VALUES (?, ?, ?, 'text', NULL, ?, ?)
		ON CONFLICT(track_id, source, feature) DO UPDATE SET
			dtype='text', num_value=NULL, text_value=excluded.text_value, updated_at=excluded.updated_at
	`)
	if err != nil {
		return crawlererr.Wrap(crawlererr.Storage, "upsert_features_text prepare", err)
	}
	defer stmt.Close()

	for _, item := range items {
		if _, err := stmt.ExecContext(ctx, trackID, source, item.Name, item.Value, now()); err != nil {
			return crawlererr.Wrap(crawlererr.Storage, fmt.Sprintf("upsert_features_text %s", item.Name), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return crawlererr.Wrap(crawlererr.Storage, "upsert_features_text commit", err)
	}
	return nil
}

// ReapStale resets jobs stuck in 'active' for longer than olderThanSec back
// to 'pending'. The worker lifecycle never calls it; it is left for an
// operator to invoke, since stale claims usually mean a crashed process, not
// a retryable condition the daemon should paper over unattended.
func (s *Store) ReapStale(ctx context.Context, olderThanSec int64) (int64, error) {
	cutoff := now() - olderThanSec
	res, err := s.db.ExecContext(ctx,
		"UPDATE jobs SET status='pending', updated_at = ? WHERE status='active' AND updated_at < ?", now(), cutoff)
	if err != nil {
		return 0, crawlererr.Wrap(crawlererr.Storage, "reap_stale", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, crawlererr.Wrap(crawlererr.Storage, "reap_stale rows_affected", err)
	}
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
