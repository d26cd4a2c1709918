// Package sink persists raw provider responses to disk, content-addressed by
// a sanitized key, zstd-compressed, written atomically via a tempfile-then-
// rename so a crash mid-write never leaves a half-written file at the final
// path. Reruns on an already-written key are safe: the rename target is
// deterministic and the write simply replaces it with identical bytes.
package sink

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/andrewbelles/ml-shuffle/internal/crawlererr"
	"github.com/andrewbelles/ml-shuffle/internal/extract"
)

// relPathByKind maps a raw-file kind to its directory under root. Unknown
// kinds fall back to a flat "raw/<kind>" layout.
var relPathByKind = map[string]string{
	"catalog.track":       "raw/catalog/track",
	"acousticbrainz.high": "raw/acousticbrainz/high-level",
	"acousticbrainz.low":  "raw/acousticbrainz/low-level",
	"lastfm.toptags":      "raw/lastfm/toptags",
}

// DiskSink writes JSON payloads to root, compressed with zstd at level.
type DiskSink struct {
	root  string
	level zstd.EncoderLevel
}

// New builds a DiskSink rooted at root. level is clamped to zstd's supported range.
func New(root string, level int) *DiskSink {
	if level < int(zstd.SpeedFastest) {
		level = int(zstd.SpeedFastest)
	}
	if level > int(zstd.SpeedBestCompression) {
		level = int(zstd.SpeedBestCompression)
	}
	return &DiskSink{root: root, level: zstd.EncoderLevel(level)}
}

// WriteJSON persists payload under root/<kind dir>/<sanitized key>.json.zst
// and returns the path relative to root.
func (s *DiskSink) WriteJSON(kind string, key string, payload map[string]any) (string, error) {
	dir, ok := relPathByKind[kind]
	if !ok {
		dir = filepath.Join("raw", kind)
	}
	fileName := extract.SanitizeKey(key) + ".json.zst"
	relPath := filepath.Join(dir, fileName)
	fullPath := filepath.Join(s.root, relPath)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", crawlererr.Wrap(crawlererr.Io, "mkdir", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".tmp-*")
	if err != nil {
		return "", crawlererr.Wrap(crawlererr.Io, "create temp file", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	enc, err := zstd.NewWriter(tmp, zstd.WithEncoderLevel(s.level))
	if err != nil {
		tmp.Close()
		return "", crawlererr.Wrap(crawlererr.Io, "build zstd encoder", err)
	}
	if err := json.NewEncoder(enc).Encode(payload); err != nil {
		enc.Close()
		tmp.Close()
		return "", crawlererr.Wrap(crawlererr.Io, "encode json", err)
	}
	if err := enc.Close(); err != nil {
		tmp.Close()
		return "", crawlererr.Wrap(crawlererr.Io, "close zstd encoder", err)
	}
	if err := tmp.Close(); err != nil {
		return "", crawlererr.Wrap(crawlererr.Io, "close temp file", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		return "", crawlererr.Wrap(crawlererr.Io, "persist", err)
	}

	return relPath, nil
}
