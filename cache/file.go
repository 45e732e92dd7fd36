package cache

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/felipemarinho97/torrent-aggregator/logging"
	"github.com/felipemarinho97/torrent-aggregator/monitoring"
	"github.com/spf13/afero"
)

type fileEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Data      []byte    `json:"data"`
}

// File stores one JSON document per key inside a directory. Entries older
// than the TTL are deleted the next time they are read.
type File struct {
	fs      afero.Fs
	dir     string
	ttl     time.Duration
	label   string
	now     func() time.Time
	metrics *monitoring.Metrics
}

type FileOption func(*File)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) FileOption {
	return func(f *File) { f.now = now }
}

func WithMetrics(m *monitoring.Metrics, label string) FileOption {
	return func(f *File) {
		if m != nil {
			f.metrics = m
		}
		f.label = label
	}
}

func NewFile(fs afero.Fs, dir string, ttl time.Duration, opts ...FileOption) *File {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	f := &File{
		fs:      fs,
		dir:     dir,
		ttl:     ttl,
		label:   "file",
		now:     time.Now,
		metrics: monitoring.NewMetrics(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		logging.Warn().Err(err).Str("dir", dir).Msg("Failed to create cache directory")
	}
	return f
}

// NewOsFile is a File cache on the local disk.
func NewOsFile(dir string, ttl time.Duration, opts ...FileOption) *File {
	return NewFile(afero.NewOsFs(), dir, ttl, opts...)
}

// NewMemory is a File cache that never touches the disk.
func NewMemory(ttl time.Duration, opts ...FileOption) *File {
	return NewFile(afero.NewMemMapFs(), "/cache", ttl, opts...)
}

// SanitizeKey keeps only ASCII letters, digits, '-' and '_'.
func SanitizeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (f *File) path(key string) (string, bool) {
	safe := SanitizeKey(key)
	if safe == "" {
		return "", false
	}
	return filepath.Join(f.dir, safe+".json"), true
}

func (f *File) Get(_ context.Context, key string) ([]byte, bool) {
	path, ok := f.path(key)
	if !ok {
		return nil, false
	}

	raw, err := afero.ReadFile(f.fs, path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			f.fail("read", key, err)
		}
		f.metrics.CacheMisses.WithLabelValues(f.label).Inc()
		return nil, false
	}

	var entry fileEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		f.fail("decode", key, err)
		f.metrics.CacheMisses.WithLabelValues(f.label).Inc()
		return nil, false
	}

	if f.now().Sub(entry.Timestamp) > f.ttl {
		if err := f.fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			f.fail("expire", key, err)
		}
		logging.Debug().Str("key", key).Msg("Cache entry expired")
		f.metrics.CacheMisses.WithLabelValues(f.label).Inc()
		return nil, false
	}

	f.metrics.CacheHits.WithLabelValues(f.label).Inc()
	return entry.Data, true
}

func (f *File) Set(_ context.Context, key string, data []byte) {
	path, ok := f.path(key)
	if !ok {
		return
	}
	raw, err := json.Marshal(fileEntry{Timestamp: f.now(), Data: data})
	if err != nil {
		f.fail("encode", key, err)
		return
	}
	if err := afero.WriteFile(f.fs, path, raw, 0o644); err != nil {
		f.fail("write", key, err)
	}
}

func (f *File) Clear(_ context.Context) {
	entries, err := afero.ReadDir(f.fs, f.dir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			f.fail("clear", f.dir, err)
		}
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := f.fs.Remove(filepath.Join(f.dir, e.Name())); err != nil {
			f.fail("clear", e.Name(), err)
		}
	}
}

func (f *File) fail(op, key string, err error) {
	f.metrics.CacheErrors.WithLabelValues(f.label, op).Inc()
	logging.Warn().Err(err).Str("op", op).Str("key", key).Msg("Cache operation failed")
}
