// Package mediacache remembers file size and duration of probed videos
// across runs.
package mediacache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/keagan/gyrocut/internal/ffmpeg"
	"github.com/keagan/gyrocut/internal/logging"
	"github.com/keagan/gyrocut/pkg/util"
)

// DefaultFilename is the cache file name inside a work directory
const DefaultFilename = "metadata_cache.json"

// Prober reads container metadata
type Prober interface {
	ProbeVideo(ctx context.Context, path string) (*ffmpeg.VideoInfo, error)
}

// Entry is the cached metadata of one file. It is stored as the JSON
// pair [size_bytes, duration_seconds].
type Entry struct {
	SizeBytes int64
	Duration  float64
}

func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{e.SizeBytes, e.Duration})
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var pair [2]float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("metadata entry: %w", err)
	}
	e.SizeBytes = int64(pair[0])
	e.Duration = pair[1]
	return nil
}

// Cache maps video paths to their metadata. It is safe for concurrent use
// and rewrites its file atomically after every new entry.
type Cache struct {
	path    string
	prober  Prober
	logger  zerolog.Logger
	mu      sync.Mutex
	entries map[string]Entry
}

// Open loads the cache stored at path. A missing file gives an empty
// cache.
func Open(path string, prober Prober, logger zerolog.Logger) (*Cache, error) {
	c := &Cache{
		path:    path,
		prober:  prober,
		logger:  logging.WithComponent(logger, "mediacache"),
		entries: make(map[string]Entry),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		return nil, fmt.Errorf("read metadata cache: %w", err)
	}
	if len(data) == 0 {
		return c, nil
	}
	if err := json.Unmarshal(data, &c.entries); err != nil {
		return nil, fmt.Errorf("parse metadata cache %s: %w", path, err)
	}

	c.logger.Debug().Int("entries", len(c.entries)).Str("path", path).Msg("metadata cache loaded")
	return c, nil
}

// Lookup returns the metadata of path, probing it on a miss
func (c *Cache) Lookup(ctx context.Context, path string) (Entry, error) {
	c.mu.Lock()
	e, ok := c.entries[path]
	c.mu.Unlock()
	if ok {
		return e, nil
	}

	info, err := c.prober.ProbeVideo(ctx, path)
	if err != nil {
		return Entry{}, fmt.Errorf("probe %s: %w", path, err)
	}
	e = Entry{SizeBytes: info.Size, Duration: info.Duration.Seconds()}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[path] = e
	if err := c.persistLocked(); err != nil {
		return e, err
	}

	c.logger.Debug().
		Str("path", path).
		Int64("size", e.SizeBytes).
		Float64("duration", e.Duration).
		Msg("metadata cached")
	return e, nil
}

// Len returns the number of cached entries
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) persistLocked() error {
	data, err := json.Marshal(c.entries)
	if err != nil {
		return err
	}
	if err := util.WriteFileAtomic(c.path, data); err != nil {
		return fmt.Errorf("write metadata cache: %w", err)
	}
	return nil
}
