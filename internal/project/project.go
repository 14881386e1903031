// Package project locates camera footage on disk and names the files
// derived from it.
package project

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/keagan/gyrocut/internal/clips"
	"github.com/keagan/gyrocut/internal/telemetry"
)

const (
	// SegmentsDir holds cut segments and joined outputs of a project
	SegmentsDir = "segments"
	// FinalCutName is the file all kept segments are concatenated into
	FinalCutName = "final_cut.mp4"
)

// Video is one source recording. Its fields never change after
// discovery; derived data lives in the files its methods name.
type Video struct {
	Dir      string
	Filename string
	// Base is the file name without extension, e.g. GX010213
	Base string
	// Slug is the recording id, e.g. 010213
	Slug string
}

// NewVideo describes the recording at path
func NewVideo(path string) Video {
	dir, name := filepath.Split(path)
	base := strings.TrimSuffix(name, filepath.Ext(name))
	return Video{
		Dir:      filepath.Clean(dir),
		Filename: name,
		Base:     base,
		Slug:     strings.TrimPrefix(base, "GX"),
	}
}

// Path is the source file
func (v Video) Path() string {
	return filepath.Join(v.Dir, v.Filename)
}

func (v Video) sibling(suffix string) string {
	return filepath.Join(v.Dir, v.Base+suffix)
}

// AccelPath is the accelerometer cache file
func (v Video) AccelPath() string { return v.sibling(".accel.json") }

// GyroPath is the gyroscope cache file
func (v Video) GyroPath() string { return v.sibling(".gyro.json") }

// SegmentsPath is the segments artifact
func (v Video) SegmentsPath() string { return v.sibling(".segments.json") }

// TelemetryPaths returns both cache files
func (v Video) TelemetryPaths() telemetry.CachePaths {
	return telemetry.CachePaths{Accel: v.AccelPath(), Gyro: v.GyroPath()}
}

// SegmentsDir is where cut segments of this video go
func (v Video) SegmentsDir() string {
	return filepath.Join(v.Dir, SegmentsDir)
}

// SegmentPath names the clip cut for seg
func (v Video) SegmentPath(seg clips.Segment) string {
	return filepath.Join(v.SegmentsDir(), seg.Filename(v.Base, ".mp4"))
}

// FadedPath names the faded copy of a segment clip
func (v Video) FadedPath(seg clips.Segment) string {
	return withSuffix(v.SegmentPath(seg), "_faded")
}

// StabilizedPath names the stabilized copy of a segment clip
func (v Video) StabilizedPath(seg clips.Segment) string {
	return withSuffix(v.SegmentPath(seg), "_stabilized")
}

// JoinedPath is the concatenation of this video's segments
func (v Video) JoinedPath() string {
	return filepath.Join(v.SegmentsDir(), v.Filename+"_joined.mp4")
}

func withSuffix(path, suffix string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + suffix + ext
}

// Project is a directory of recordings from one outing
type Project struct {
	Name   string
	Slug   string
	Dir    string
	Videos []Video
}

// Slugify lowercases name and replaces spaces with underscores
func Slugify(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}

// FinalCutPath is the project-wide highlight reel
func (p *Project) FinalCutPath() string {
	return filepath.Join(p.Dir, SegmentsDir, FinalCutName)
}

// Video returns the recording whose file name or slug matches key
func (p *Project) Video(key string) (Video, bool) {
	for _, v := range p.Videos {
		if v.Filename == key || v.Slug == key || v.Base == key {
			return v, true
		}
	}
	return Video{}, false
}

// Load discovers the .mp4 recordings directly inside dir, sorted by
// name. Hidden files are skipped.
func Load(dir string) (*Project, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read project %s: %w", dir, err)
	}

	name := filepath.Base(filepath.Clean(dir))
	p := &Project{Name: name, Slug: Slugify(name), Dir: filepath.Clean(dir)}
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if !strings.EqualFold(filepath.Ext(e.Name()), ".mp4") {
			continue
		}
		p.Videos = append(p.Videos, NewVideo(filepath.Join(p.Dir, e.Name())))
	}
	sort.Slice(p.Videos, func(i, j int) bool { return p.Videos[i].Filename < p.Videos[j].Filename })
	return p, nil
}

// List loads every project directory under root
func List(root string) ([]*Project, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read projects root %s: %w", root, err)
	}

	var out []*Project
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		p, err := Load(filepath.Join(root, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
