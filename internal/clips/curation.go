package clips

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Curation is a manual editing session over one video's segment list.
// Changes stay in memory until Save.
type Curation struct {
	path     string
	artifact *Artifact
	segments []Segment
	dirty    bool
}

// OpenCuration loads the artifact at path. A missing artifact starts an
// empty session.
func OpenCuration(path string) (*Curation, error) {
	a, err := ReadArtifact(path)
	if errors.Is(err, ErrNoArtifact) {
		a = &Artifact{Segments: []Segment{}, InterestLevels: []InterestLevel{}}
	} else if err != nil {
		return nil, err
	}
	return &Curation{
		path:     path,
		artifact: a,
		segments: Normalize(a.Segments),
	}, nil
}

// Segments returns a copy of the current list
func (c *Curation) Segments() []Segment {
	out := make([]Segment, len(c.segments))
	copy(out, c.segments)
	return out
}

// InterestLevels returns the levels the session was opened with
func (c *Curation) InterestLevels() []InterestLevel {
	return c.artifact.InterestLevels
}

// Add inserts a segment, merging it with any segment it overlaps
func (c *Curation) Add(s Segment) error {
	if err := s.Validate(); err != nil {
		return err
	}
	c.segments = Normalize(append(c.Segments(), s))
	c.dirty = true
	return nil
}

// Remove deletes the segment at index i
func (c *Curation) Remove(i int) error {
	if i < 0 || i >= len(c.segments) {
		return fmt.Errorf("segment index %d out of range", i)
	}
	c.segments = append(c.segments[:i:i], c.segments[i+1:]...)
	c.dirty = true
	return nil
}

// Replace swaps the whole list
func (c *Curation) Replace(segments []Segment) {
	c.segments = Normalize(segments)
	c.dirty = true
}

// Dirty reports unsaved changes
func (c *Curation) Dirty() bool {
	return c.dirty
}

// LevelAt returns the interest level of the whole second containing t
func (c *Curation) LevelAt(t float64) (float64, bool) {
	levels := c.artifact.InterestLevels
	key := math.Trunc(t)
	i := sort.Search(len(levels), func(i int) bool { return levels[i].Timestamp >= key })
	if i < len(levels) && levels[i].Timestamp == key {
		return levels[i].InterestLevel, true
	}
	return 0, false
}

// Save overwrites the artifact with the curated segment list
func (c *Curation) Save() error {
	next := c.artifact.WithSegments(c.segments)
	if err := WriteArtifact(c.path, next); err != nil {
		return err
	}
	c.artifact = next
	c.dirty = false
	return nil
}
