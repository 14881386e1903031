package clips

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentValidate(t *testing.T) {
	assert.NoError(t, Segment{StartTime: 1, EndTime: 2}.Validate())
	assert.Error(t, Segment{StartTime: 2, EndTime: 2}.Validate())
	assert.Error(t, Segment{StartTime: 3, EndTime: 2}.Validate())
}

func TestSegmentFilename(t *testing.T) {
	s := Segment{StartTime: 27.6, EndTime: 46.2}
	assert.Equal(t, "GX010213_segment_27.600_46.200.mp4", s.Filename("GX010213", ".mp4"))

	a := Segment{StartTime: 9.5, EndTime: 12.5}
	b := Segment{StartTime: 9.1, EndTime: 12.9}
	assert.NotEqual(t, a.Filename("GX010213", ".mp4"), b.Filename("GX010213", ".mp4"))

	assert.Equal(t, "GX010213_segment_0.000_1.235.mp4", Segment{StartTime: 0, EndTime: 1.2346}.Filename("GX010213", ".mp4"))
}

func TestValidateList(t *testing.T) {
	ok := []Segment{{0, 1}, {2, 3}, {3, 4}}
	assert.NoError(t, ValidateList(ok))

	overlap := []Segment{{0, 2}, {1, 3}}
	assert.Error(t, ValidateList(overlap))

	unsorted := []Segment{{5, 6}, {1, 2}}
	assert.Error(t, ValidateList(unsorted))
}

func TestNormalize(t *testing.T) {
	in := []Segment{{10, 12}, {1, 2}, {11, 15}, {7, 7}}
	got := Normalize(in)

	want := []Segment{{1, 2}, {10, 15}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Normalize mismatch (-want +got):\n%s", diff)
	}
	assert.NoError(t, ValidateList(got))
	assert.InDelta(t, 6.0, TotalDuration(got), 1e-9)
}

func TestArtifactRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "GX010213.segments.json")
	in := &Artifact{
		Segments: []Segment{{9.5, 15.5}, {30.25, 41.125}},
		InterestLevels: []InterestLevel{
			{Timestamp: 0, InterestLevel: 9.81},
			{Timestamp: 1, InterestLevel: 12.3456789},
			{Timestamp: 2, InterestLevel: 1.0 / 3.0},
		},
		ParamsHash: "abc",
	}

	require.NoError(t, WriteArtifact(path, in))
	out, err := ReadArtifact(path)
	require.NoError(t, err)

	if diff := cmp.Diff(in, out, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestReadArtifactMissing(t *testing.T) {
	_, err := ReadArtifact(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, ErrNoArtifact)
}

func TestArtifactWithSegments(t *testing.T) {
	a := &Artifact{
		Segments:       []Segment{{1, 2}},
		InterestLevels: []InterestLevel{{Timestamp: 0, InterestLevel: 1}},
	}
	b := a.WithSegments([]Segment{{5, 8}, {0, 1}})

	assert.Equal(t, []Segment{{1, 2}}, a.Segments, "original must be untouched")
	assert.Equal(t, []Segment{{0, 1}, {5, 8}}, b.Segments)
	assert.Equal(t, a.InterestLevels, b.InterestLevels)
}
