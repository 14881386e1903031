package interest

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keagan/gyrocut/internal/clips"
	"github.com/keagan/gyrocut/internal/telemetry"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

// curve samples a step function every step seconds over [0, end]
func curve(step, end float64, level func(t float64) float64) []clips.InterestLevel {
	var out []clips.InterestLevel
	for i := 0; ; i++ {
		t := float64(i) * step
		if t > end {
			break
		}
		out = append(out, clips.InterestLevel{Timestamp: t, InterestLevel: level(t)})
	}
	return out
}

func between(ranges ...[2]float64) func(float64) float64 {
	return func(t float64) float64 {
		for _, r := range ranges {
			if t >= r[0] && t < r[1] {
				return 20
			}
		}
		return 0
	}
}

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	require.NoError(t, p.Validate())
	assert.Equal(t, 300, p.Window)
	assert.Equal(t, 10.0, p.Threshold)
	assert.Equal(t, 1.0, p.MinimumLength)
	assert.Equal(t, 0.5, p.Buffer)
	assert.Equal(t, 3.0, p.MergeDistance)
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"zero window", func(p *Params) { p.Window = 0 }},
		{"negative buffer", func(p *Params) { p.Buffer = -1 }},
		{"negative merge", func(p *Params) { p.MergeDistance = -0.1 }},
		{"negative minimum", func(p *Params) { p.MinimumLength = -2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			assert.Error(t, p.Validate())
		})
	}
}

func TestParamsHashChangesWithParams(t *testing.T) {
	a := DefaultParams()
	b := DefaultParams()
	assert.Equal(t, a.Hash(), b.Hash())
	b.Threshold = 11
	assert.NotEqual(t, a.Hash(), b.Hash())
}

func TestRawCurveFirstSourceWins(t *testing.T) {
	tel := &telemetry.Telemetry{
		Accel: telemetry.Stream{
			{Timestamp: 0, X: 1, Y: 1, Z: 1},
			{Timestamp: 1, X: 2, Y: 2, Z: 2},
		},
		Gyro: telemetry.Stream{
			{Timestamp: 1, X: 100, Y: 100, Z: 100},
			{Timestamp: 0.5, X: -1, Y: 0, Z: 0},
		},
	}
	got := RawCurve(tel)
	want := []clips.InterestLevel{
		{Timestamp: 0, InterestLevel: 3},
		{Timestamp: 0.5, InterestLevel: -1},
		{Timestamp: 1, InterestLevel: 6},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("raw curve mismatch (-want +got):\n%s", diff)
	}
}

func TestSmoothShrinkingEdges(t *testing.T) {
	in := []clips.InterestLevel{
		{Timestamp: 0, InterestLevel: 1},
		{Timestamp: 1, InterestLevel: 2},
		{Timestamp: 2, InterestLevel: 3},
		{Timestamp: 3, InterestLevel: 4},
	}
	got := Smooth(in, 3)
	want := []float64{1.5, 2, 3, 3.5}
	require.Len(t, got, 4)
	for i, w := range want {
		assert.InDelta(t, w, got[i].InterestLevel, 1e-12)
		assert.Equal(t, in[i].Timestamp, got[i].Timestamp)
	}

	// even window covers one more point behind than ahead
	got = Smooth(in, 2)
	assert.InDelta(t, 1.0, got[0].InterestLevel, 1e-12)
	assert.InDelta(t, 1.5, got[1].InterestLevel, 1e-12)
	assert.InDelta(t, 3.5, got[3].InterestLevel, 1e-12)
}

func TestSmoothWindowOneIsIdentity(t *testing.T) {
	in := curve(0.1, 5, func(t float64) float64 { return t * t })
	if diff := cmp.Diff(in, Smooth(in, 1), approx); diff != "" {
		t.Errorf("smoothing changed values (-want +got):\n%s", diff)
	}
}

func TestExtractBelowThreshold(t *testing.T) {
	c := curve(0.1, 30, func(float64) float64 { return 9.99 })
	assert.Empty(t, Extract(c, DefaultParams()))
}

func TestExtractSingleRun(t *testing.T) {
	c := curve(0.5, 30, between([2]float64{10, 12}))
	got := Extract(c, DefaultParams())
	want := []clips.Segment{{StartTime: 9.5, EndTime: 12.5}}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("segments mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractMergedRuns(t *testing.T) {
	c := curve(0.5, 30, between([2]float64{10, 12}, [2]float64{14, 15}))
	got := Extract(c, DefaultParams())
	want := []clips.Segment{{StartTime: 9.5, EndTime: 15.5}}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("segments mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractRunAtEnd(t *testing.T) {
	c := curve(0.5, 20, between([2]float64{18, 100}))
	got := Extract(c, DefaultParams())
	want := []clips.Segment{{StartTime: 17.5, EndTime: 20.5}}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("segments mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractDropsShortRuns(t *testing.T) {
	c := curve(0.25, 30, between([2]float64{10, 10.5}))
	assert.Empty(t, Extract(c, DefaultParams()))
}

func TestMergeBoundary(t *testing.T) {
	const d = 3.0
	at := []clips.Segment{{StartTime: 0, EndTime: 2}, {StartTime: 5, EndTime: 6}}
	assert.Equal(t, []clips.Segment{{StartTime: 0, EndTime: 6}}, Merge(at, d))

	beyond := []clips.Segment{{StartTime: 0, EndTime: 2}, {StartTime: 5.001, EndTime: 6}}
	assert.Len(t, Merge(beyond, d), 2)

	contained := []clips.Segment{{StartTime: 0, EndTime: 10}, {StartTime: 4, EndTime: 6}}
	assert.Equal(t, []clips.Segment{{StartTime: 0, EndTime: 10}}, Merge(contained, d))
}

func TestBufferDropsEmpty(t *testing.T) {
	got := Buffer([]clips.Segment{{StartTime: 3, EndTime: 3}, {StartTime: 4, EndTime: 5}}, 0)
	assert.Equal(t, []clips.Segment{{StartTime: 4, EndTime: 5}}, got)
}

func TestExtractOutputIsOrdered(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	params := []Params{
		DefaultParams(),
		{Window: 1, Threshold: 10, MinimumLength: 0, Buffer: 0, MergeDistance: 0},
		{Window: 5, Threshold: 5, MinimumLength: 0.2, Buffer: 2, MergeDistance: 0.5},
	}
	for trial := 0; trial < 50; trial++ {
		c := curve(0.1, 60, func(float64) float64 { return rng.Float64() * 20 })
		for _, p := range params {
			segs := Extract(Smooth(c, p.Window), p)
			assert.NoError(t, clips.ValidateList(segs), "trial %d params %+v", trial, p)
		}
	}
}

func TestBucketMeansPerSecond(t *testing.T) {
	in := []clips.InterestLevel{
		{Timestamp: 0.2, InterestLevel: 1},
		{Timestamp: 0.7, InterestLevel: 3},
		{Timestamp: 1.0, InterestLevel: 10},
		{Timestamp: 2.9, InterestLevel: 4},
	}
	want := []clips.InterestLevel{
		{Timestamp: 0, InterestLevel: 2},
		{Timestamp: 1, InterestLevel: 10},
		{Timestamp: 2, InterestLevel: 4},
	}
	if diff := cmp.Diff(want, Bucket(in), approx); diff != "" {
		t.Errorf("bucket mismatch (-want +got):\n%s", diff)
	}
}

func TestBucketIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	c := curve(0.01, 20, func(float64) float64 { return rng.Float64() })
	once := Bucket(c)
	twice := Bucket(once)
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("rebucketing changed the curve (-once +twice):\n%s", diff)
	}
	assert.True(t, Integral(once))
	assert.Empty(t, Bucket(nil))
}

func TestScoreEmptyTelemetry(t *testing.T) {
	res, err := Score(&telemetry.Telemetry{}, DefaultParams())
	require.NoError(t, err)
	assert.NotNil(t, res.Segments)
	assert.Empty(t, res.Segments)
	assert.Empty(t, res.InterestLevels)

	res, err = Score(nil, DefaultParams())
	require.NoError(t, err)
	assert.Empty(t, res.Segments)
}

func TestScoreInvalidParams(t *testing.T) {
	_, err := Score(&telemetry.Telemetry{}, Params{})
	assert.Error(t, err)
}

func TestScoreEndToEnd(t *testing.T) {
	var accel telemetry.Stream
	for i := 0; i <= 300; i++ {
		ts := float64(i) / 10
		z := 1.0
		if ts >= 10 && ts < 20 {
			z = 30
		}
		accel = append(accel, telemetry.Sample{Timestamp: ts, Z: z})
	}
	p := DefaultParams()
	p.Window = 5

	res, err := Score(&telemetry.Telemetry{Accel: accel}, p)
	require.NoError(t, err)
	require.Len(t, res.Segments, 1)
	assert.InDelta(t, 9.4, res.Segments[0].StartTime, 1e-9)
	assert.InDelta(t, 20.6, res.Segments[0].EndTime, 1e-9)
	assert.True(t, Integral(res.InterestLevels))
	assert.Len(t, res.InterestLevels, 31)

	art := res.Artifact(p)
	assert.Equal(t, p.Hash(), art.ParamsHash)
}
