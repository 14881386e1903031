package telemetry

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/keagan/gyrocut/internal/ffmpeg"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeKLV appends one GPMF entry, padding the payload to 4 bytes
func writeKLV(buf *bytes.Buffer, key string, typ byte, size, repeat int, payload []byte) {
	buf.WriteString(key)
	buf.WriteByte(typ)
	buf.WriteByte(byte(size))
	_ = binary.Write(buf, binary.BigEndian, uint16(repeat))
	buf.Write(payload)
	for pad := (4 - len(payload)%4) % 4; pad > 0; pad-- {
		buf.WriteByte(0)
	}
}

func int16Payload(vals ...int16) []byte {
	var b bytes.Buffer
	for _, v := range vals {
		_ = binary.Write(&b, binary.BigEndian, v)
	}
	return b.Bytes()
}

// gpmfPacket builds DEVC{STRM{SCAL, <fourcc>}} for each stream given
func gpmfPacket(scale int16, streams map[string][][3]int16) []byte {
	var devc bytes.Buffer
	for _, key := range []string{"ACCL", "GYRO"} {
		rows, ok := streams[key]
		if !ok {
			continue
		}
		var strm bytes.Buffer
		writeKLV(&strm, "SCAL", 's', 2, 1, int16Payload(scale))
		var flat []int16
		for _, r := range rows {
			flat = append(flat, r[0], r[1], r[2])
		}
		writeKLV(&strm, key, 's', 6, len(rows), int16Payload(flat...))
		writeKLV(&devc, "STRM", 0, 1, strm.Len(), strm.Bytes())
	}
	var out bytes.Buffer
	writeKLV(&out, "DEVC", 0, 1, devc.Len(), devc.Bytes())
	return out.Bytes()
}

type fakeSource struct {
	packets []ffmpeg.DataPacket
	err     error
}

func (f *fakeSource) DataPackets(ctx context.Context, input, codecTag string) ([]ffmpeg.DataPacket, error) {
	return f.packets, f.err
}

func TestGPMFExtractor(t *testing.T) {
	src := &fakeSource{packets: []ffmpeg.DataPacket{
		{PTS: 0, Duration: 1, Data: gpmfPacket(10, map[string][][3]int16{
			"ACCL": {{10, 20, 98}, {12, 22, 96}},
			"GYRO": {{1, 2, 3}, {4, 5, 6}, {7, 8, 9}, {10, 11, 12}},
		})},
		{PTS: 1, Duration: 1, Data: gpmfPacket(10, map[string][][3]int16{
			"ACCL": {{-10, 0, 100}, {0, 0, 100}},
			"GYRO": {{0, 0, 0}, {0, 0, 0}, {0, 0, 0}, {0, 0, 0}},
		})},
	}}

	ex := NewGPMFExtractor(zerolog.Nop(), src)
	tel, err := ex.Extract(context.Background(), "GX010213.MP4")
	require.NoError(t, err)

	require.Len(t, tel.Accel, 4)
	require.Len(t, tel.Gyro, 8)

	assert.Equal(t, Sample{Timestamp: 0, X: 1, Y: 2, Z: 9.8}, tel.Accel[0])
	assert.InDelta(t, 0.5, tel.Accel[1].Timestamp, 1e-12)
	assert.InDelta(t, 1.0, tel.Accel[2].Timestamp, 1e-12)
	assert.InDelta(t, -1.0, tel.Accel[2].X, 1e-12)
	assert.InDelta(t, 0.75, tel.Gyro[3].Timestamp, 1e-12)
	assert.InDelta(t, 1.2, tel.Gyro[3].Z, 1e-12)
}

func TestGPMFExtractorMissingTrack(t *testing.T) {
	ex := NewGPMFExtractor(zerolog.Nop(), &fakeSource{err: ffmpeg.ErrNoDataStream})
	_, err := ex.Extract(context.Background(), "x.MP4")
	assert.ErrorIs(t, err, ErrExtraction)
}

func TestGPMFExtractorMissingSubStream(t *testing.T) {
	src := &fakeSource{packets: []ffmpeg.DataPacket{
		{PTS: 0, Duration: 1, Data: gpmfPacket(1, map[string][][3]int16{
			"ACCL": {{1, 2, 3}, {1, 2, 3}},
		})},
	}}
	_, err := NewGPMFExtractor(zerolog.Nop(), src).Extract(context.Background(), "x.MP4")
	assert.ErrorIs(t, err, ErrExtraction)
}

func TestGPMFExtractorInsufficient(t *testing.T) {
	src := &fakeSource{packets: []ffmpeg.DataPacket{
		{PTS: 0, Duration: 1, Data: gpmfPacket(1, map[string][][3]int16{
			"ACCL": {{1, 2, 3}},
			"GYRO": {{1, 2, 3}, {1, 2, 3}},
		})},
	}}
	_, err := NewGPMFExtractor(zerolog.Nop(), src).Extract(context.Background(), "x.MP4")
	assert.ErrorIs(t, err, ErrInsufficientData)
}

type countingExtractor struct {
	calls int
	tel   *Telemetry
}

func (c *countingExtractor) Extract(ctx context.Context, videoPath string) (*Telemetry, error) {
	c.calls++
	return c.tel, nil
}

func TestIngestorCachesOnFirstLoad(t *testing.T) {
	dir := t.TempDir()
	paths := CachePaths{
		Accel: filepath.Join(dir, "GX010213.accel.json"),
		Gyro:  filepath.Join(dir, "GX010213.gyro.json"),
	}
	ex := &countingExtractor{tel: &Telemetry{
		Accel: Stream{{0, 1, 2, 3}, {0.1, 1, 2, 3}},
		Gyro:  Stream{{0, 0.5, 0, 0}, {0.1, 0.25, 0, 0}},
	}}
	in := NewIngestor(zerolog.Nop(), ex, Seconds)

	first, err := in.Load(context.Background(), "GX010213.MP4", paths)
	require.NoError(t, err)
	assert.True(t, in.Cached(paths))

	second, err := in.Load(context.Background(), "GX010213.MP4", paths)
	require.NoError(t, err)

	assert.Equal(t, 1, ex.calls, "second load must come from cache")
	assert.Equal(t, first, second)
}

func TestIngestorMillisecondCachesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	paths := CachePaths{
		Accel: filepath.Join(dir, "GX010213.accel.json"),
		Gyro:  filepath.Join(dir, "GX010213.gyro.json"),
	}
	ex := &countingExtractor{tel: &Telemetry{
		Accel: Stream{{10, 1, 2, 3}, {10.5, 1, 2, 3}},
		Gyro:  Stream{{10, 0.5, 0, 0}, {10.5, 0.25, 0, 0}},
	}}
	in := NewIngestor(zerolog.Nop(), ex, Milliseconds)

	first, err := in.Load(context.Background(), "GX010213.MP4", paths)
	require.NoError(t, err)
	second, err := in.Load(context.Background(), "GX010213.MP4", paths)
	require.NoError(t, err)

	assert.Equal(t, 1, ex.calls)
	require.Len(t, second.Accel, 2)
	assert.InDelta(t, 10.5, second.Accel[1].Timestamp, 1e-12)
	assert.InDelta(t, first.Gyro[1].Timestamp, second.Gyro[1].Timestamp, 1e-12)

	// the file itself holds milliseconds
	raw, err := ReadStream(paths.Accel, Seconds)
	require.NoError(t, err)
	assert.InDelta(t, 10500, raw[1].Timestamp, 1e-9)

	// the extractor's telemetry is not rescaled in place
	assert.Equal(t, 10.5, ex.tel.Accel[1].Timestamp)
}

func TestGPMFExtractorRejectsNonFinite(t *testing.T) {
	src := &fakeSource{packets: []ffmpeg.DataPacket{
		{PTS: math.NaN(), Duration: 1, Data: gpmfPacket(1, map[string][][3]int16{
			"ACCL": {{1, 2, 3}, {1, 2, 3}},
			"GYRO": {{1, 2, 3}, {1, 2, 3}},
		})},
	}}
	_, err := NewGPMFExtractor(zerolog.Nop(), src).Extract(context.Background(), "x.MP4")
	assert.ErrorIs(t, err, ErrFormat)
	assert.ErrorIs(t, err, ErrExtraction)
}

func TestStreamFinite(t *testing.T) {
	assert.NoError(t, Stream{{1, 2, 3, 4}}.Finite())
	assert.ErrorIs(t, Stream{{1, 2, 3, 4}, {math.NaN(), 0, 0, 0}}.Finite(), ErrFormat)
	assert.ErrorIs(t, Stream{{1, math.Inf(1), 0, 0}}.Finite(), ErrFormat)
}

func TestReadStreamErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadStream(filepath.Join(dir, "missing.json"), Seconds)
	assert.ErrorIs(t, err, ErrIO)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`[{"timestamp": "x"}`), 0644))
	_, err = ReadStream(bad, Seconds)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestReadStreamMilliseconds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accel.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"timestamp":1500,"x":1,"y":2,"z":3}]`), 0644))

	s, err := ReadStream(path, Milliseconds)
	require.NoError(t, err)
	require.Len(t, s, 1)
	assert.Equal(t, 1.5, s[0].Timestamp)
}

func TestStreamWindowAndCheck(t *testing.T) {
	s := Stream{{Timestamp: 0}, {Timestamp: 1}, {Timestamp: 2}, {Timestamp: 3}}
	w := s.Window(1, 2)
	assert.Equal(t, []float64{1, 2}, w.Timestamps())

	assert.NoError(t, w.Check(Accel))
	assert.ErrorIs(t, s.Window(5, 6).Check(Accel), ErrInsufficientData)
}
