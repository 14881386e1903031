package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/keagan/gyrocut/pkg/util"
)

// ErrNoDataStream is returned when a container has no data stream with the
// requested codec tag
var ErrNoDataStream = errors.New("no matching data stream")

// ProbeVideo extracts metadata from a video file
func (e *Executor) ProbeVideo(ctx context.Context, filePath string) (*VideoInfo, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path is required")
	}

	var probe probeResult
	if err := e.probeJSON(ctx, &probe,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	); err != nil {
		return nil, err
	}

	info := &VideoInfo{
		FilePath: filePath,
	}

	if st, err := os.Stat(filePath); err == nil {
		info.Size = st.Size()
	}

	if dur, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
		info.Duration = util.Seconds(dur)
	}

	if br, err := strconv.ParseInt(probe.Format.BitRate, 10, 64); err == nil {
		info.Bitrate = br
	}

	for _, stream := range probe.Streams {
		switch stream.CodecType {
		case "video":
			if info.Width != 0 {
				continue
			}
			info.Width = stream.Width
			info.Height = stream.Height
			info.VideoCodec = stream.CodecName
			if stream.RFrameRate != "" {
				info.FPS = util.ParseFrameRate(stream.RFrameRate)
			}
			if n, err := strconv.Atoi(stream.NbFrames); err == nil {
				info.Frames = n
			}
			// the video stream duration wins over the container's
			if dur, err := strconv.ParseFloat(stream.Duration, 64); err == nil {
				info.Duration = util.Seconds(dur)
			}
			info.Rotation = stream.rotation()
		case "audio":
			info.HasAudio = true
			info.AudioCodec = stream.CodecName
		}
	}

	if info.Frames == 0 && info.FPS > 0 {
		info.Frames = int(math.Round(info.Duration.Seconds() * info.FPS))
	}

	return info, nil
}

// DataPackets returns the packets of the first data stream whose codec tag
// equals codecTag, with presentation times in seconds.
func (e *Executor) DataPackets(ctx context.Context, input, codecTag string) ([]DataPacket, error) {
	var streams probeResult
	if err := e.probeJSON(ctx, &streams,
		"-v", "error",
		"-show_entries", "stream=index,codec_type,codec_tag_string",
		"-of", "json",
		input,
	); err != nil {
		return nil, err
	}

	index := -1
	for _, s := range streams.Streams {
		if s.CodecType == "data" && s.CodecTagString == codecTag {
			index = s.Index
			break
		}
	}
	if index < 0 {
		return nil, fmt.Errorf("%s: %s: %w", input, codecTag, ErrNoDataStream)
	}

	var packets struct {
		Packets []struct {
			PTSTime      string `json:"pts_time"`
			DurationTime string `json:"duration_time"`
			Size         string `json:"size"`
		} `json:"packets"`
	}
	if err := e.probeJSON(ctx, &packets,
		"-v", "error",
		"-select_streams", strconv.Itoa(index),
		"-show_entries", "packet=pts_time,duration_time,size",
		"-of", "json",
		input,
	); err != nil {
		return nil, err
	}

	raw, err := e.output(ctx, e.ffmpegPath,
		"-v", "error",
		"-i", input,
		"-map", fmt.Sprintf("0:%d", index),
		"-c", "copy",
		"-f", "data",
		"-",
	)
	if err != nil {
		return nil, fmt.Errorf("dump %s stream: %w", codecTag, err)
	}

	out := make([]DataPacket, 0, len(packets.Packets))
	r := bytes.NewReader(raw)
	for i, p := range packets.Packets {
		size, err := strconv.Atoi(p.Size)
		if err != nil {
			return nil, fmt.Errorf("packet %d: bad size %q", i, p.Size)
		}
		pts, _ := strconv.ParseFloat(p.PTSTime, 64)
		dur, _ := strconv.ParseFloat(p.DurationTime, 64)

		data := make([]byte, size)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, fmt.Errorf("packet %d: short stream dump: %w", i, err)
		}
		out = append(out, DataPacket{PTS: pts, Duration: dur, Data: data})
	}

	e.logger.Debug().
		Str("input", input).
		Int("stream", index).
		Int("packets", len(out)).
		Msg("data stream extracted")

	return out, nil
}

func (e *Executor) probeJSON(ctx context.Context, v any, args ...string) error {
	output, err := e.output(ctx, e.ffprobePath, args...)
	if err != nil {
		return fmt.Errorf("ffprobe failed: %w", err)
	}
	if err := json.Unmarshal(output, v); err != nil {
		return fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	return nil
}

// probeResult matches ffprobe JSON output structure
type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
	} `json:"format"`
	Streams []probeStream `json:"streams"`
}

type probeStream struct {
	Index          int               `json:"index"`
	CodecType      string            `json:"codec_type"`
	CodecName      string            `json:"codec_name"`
	CodecTagString string            `json:"codec_tag_string"`
	Width          int               `json:"width"`
	Height         int               `json:"height"`
	RFrameRate     string            `json:"r_frame_rate"`
	NbFrames       string            `json:"nb_frames"`
	Duration       string            `json:"duration"`
	Tags           map[string]string `json:"tags"`
	SideDataList   []struct {
		Rotation *float64 `json:"rotation"`
	} `json:"side_data_list"`
}

func (s probeStream) rotation() int {
	if v, ok := s.Tags["rotate"]; ok {
		if r, err := strconv.Atoi(v); err == nil {
			return r
		}
	}
	for _, sd := range s.SideDataList {
		if sd.Rotation != nil {
			return int(math.Round(*sd.Rotation))
		}
	}
	return 0
}
