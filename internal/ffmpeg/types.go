package ffmpeg

import "time"

// VideoInfo contains metadata about a video file
type VideoInfo struct {
	FilePath   string
	Size       int64
	Duration   time.Duration
	Width      int
	Height     int
	FPS        float64
	Frames     int
	Bitrate    int64
	VideoCodec string
	HasAudio   bool
	AudioCodec string
	// Rotation is the display rotation in degrees from the rotate tag or
	// the display matrix side data, 0 when absent.
	Rotation int
}

// Progress represents ffmpeg progress data
type Progress struct {
	Frame   int
	FPS     float64
	Bitrate string
	Time    string
	Speed   string
}

// RunOptions configures ffmpeg execution
type RunOptions struct {
	Args            []string
	ProgressHandler func(*Progress)
	LogHandler      func(line string)
}

// Default encoding settings
const (
	DefaultCRF        = 23
	DefaultPreset     = "medium"
	DefaultVideoCodec = "libx264"
	DefaultAudioCodec = "aac"
	DefaultPixFmt     = "yuv420p"
)

// EncodeOptions selects the video encoder settings of an output
type EncodeOptions struct {
	VideoCodec string
	CRF        int
	Preset     string
}

func (o EncodeOptions) args() []string {
	codec := o.VideoCodec
	if codec == "" {
		codec = DefaultVideoCodec
	}
	crf := o.CRF
	if crf == 0 {
		crf = DefaultCRF
	}
	preset := o.Preset
	if preset == "" {
		preset = DefaultPreset
	}
	return []string{"-c:v", codec, "-crf", itoa(crf), "-preset", preset, "-pix_fmt", DefaultPixFmt}
}

// ProgressFunc is a callback for progress updates during ffmpeg operations.
// Called periodically with progress information as the operation executes.
type ProgressFunc func(*Progress)

// DataPacket is one packet of a container data stream
type DataPacket struct {
	PTS      float64
	Duration float64
	Data     []byte
}
