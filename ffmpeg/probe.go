package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Metadata is the subset of ffprobe output the editor needs.
type Metadata struct {
	Duration float64 `json:"duration"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	FPS      float64 `json:"fps"`
	Codec    string  `json:"codec"`
	Bitrate  int64   `json:"bitrate"`
}

type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
	Format  ffprobeFormat   `json:"format"`
}

type ffprobeStream struct {
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	RFrameRate string `json:"r_frame_rate"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
	BitRate  string `json:"bit_rate"`
}

// Probe reads duration, resolution, frame rate, codec and bitrate of a file.
func (r *Runner) Probe(ctx context.Context, path string) (*Metadata, error) {
	if err := r.CheckTools(); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	stderr, err := r.exec(ctx, r.cfg.FFProbeBin, []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}, &out)
	if err != nil {
		if errors.Is(err, ErrToolNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("ffprobe failed for %s: %w: %s", path, err, strings.TrimSpace(stderr))
	}
	return ParseProbeOutput(out.Bytes())
}

// ParseProbeOutput decodes ffprobe's JSON and picks the first video stream.
func ParseProbeOutput(data []byte) (*Metadata, error) {
	var ff ffprobeOutput
	if err := json.Unmarshal(data, &ff); err != nil {
		return nil, fmt.Errorf("could not parse ffprobe output: %w", err)
	}

	var video *ffprobeStream
	for i := range ff.Streams {
		if ff.Streams[i].CodecType == "video" {
			video = &ff.Streams[i]
			break
		}
	}
	if video == nil {
		return nil, errors.New("no video stream found")
	}

	meta := &Metadata{
		Width:  video.Width,
		Height: video.Height,
		FPS:    ParseFPS(video.RFrameRate),
		Codec:  video.CodecName,
	}
	if meta.Codec == "" {
		meta.Codec = "unknown"
	}
	if dur, err := strconv.ParseFloat(ff.Format.Duration, 64); err == nil {
		meta.Duration = dur
	}
	if br, err := strconv.ParseInt(ff.Format.BitRate, 10, 64); err == nil {
		meta.Bitrate = br
	}
	return meta, nil
}

// ParseFPS converts an ffprobe rational like "24000/1001". Malformed input or a
// zero denominator yields 0.
func ParseFPS(s string) float64 {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return 0
	}
	num, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0
	}
	den, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || den <= 0 {
		return 0
	}
	return num / den
}
