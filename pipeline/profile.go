package pipeline

import (
	"strings"

	"clipcut/ffmpeg"
)

// EncodeProfile is the resolved encoder configuration for a (format, quality) pair.
type EncodeProfile struct {
	Format     string
	Quality    string
	VideoCodec string
	AudioCodec string
	// Width and Height are zero when the profile keeps the source resolution.
	Width   int
	Height  int
	Bitrate string
	Preset  string
}

type tier struct {
	width, height int
	bitrate       string
	preset        string
}

type family struct {
	videoCodec, audioCodec string
	tiers                  map[string]tier
}

var (
	h264Family = family{
		videoCodec: "libx264",
		audioCodec: "aac",
		tiers: map[string]tier{
			"low":    {1280, 720, "1.5M", "fast"},
			"medium": {1920, 1080, "4M", "fast"},
			"high":   {0, 0, "8M", "slow"},
			"ultra":  {0, 0, "15M", "slow"},
		},
	}
	vp9Family = family{
		videoCodec: "libvpx-vp9",
		audioCodec: "libopus",
		tiers: map[string]tier{
			"low":    {1280, 720, "1M", ""},
			"medium": {1920, 1080, "3M", ""},
			"high":   {0, 0, "6M", ""},
			"ultra":  {0, 0, "10M", ""},
		},
	}
	// mkv and unknown containers.
	genericFamily = family{
		videoCodec: "libx264",
		audioCodec: "aac",
		tiers: map[string]tier{
			"low":    {1280, 720, "1.5M", ""},
			"medium": {1920, 1080, "4M", ""},
			"high":   {0, 0, "8M", ""},
			"ultra":  {0, 0, "15M", ""},
		},
	}
)

func familyFor(format string) family {
	switch format {
	case "mp4", "mov":
		return h264Family
	case "webm":
		return vp9Family
	default:
		return genericFamily
	}
}

// ResolveProfile maps a container format and quality tier to encoder settings.
// Unknown formats use the generic H.264 family; unknown tiers use medium.
func ResolveProfile(format, quality string) EncodeProfile {
	format = normalize(format, defaultFormat)
	quality = normalize(quality, defaultQuality)

	fam := familyFor(format)
	t, ok := fam.tiers[quality]
	if !ok {
		quality = defaultQuality
		t = fam.tiers[quality]
	}
	return EncodeProfile{
		Format:     format,
		Quality:    quality,
		VideoCodec: fam.videoCodec,
		AudioCodec: fam.audioCodec,
		Width:      t.width,
		Height:     t.height,
		Bitrate:    t.bitrate,
		Preset:     t.preset,
	}
}

// Filters returns the profile's video filters (currently only scaling).
func (p EncodeProfile) Filters() ffmpeg.FilterChain {
	if p.Width <= 0 || p.Height <= 0 {
		return nil
	}
	return ffmpeg.FilterChain{ffmpeg.Scale(p.Width, p.Height)}
}

// VideoArgs returns the codec, bitrate and preset options.
func (p EncodeProfile) VideoArgs() []string {
	args := []string{"-c:v", p.VideoCodec, "-b:v", p.Bitrate}
	if p.Preset != "" {
		args = append(args, "-preset", p.Preset)
	}
	return args
}

// String renders the profile the way it would appear on the command line.
func (p EncodeProfile) String() string {
	return strings.Join(append(p.Filters().Args(), p.VideoArgs()...), " ")
}

// OutputCodecs returns the (video, audio) codecs of the final encode.
func OutputCodecs(format string) (string, string) {
	switch normalize(format, defaultFormat) {
	case "mp4", "mov":
		return "libx264", "aac"
	case "webm":
		return "libvpx-vp9", "libopus"
	default:
		return "libx264", "aac"
	}
}
