package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

const (
	defaultFormat             = "mp4"
	defaultQuality            = "medium"
	defaultTransitionDuration = 1.0
	defaultVolume             = 1.0
)

// Segment is a time range of the source, in seconds.
type Segment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Type    string  `json:"type,omitempty"`
	Content string  `json:"content,omitempty"`
}

// Duration is End - Start; it is only meaningful for valid segments.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Valid reports whether the segment has a positive duration.
func (s Segment) Valid() bool {
	return s.End > s.Start
}

// EditRequest describes one edit: an ordered timeline of segments cut from a
// single input, plus global effects.
type EditRequest struct {
	InputPath          string    `json:"input_path"`
	OutputPath         string    `json:"output_path"`
	Segments           []Segment `json:"segments"`
	Quality            string    `json:"quality,omitempty"`
	Format             string    `json:"format,omitempty"`
	Transition         string    `json:"transition,omitempty"`
	TransitionDuration *float64  `json:"transition_duration,omitempty"`
	Volume             *float64  `json:"volume,omitempty"`
	AddSubtitles       bool      `json:"add_subtitles,omitempty"`
}

// PreviewRequest renders a single segment. Transition fields are accepted for
// symmetry with EditRequest and ignored.
type PreviewRequest struct {
	InputPath          string   `json:"input_path"`
	Segment            Segment  `json:"segment"`
	Transition         string   `json:"transition,omitempty"`
	TransitionDuration *float64 `json:"transition_duration,omitempty"`
	Volume             *float64 `json:"volume,omitempty"`
	AddSubtitles       bool     `json:"add_subtitles,omitempty"`
}

// plan is a validated EditRequest with defaults applied.
type plan struct {
	input              string
	output             string
	segments           []indexedSegment
	format             string
	profile            EncodeProfile
	transition         string
	transitionDuration float64
	volume             float64
	subtitles          bool
}

// indexedSegment keeps the segment's position in the request for artifact naming.
type indexedSegment struct {
	index int
	Segment
}

func normalize(s, def string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return def
	}
	return s
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// ValidSegments drops segments with end <= start, preserving order.
func ValidSegments(segments []Segment) []Segment {
	var out []Segment
	for _, s := range segments {
		if s.Valid() {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks an edit request without touching the filesystem.
func Validate(req EditRequest) error {
	_, err := newPlan(req)
	return err
}

func newPlan(req EditRequest) (*plan, error) {
	if strings.TrimSpace(req.InputPath) == "" {
		return nil, newError(KindInvalidRequest, "validate", errors.New("input_path is required"))
	}
	if strings.TrimSpace(req.OutputPath) == "" {
		return nil, newError(KindInvalidRequest, "validate", errors.New("output_path is required"))
	}
	if len(req.Segments) == 0 {
		return nil, newError(KindInvalidRequest, "validate", ErrNoValidSegments)
	}

	p := &plan{
		input:              req.InputPath,
		output:             req.OutputPath,
		format:             normalize(req.Format, defaultFormat),
		transition:         normalize(req.Transition, TransitionNone),
		transitionDuration: floatOr(req.TransitionDuration, defaultTransitionDuration),
		volume:             floatOr(req.Volume, defaultVolume),
		subtitles:          req.AddSubtitles,
	}
	if p.transition != TransitionNone && p.transitionDuration <= 0 {
		return nil, newError(KindInvalidRequest, "validate",
			fmt.Errorf("transition_duration must be positive, got %v", p.transitionDuration))
	}
	if p.volume < 0 {
		return nil, newError(KindInvalidRequest, "validate", fmt.Errorf("volume must not be negative, got %v", p.volume))
	}
	p.profile = ResolveProfile(p.format, req.Quality)

	for i, s := range req.Segments {
		if !s.Valid() {
			continue
		}
		p.segments = append(p.segments, indexedSegment{index: i, Segment: s})
	}
	if len(p.segments) == 0 {
		return nil, newError(KindInvalidRequest, "validate", ErrNoValidSegments)
	}
	return p, nil
}
