package ffmpeg

import (
	"fmt"
	"strconv"
	"strings"
)

// Job describes one external ffmpeg invocation: the args that follow the
// binary and global args, and the output file it produces (if any).
type Job struct {
	Name   string
	Args   []string
	Output string
}

func (j Job) String() string {
	return fmt.Sprintf("%s: %s", j.Name, strings.Join(j.Args, " "))
}

// Seconds formats a time offset the way ffmpeg expects it on the command line.
func Seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FilterArg is one filter option. An empty Key makes it positional.
type FilterArg struct {
	Key   string
	Value string
}

// Filter is a single typed filter descriptor.
type Filter struct {
	Name  string
	Args  []FilterArg
	Audio bool
}

func (f Filter) String() string {
	if len(f.Args) == 0 {
		return f.Name
	}
	parts := make([]string, 0, len(f.Args))
	for _, a := range f.Args {
		v := escapeFilterValue(a.Value)
		if a.Key != "" {
			v = a.Key + "=" + v
		}
		parts = append(parts, v)
	}
	return f.Name + "=" + strings.Join(parts, ":")
}

// Scale resizes video to width x height. Negative values keep ffmpeg's
// aspect-ratio semantics (e.g. -1).
func Scale(width, height int) Filter {
	return Filter{Name: "scale", Args: []FilterArg{
		{Value: strconv.Itoa(width)},
		{Value: strconv.Itoa(height)},
	}}
}

// Volume multiplies audio volume.
func Volume(v float64) Filter {
	return Filter{Name: "volume", Args: []FilterArg{{Value: strconv.FormatFloat(v, 'f', -1, 64)}}, Audio: true}
}

// Subtitles burns an SRT file into the video.
func Subtitles(path string) Filter {
	return Filter{Name: "subtitles", Args: []FilterArg{{Key: "filename", Value: path}}}
}

// Format converts pixel format.
func Format(pixFmt string) Filter {
	return Filter{Name: "format", Args: []FilterArg{{Key: "pix_fmts", Value: pixFmt}}}
}

// Fade applies a fade in or out ("in"/"out") with an alpha channel.
func Fade(direction string, start, duration float64) Filter {
	return Filter{Name: "fade", Args: []FilterArg{
		{Key: "t", Value: direction},
		{Key: "st", Value: Seconds(start)},
		{Key: "d", Value: Seconds(duration)},
		{Key: "alpha", Value: "1"},
	}}
}

// Overlay composites the second input over the first.
func Overlay(format string) Filter {
	return Filter{Name: "overlay", Args: []FilterArg{{Key: "format", Value: format}}}
}

// XFade cross-fades two inputs with the named transition.
func XFade(transition string, duration, offset float64) Filter {
	return Filter{Name: "xfade", Args: []FilterArg{
		{Key: "transition", Value: transition},
		{Key: "duration", Value: Seconds(duration)},
		{Key: "offset", Value: Seconds(offset)},
	}}
}

// Concat joins n video-only inputs.
func Concat(n int) Filter {
	return Filter{Name: "concat", Args: []FilterArg{
		{Key: "n", Value: strconv.Itoa(n)},
		{Key: "v", Value: "1"},
		{Key: "a", Value: "0"},
	}}
}

// FilterChain is an ordered list of filters applied one after another.
type FilterChain []Filter

// Video returns the video filters, preserving order.
func (c FilterChain) Video() FilterChain {
	var out FilterChain
	for _, f := range c {
		if !f.Audio {
			out = append(out, f)
		}
	}
	return out
}

// Audio returns the audio filters, preserving order.
func (c FilterChain) Audio() FilterChain {
	var out FilterChain
	for _, f := range c {
		if f.Audio {
			out = append(out, f)
		}
	}
	return out
}

func (c FilterChain) String() string {
	parts := make([]string, len(c))
	for i, f := range c {
		parts[i] = f.String()
	}
	return strings.Join(parts, ",")
}

// Args serializes the chain into -vf / -af options. An empty chain yields no args.
func (c FilterChain) Args() []string {
	var args []string
	if v := c.Video(); len(v) > 0 {
		args = append(args, "-vf", v.String())
	}
	if a := c.Audio(); len(a) > 0 {
		args = append(args, "-af", a.String())
	}
	return args
}

// GraphChain is one labelled chain inside a -filter_complex graph.
type GraphChain struct {
	Inputs  []string
	Filters FilterChain
	Outputs []string
}

func (g GraphChain) String() string {
	var b strings.Builder
	for _, in := range g.Inputs {
		b.WriteString("[" + in + "]")
	}
	b.WriteString(g.Filters.String())
	for _, out := range g.Outputs {
		b.WriteString("[" + out + "]")
	}
	return b.String()
}

// FilterGraph is a complete -filter_complex value.
type FilterGraph []GraphChain

func (g FilterGraph) String() string {
	parts := make([]string, len(g))
	for i, c := range g {
		parts[i] = c.String()
	}
	return strings.Join(parts, ";")
}

// escapeFilterValue applies both escaping levels ffmpeg uses: option values
// inside a filter description, then the filtergraph itself.
func escapeFilterValue(v string) string {
	var opt strings.Builder
	for _, r := range v {
		switch r {
		case '\\', '\'', ':':
			opt.WriteRune('\\')
		}
		opt.WriteRune(r)
	}
	var graph strings.Builder
	for _, r := range opt.String() {
		switch r {
		case '\\', '\'', '[', ']', ',', ';':
			graph.WriteRune('\\')
		}
		graph.WriteRune(r)
	}
	return graph.String()
}
