package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"clipcut/ffmpeg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExec records jobs and simulates ffmpeg by writing each job's output.
type fakeExec struct {
	mu           sync.Mutex
	jobs         []ffmpeg.Job
	failOn       string
	stderr       string
	missingTools bool
	manifest     []string
	subtitles    map[string]string
}

func (f *fakeExec) CheckTools() error {
	if f.missingTools {
		return ffmpeg.ErrToolNotFound
	}
	return nil
}

func (f *fakeExec) Run(ctx context.Context, job ffmpeg.Job) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)

	if job.Name == "concat" {
		data, err := os.ReadFile(argAfter(job.Args, "-i"))
		if err != nil {
			return "", err
		}
		f.manifest = strings.Split(strings.TrimSpace(string(data)), "\n")
	}
	if vf := argAfter(job.Args, "-vf"); strings.Contains(vf, "subtitles=filename=") {
		path := vf[strings.Index(vf, "subtitles=filename=")+len("subtitles=filename="):]
		if i := strings.Index(path, ","); i >= 0 {
			path = path[:i]
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		if f.subtitles == nil {
			f.subtitles = map[string]string{}
		}
		f.subtitles[filepath.Base(path)] = string(data)
	}
	if job.Output != "" {
		if err := os.WriteFile(job.Output, []byte(job.Name), 0o644); err != nil {
			return "", err
		}
	}
	if f.failOn != "" && strings.HasPrefix(job.Name, f.failOn) {
		return f.stderr, errors.New("exit status 1")
	}
	return "", nil
}

func (f *fakeExec) jobNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, len(f.jobs))
	for i, j := range f.jobs {
		names[i] = j.Name
	}
	return names
}

func argAfter(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

type fixture struct {
	exec     *fakeExec
	pipeline *Pipeline
	tempRoot string
	output   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	exec := &fakeExec{}
	tempRoot := t.TempDir()
	return &fixture{
		exec:     exec,
		pipeline: New(exec, Options{TempRoot: tempRoot, Namespace: "clipcut", PreviewDir: filepath.Join(tempRoot, "previews")}),
		tempRoot: tempRoot,
		output:   filepath.Join(t.TempDir(), "out.mp4"),
	}
}

// assertNoArtifacts checks that no work directory or file was left in the temp root.
func (f *fixture) assertNoArtifacts(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(f.tempRoot)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), "clipcut_run_"), "leftover work directory %s", e.Name())
	}
}

func (f *fixture) request(segments ...Segment) EditRequest {
	return EditRequest{InputPath: "/videos/source.mp4", OutputPath: f.output, Segments: segments}
}

func ptr(v float64) *float64 { return &v }

func TestRunRejectsAllInvalidSegmentsBeforeSpawning(t *testing.T) {
	f := newFixture(t)
	_, err := f.pipeline.Run(context.Background(), f.request(Segment{Start: 5, End: 5}, Segment{Start: 9, End: 3}), nil)

	require.Error(t, err)
	assert.Equal(t, KindInvalidRequest, KindOf(err))
	assert.ErrorIs(t, err, ErrNoValidSegments)
	assert.Empty(t, f.exec.jobNames())
	f.assertNoArtifacts(t)
}

func TestRunValidation(t *testing.T) {
	f := newFixture(t)
	cases := map[string]EditRequest{
		"missing input":   {OutputPath: f.output, Segments: []Segment{{Start: 0, End: 1}}},
		"missing output":  {InputPath: "in.mp4", Segments: []Segment{{Start: 0, End: 1}}},
		"no segments":     {InputPath: "in.mp4", OutputPath: f.output},
		"negative volume": {InputPath: "in.mp4", OutputPath: f.output, Segments: []Segment{{Start: 0, End: 1}}, Volume: ptr(-1)},
		"zero transition": {InputPath: "in.mp4", OutputPath: f.output, Segments: []Segment{{Start: 0, End: 1}}, Transition: "fade", TransitionDuration: ptr(0)},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.pipeline.Run(context.Background(), req, nil)
			assert.Equal(t, KindInvalidRequest, KindOf(err))
			assert.Error(t, Validate(req))
		})
	}
	assert.Empty(t, f.exec.jobNames())
	assert.NoError(t, Validate(EditRequest{InputPath: "a", OutputPath: "b", Segments: []Segment{{End: 1}}}))
}

func TestValidateIgnoresDurationWithoutTransition(t *testing.T) {
	req := EditRequest{InputPath: "a", OutputPath: "b", Segments: []Segment{{End: 1}}, TransitionDuration: ptr(0)}
	assert.NoError(t, Validate(req))

	req.Transition = TransitionNone
	req.TransitionDuration = ptr(-2)
	assert.NoError(t, Validate(req))

	req.Transition = "wipe"
	assert.Equal(t, KindInvalidRequest, KindOf(Validate(req)))
}

func TestRunSkipsInvalidSegments(t *testing.T) {
	f := newFixture(t)
	out, err := f.pipeline.Run(context.Background(), f.request(
		Segment{Start: 0, End: 4},
		Segment{Start: 10, End: 10},
		Segment{Start: 20, End: 26},
	), nil)

	require.NoError(t, err)
	assert.Equal(t, f.output, out)
	assert.Equal(t, []string{"render segment 0", "render segment 2", "concat"}, f.exec.jobNames())
}

func TestRunWithoutTransitionConcatenatesRenderedSegments(t *testing.T) {
	f := newFixture(t)
	var progress []float64
	_, err := f.pipeline.Run(context.Background(), f.request(
		Segment{Start: 0, End: 4},
		Segment{Start: 8, End: 12},
	), func(v float64) { progress = append(progress, v) })

	require.NoError(t, err)
	require.Len(t, f.exec.manifest, 2)
	assert.True(t, strings.HasSuffix(f.exec.manifest[0], "segment_000.mkv'"))
	assert.True(t, strings.HasSuffix(f.exec.manifest[1], "segment_001.mkv'"))
	assert.Equal(t, []float64{0.3, 0.6, 0.9, 1.0}, progress)
	assert.FileExists(t, f.output)
	f.assertNoArtifacts(t)
}

func TestRunFadeWithThreeSegmentsProducesPairwiseComposites(t *testing.T) {
	f := newFixture(t)
	req := f.request(Segment{Start: 0, End: 6}, Segment{Start: 10, End: 16}, Segment{Start: 20, End: 26})
	req.Transition = "fade"
	req.TransitionDuration = ptr(0.5)

	var progress []float64
	_, err := f.pipeline.Run(context.Background(), req, func(v float64) { progress = append(progress, v) })
	require.NoError(t, err)

	assert.Equal(t, []string{
		"render segment 0", "render segment 1", "render segment 2",
		"transition 1/2", "transition 2/2",
		"concat",
	}, f.exec.jobNames())
	require.Len(t, f.exec.manifest, 2)
	assert.Contains(t, f.exec.manifest[0], "transition_000_001.mkv")
	assert.Contains(t, f.exec.manifest[1], "transition_001_002.mkv")

	trans := f.exec.jobs[3]
	assert.Contains(t, argAfter(trans.Args, "-filter_complex"), "fade=t=out:st=0.5:d=0.5:alpha=1")
	assert.True(t, strings.HasSuffix(trans.Args[2], "segment_000.mkv"))
	assert.True(t, strings.HasSuffix(trans.Args[4], "segment_001.mkv"))

	require.NotEmpty(t, progress)
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i], progress[i-1])
	}
	assert.Contains(t, progress, 0.7)
	assert.Equal(t, 1.0, progress[len(progress)-1])
	f.assertNoArtifacts(t)
}

func TestRunTransitionNeedsTwoSegments(t *testing.T) {
	f := newFixture(t)
	req := f.request(Segment{Start: 0, End: 6}, Segment{Start: 8, End: 2})
	req.Transition = "wipe"

	_, err := f.pipeline.Run(context.Background(), req, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"render segment 0", "concat"}, f.exec.jobNames())
}

func TestRunBuildsRenderJob(t *testing.T) {
	f := newFixture(t)
	req := f.request(Segment{Start: 1.5, End: 4, Content: "Hello there"}, Segment{Start: 6, End: 80, Content: "   "})
	req.Format = "webm"
	req.Quality = "low"
	req.Volume = ptr(1.5)
	req.AddSubtitles = true

	_, err := f.pipeline.Run(context.Background(), req, nil)
	require.NoError(t, err)

	job := f.exec.jobs[0]
	assert.Equal(t, []string{"-y", "-ss", "1.5", "-i", "/videos/source.mp4", "-t", "2.5"}, job.Args[:7])
	vf := argAfter(job.Args, "-vf")
	assert.True(t, strings.HasPrefix(vf, "scale=1280:720,subtitles=filename="), vf)
	assert.True(t, strings.HasSuffix(vf, "subtitle_000.srt"), vf)
	assert.Equal(t, "volume=1.5", argAfter(job.Args, "-af"))
	assert.Equal(t, "libvpx-vp9", argAfter(job.Args, "-c:v"))
	assert.Equal(t, "1M", argAfter(job.Args, "-b:v"))
	assert.Equal(t, "aac", argAfter(job.Args, "-c:a"))
	assert.Equal(t, job.Output, job.Args[len(job.Args)-1])

	assert.Equal(t, "1\n00:00:00,000 --> 00:00:02,000\nHello there\n\n", f.exec.subtitles["subtitle_000.srt"])
	assert.NotContains(t, f.exec.subtitles, "subtitle_001.srt", "blank captions are not burned in")
	assert.NotContains(t, argAfter(f.exec.jobs[1].Args, "-vf"), "subtitles")

	concat := f.exec.jobs[len(f.exec.jobs)-1]
	assert.Equal(t, "libvpx-vp9", argAfter(concat.Args, "-c:v"))
	assert.Equal(t, "libopus", argAfter(concat.Args, "-c:a"))
	assert.Equal(t, "0", argAfter(concat.Args, "-safe"))
	f.assertNoArtifacts(t)
}

func TestRunVolumeNearOneIsIgnored(t *testing.T) {
	f := newFixture(t)
	req := f.request(Segment{Start: 0, End: 2})
	req.Volume = ptr(1.005)
	req.Quality = "high"

	_, err := f.pipeline.Run(context.Background(), req, nil)
	require.NoError(t, err)
	assert.Empty(t, argAfter(f.exec.jobs[0].Args, "-af"))
	assert.Empty(t, argAfter(f.exec.jobs[0].Args, "-vf"), "high quality keeps source resolution")
}

func TestRunFailures(t *testing.T) {
	cases := []struct {
		failOn string
		kind   Kind
		jobs   int
	}{
		{"render segment 1", KindRenderFailed, 2},
		{"transition 2/2", KindTransitionFailed, 5},
		{"concat", KindConcatFailed, 6},
	}
	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			f := newFixture(t)
			f.exec.failOn = tc.failOn
			f.exec.stderr = "Conversion failed!"
			req := f.request(Segment{Start: 0, End: 6}, Segment{Start: 10, End: 16}, Segment{Start: 20, End: 26})
			req.Transition = "dissolve"

			out, err := f.pipeline.Run(context.Background(), req, nil)
			require.Error(t, err)
			assert.Empty(t, out)
			assert.Equal(t, tc.kind, KindOf(err))

			var pe *Error
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, "Conversion failed!", pe.Diagnostics)
			assert.Len(t, f.exec.jobNames(), tc.jobs)

			_, statErr := os.Stat(f.output)
			assert.True(t, os.IsNotExist(statErr), "no output on failure")
			f.assertNoArtifacts(t)
		})
	}
}

func TestRunConcatFailureKeepsExistingOutput(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(f.output, []byte("previous render"), 0o644))
	f.exec.failOn = "concat"

	_, err := f.pipeline.Run(context.Background(), f.request(Segment{Start: 0, End: 2}), nil)
	require.Error(t, err)
	assert.Equal(t, KindConcatFailed, KindOf(err))

	data, err := os.ReadFile(f.output)
	require.NoError(t, err)
	assert.Equal(t, "previous render", string(data))
	entries, err := os.ReadDir(filepath.Dir(f.output))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "staging file removed")
}

func TestRunReplacesExistingOutput(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(f.output, []byte("previous render"), 0o644))

	_, err := f.pipeline.Run(context.Background(), f.request(Segment{Start: 0, End: 2}), nil)
	require.NoError(t, err)

	concat := f.exec.jobs[len(f.exec.jobs)-1]
	assert.NotEqual(t, f.output, concat.Output)
	assert.Equal(t, filepath.Dir(f.output), filepath.Dir(concat.Output))
	data, err := os.ReadFile(f.output)
	require.NoError(t, err)
	assert.Equal(t, "concat", string(data))
	entries, err := os.ReadDir(filepath.Dir(f.output))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRunToolNotInstalled(t *testing.T) {
	f := newFixture(t)
	f.exec.missingTools = true
	_, err := f.pipeline.Run(context.Background(), f.request(Segment{Start: 0, End: 1}), nil)
	assert.Equal(t, KindToolNotInstalled, KindOf(err))
	assert.ErrorIs(t, err, ffmpeg.ErrToolNotFound)
	assert.Empty(t, f.exec.jobNames())
}

func TestRunCancelBetweenStages(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := f.pipeline.Run(ctx, f.request(Segment{Start: 0, End: 1}, Segment{Start: 2, End: 3}), func(v float64) {
		cancel()
	})
	require.Error(t, err)
	assert.Equal(t, KindCanceled, KindOf(err))
	assert.True(t, IsCanceled(err))
	assert.Equal(t, []string{"render segment 0"}, f.exec.jobNames())
	f.assertNoArtifacts(t)
}

func TestRunSurvivesPanickingProgressSink(t *testing.T) {
	f := newFixture(t)
	_, err := f.pipeline.Run(context.Background(), f.request(Segment{Start: 0, End: 1}), func(float64) {
		panic("window closed")
	})
	assert.NoError(t, err)
}

func TestRunMaxInputSize(t *testing.T) {
	f := newFixture(t)
	input := filepath.Join(t.TempDir(), "big.mp4")
	require.NoError(t, os.WriteFile(input, make([]byte, 64), 0o644))
	f.pipeline.opts.MaxInputSize = 32

	req := f.request(Segment{Start: 0, End: 1})
	req.InputPath = input
	_, err := f.pipeline.Run(context.Background(), req, nil)
	assert.Equal(t, KindInvalidRequest, KindOf(err))
	assert.Contains(t, err.Error(), "exceeds limit")
}

func TestConcurrentRunsShareTempRoot(t *testing.T) {
	tempRoot := t.TempDir()
	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := New(&fakeExec{}, Options{TempRoot: tempRoot})
			req := EditRequest{
				InputPath:  "in.mp4",
				OutputPath: filepath.Join(t.TempDir(), "out.mp4"),
				Segments:   []Segment{{Start: 0, End: 1}, {Start: 1, End: 2}},
				Transition: "slide",
			}
			_, errs[i] = p.Run(context.Background(), req, nil)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}
	entries, err := os.ReadDir(tempRoot)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPreview(t *testing.T) {
	t.Run("invalid time range", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.pipeline.Preview(context.Background(), PreviewRequest{InputPath: "in.mp4", Segment: Segment{Start: 3, End: 1}})
		assert.Equal(t, KindInvalidRequest, KindOf(err))
		assert.Empty(t, f.exec.jobNames())
	})

	t.Run("renders one segment at 720p", func(t *testing.T) {
		f := newFixture(t)
		out, err := f.pipeline.Preview(context.Background(), PreviewRequest{
			InputPath:    "in.mp4",
			Segment:      Segment{Start: 2, End: 7, Content: "Preview caption"},
			Transition:   "fade",
			Volume:       ptr(0.5),
			AddSubtitles: true,
		})
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(f.tempRoot, "previews"), filepath.Dir(out))
		assert.FileExists(t, out)
		assert.Equal(t, []string{"preview"}, f.exec.jobNames())

		job := f.exec.jobs[0]
		vf := argAfter(job.Args, "-vf")
		assert.True(t, strings.HasPrefix(vf, "scale=1280:720,subtitles=filename="), vf)
		assert.Equal(t, "volume=0.5", argAfter(job.Args, "-af"))
		assert.Equal(t, "5", argAfter(job.Args, "-t"))
		assert.Equal(t, "1\n00:00:00,000 --> 00:00:05,000\nPreview caption\n\n", f.exec.subtitles["subtitle.srt"])
		f.assertNoArtifacts(t)
	})

	t.Run("render failure", func(t *testing.T) {
		f := newFixture(t)
		f.exec.failOn = "preview"
		f.exec.stderr = "moov atom not found"
		_, err := f.pipeline.Preview(context.Background(), PreviewRequest{InputPath: "in.mp4", Segment: Segment{Start: 0, End: 1}})
		assert.Equal(t, KindRenderFailed, KindOf(err))
		var pe *Error
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "moov atom not found", pe.Diagnostics)
	})
}
