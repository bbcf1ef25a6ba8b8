package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"clipcut/pipeline"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "render <request.json>",
		Short: "Run an edit request (use - to read it from stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req pipeline.EditRequest
			if err := readRequest(cmd.InOrStdin(), args[0], &req); err != nil {
				return err
			}
			_, p, err := ctx.runner()
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			progress, finish := newProgressReporter(cmd.ErrOrStderr())
			out, err := p.Run(runCtx, req, progress)
			finish()
			if err != nil {
				return describeError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "preview <request.json>",
		Short: "Render a single segment at 720p",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req pipeline.PreviewRequest
			if err := readRequest(cmd.InOrStdin(), args[0], &req); err != nil {
				return err
			}
			_, p, err := ctx.runner()
			if err != nil {
				return err
			}
			out, err := p.Preview(cmd.Context(), req)
			if err != nil {
				return describeError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

// readRequest decodes a JSON request from path, or from stdin when path is "-".
func readRequest(stdin io.Reader, path string, v interface{}) error {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("read request: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse request %s: %w", path, err)
	}
	return nil
}

// describeError appends the tool's stderr to a pipeline error for the terminal.
func describeError(err error) error {
	var pe *pipeline.Error
	if !errors.As(err, &pe) || pe.Diagnostics == "" {
		return err
	}
	return fmt.Errorf("%w\n\nffmpeg output:\n%s", err, pe.Diagnostics)
}

// newProgressReporter draws a progress bar when w is a terminal and falls
// back to log lines otherwise.
func newProgressReporter(w io.Writer) (pipeline.ProgressFunc, func()) {
	if !isTerminal(w) {
		return func(fraction float64) {
			log.Printf("Progress: %3.0f%%", fraction*100)
		}, func() {}
	}

	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("rendering"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionClearOnFinish(),
	)
	progress := func(fraction float64) {
		_ = bar.Set(int(fraction * 100))
	}
	return progress, func() { _ = bar.Finish() }
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
