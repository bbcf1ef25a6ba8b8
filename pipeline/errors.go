package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	KindToolNotInstalled    Kind = "ToolNotInstalled"
	KindInvalidRequest      Kind = "InvalidRequest"
	KindRenderFailed        Kind = "RenderFailed"
	KindTransitionFailed    Kind = "TransitionFailed"
	KindConcatFailed        Kind = "ConcatFailed"
	KindSubtitleWriteFailed Kind = "SubtitleWriteFailed"
	KindIOFailed            Kind = "IoFailed"
	KindCanceled            Kind = "Canceled"
)

var messages = map[Kind]string{
	KindToolNotInstalled:    "ffmpeg and ffprobe must be installed and on PATH",
	KindInvalidRequest:      "the edit request is invalid",
	KindRenderFailed:        "cutting a segment failed",
	KindTransitionFailed:    "creating a transition failed",
	KindConcatFailed:        "joining the segments failed",
	KindSubtitleWriteFailed: "writing a subtitle file failed",
	KindIOFailed:            "a temporary file operation failed",
	KindCanceled:            "the edit was canceled",
}

// ErrNoValidSegments is wrapped by an InvalidRequest error when every segment
// has end <= start.
var ErrNoValidSegments = errors.New("no valid segments")

// Error is the single error type returned by Run and Preview.
type Error struct {
	Kind Kind
	// Op names the step that failed, e.g. "render segment 2".
	Op string
	// Diagnostics holds the tool's stderr verbatim for external-tool failures.
	Diagnostics string
	Err         error
}

func (e *Error) Error() string {
	msg := messages[e.Kind]
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message is the user-facing description of the failure kind.
func (e *Error) Message() string {
	return messages[e.Kind]
}

// KindOf returns the Kind of a pipeline error, or "" for other errors.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func toolError(kind Kind, op, stderr string, err error) *Error {
	return &Error{Kind: kind, Op: op, Diagnostics: stderr, Err: err}
}
