package orchestrator

import (
	"errors"

	cfg "github.com/maastricht-university/scribe/config"
)

// ModelSizes are the transcription models the sidecar can load.
var ModelSizes = cfg.ModelSizes

// ErrNoAudio is set on the result when a request carries no audio file.
var ErrNoAudio = errors.New("no audio file")

// NoAudioMessage is the result text for ErrNoAudio.
const NoAudioMessage = "Please upload an audio file."

// Request is one user action: an audio file plus the form parameters.
type Request struct {
	AudioPath   string
	ModelSize   string `validate:"oneof=tiny base small medium large-v3"`
	Token       string // overrides the environment credential when non-blank
	MinSpeakers int    // <= 0 means auto-detect
	MaxSpeakers int    // <= 0 means auto-detect
	Threads     int    `validate:"min=1"`
}

// Result is what the caller shows: transcript text and the written file.
// On a fatal failure Text carries the error message, OutputPath is empty
// and Err holds the cause.
type Result struct {
	Text       string
	OutputPath string
	Diarized   bool
	Err        error
}

// HasFile reports whether a transcript file was produced.
func (r Result) HasFile() bool { return r.OutputPath != "" }

// ProgressFunc receives non-decreasing fractions in [0,1] with a
// human-readable stage description.
type ProgressFunc func(fraction float64, desc string)

// Outcome is the result of a stage that may degrade instead of failing.
// Value always holds the best available data; Degraded carries the reason
// when the stage did not succeed.
type Outcome[T any] struct {
	Value    T
	Degraded error
}

func succeeded[T any](v T) Outcome[T] { return Outcome[T]{Value: v} }

func degraded[T any](fallback T, err error) Outcome[T] {
	return Outcome[T]{Value: fallback, Degraded: err}
}

func (o Outcome[T]) OK() bool { return o.Degraded == nil }
