package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maastricht-university/scribe/clients"
	cfg "github.com/maastricht-university/scribe/config"
	"github.com/maastricht-university/scribe/metrics"
	"github.com/maastricht-university/scribe/transcript"
)

type fakeEngine struct {
	accel bool

	loadModelErr  error
	loadAudioErr  error
	transcribeErr error
	alignErr      error
	diarModelErr  error
	diarizeErr    error

	segments []transcript.Segment
	turns    []transcript.Turn

	gotModel       clients.WhisperModel
	gotAlignThread int
	gotDiarThread  int
	gotBounds      clients.SpeakerBounds
	gotToken       string
	released       []string
	calls          []string
}

func (f *fakeEngine) AcceleratorAvailable(context.Context) (bool, error) { return f.accel, nil }

func (f *fakeEngine) LoadModel(_ context.Context, m clients.WhisperModel) (string, error) {
	f.calls = append(f.calls, "load_model")
	f.gotModel = m
	if f.loadModelErr != nil {
		return "", f.loadModelErr
	}
	return "whisper-1", nil
}

func (f *fakeEngine) LoadAudio(context.Context, string) (*clients.Audio, error) {
	f.calls = append(f.calls, "load_audio")
	if f.loadAudioErr != nil {
		return nil, f.loadAudioErr
	}
	return &clients.Audio{ID: "audio-1", Duration: 12}, nil
}

func (f *fakeEngine) Transcribe(context.Context, string, string, int) (transcript.Result, error) {
	f.calls = append(f.calls, "transcribe")
	if f.transcribeErr != nil {
		return transcript.Result{}, f.transcribeErr
	}
	return transcript.Result{Segments: f.segments, Language: "en"}, nil
}

func (f *fakeEngine) LoadAlignModel(_ context.Context, _, _ string, threads int) (string, error) {
	f.calls = append(f.calls, "load_align")
	f.gotAlignThread = threads
	return "align-1", nil
}

func (f *fakeEngine) Align(_ context.Context, _, _, _ string, res transcript.Result) (transcript.Result, error) {
	f.calls = append(f.calls, "align")
	if f.alignErr != nil {
		return transcript.Result{}, f.alignErr
	}
	return res, nil
}

func (f *fakeEngine) LoadDiarizationModel(_ context.Context, token, _ string, threads int) (string, error) {
	f.calls = append(f.calls, "load_diarize")
	f.gotDiarThread = threads
	f.gotToken = token
	if f.diarModelErr != nil {
		return "", f.diarModelErr
	}
	return "diar-1", nil
}

func (f *fakeEngine) Diarize(_ context.Context, _, _ string, b clients.SpeakerBounds) ([]transcript.Turn, error) {
	f.calls = append(f.calls, "diarize")
	f.gotBounds = b
	if f.diarizeErr != nil {
		return nil, f.diarizeErr
	}
	return f.turns, nil
}

func (f *fakeEngine) ReleaseModel(_ context.Context, id string) error {
	f.released = append(f.released, id)
	return nil
}

func (f *fakeEngine) ReleaseAudio(_ context.Context, id string) error {
	f.released = append(f.released, id)
	return nil
}

func testConfig(t *testing.T, token string) *cfg.Root {
	t.Helper()
	c := &cfg.Root{}
	c.Engine.Device = "auto"
	c.Engine.Language = "en"
	c.Diarization.Token = token
	c.Pipeline.ModelSize = "medium"
	c.Pipeline.Threads = 8
	c.Output.Dir = t.TempDir()
	return c
}

func newEngine() *fakeEngine {
	return &fakeEngine{
		segments: []transcript.Segment{
			{Start: 0, End: 1, Text: "hello"},
			{Start: 1, End: 2, Text: "world"},
			{Start: 3, End: 4, Text: "hi"},
		},
		turns: []transcript.Turn{
			{Start: 0, End: 2.5, Speaker: "A"},
			{Start: 2.5, End: 5, Speaker: "B"},
		},
	}
}

type progressLog struct {
	fractions []float64
	messages  []string
}

func (p *progressLog) fn(f float64, msg string) {
	p.fractions = append(p.fractions, f)
	p.messages = append(p.messages, msg)
}

func runPipeline(t *testing.T, c *cfg.Root, eng *fakeEngine, req Request) (Result, *progressLog) {
	t.Helper()
	p := New(c, eng)
	p.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	pl := &progressLog{}
	return p.Run(context.Background(), req, pl.fn), pl
}

func TestRunDiarized(t *testing.T) {
	eng := newEngine()
	res, pl := runPipeline(t, testConfig(t, "hf_env"), eng, Request{
		AudioPath:   "/tmp/meeting.wav",
		MinSpeakers: 2,
		MaxSpeakers: 0,
	})

	require.NoError(t, res.Err)
	assert.True(t, res.Diarized)
	assert.Equal(t, "[00:00:00] A: hello world\n\n[00:00:03] B: hi", res.Text)
	assert.Equal(t, clients.SpeakerBounds{Min: 2, Max: 0}, eng.gotBounds)
	assert.Equal(t, "hf_env", eng.gotToken)

	require.True(t, res.HasFile())
	data, err := os.ReadFile(res.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, "meeting_transcript.txt", filepath.Base(res.OutputPath))
	assert.Contains(t, string(data), "Speaker diarization: Yes\n")
	assert.Contains(t, string(data), "Model: medium\n")
	assert.Contains(t, string(data), "Generated: 2024-01-02 03:04:05\n")
	assert.True(t, strings.HasSuffix(string(data), res.Text))

	assert.Equal(t, []float64{0.05, 0.15, 0.50, 0.65, 0.90, 0.95, 1.0}, pl.fractions)
	assert.Contains(t, pl.messages[3], "token from environment")
	assert.ElementsMatch(t, []string{"whisper-1", "align-1", "diar-1", "audio-1"}, eng.released)
}

func TestRunWithoutCredential(t *testing.T) {
	eng := newEngine()
	res, pl := runPipeline(t, testConfig(t, ""), eng, Request{AudioPath: "/tmp/a.wav", Token: "   "})

	require.NoError(t, res.Err)
	assert.False(t, res.Diarized)
	want := NoTokenNotice + "\n\n" + transcript.Simple(eng.segments)
	assert.Equal(t, want, res.Text)
	assert.True(t, strings.HasPrefix(res.Text, NoTokenNotice))
	assert.True(t, res.HasFile(), "degraded runs still produce a file")
	assert.NotContains(t, eng.calls, "load_diarize")
	assert.NotContains(t, pl.fractions, 0.65)
}

func TestRunRequestTokenOverridesEnvironment(t *testing.T) {
	eng := newEngine()
	_, pl := runPipeline(t, testConfig(t, "hf_env"), eng, Request{AudioPath: "/tmp/a.wav", Token: " hf_form "})
	assert.Equal(t, "hf_form", eng.gotToken)
	assert.Contains(t, strings.Join(pl.messages, "|"), "token from request")
}

func TestRunFatalModelLoad(t *testing.T) {
	eng := newEngine()
	eng.loadModelErr = errors.New("out of memory")
	res, _ := runPipeline(t, testConfig(t, "hf"), eng, Request{AudioPath: "/tmp/a.wav"})

	require.Error(t, res.Err)
	assert.Contains(t, res.Text, "Error loading model")
	assert.Contains(t, res.Text, "out of memory")
	assert.Empty(t, res.OutputPath)
	assert.False(t, res.HasFile())
	assert.Equal(t, []string{"load_model"}, eng.calls)
}

func TestRunFatalTranscription(t *testing.T) {
	eng := newEngine()
	eng.transcribeErr = errors.New("decoder crashed")
	res, _ := runPipeline(t, testConfig(t, "hf"), eng, Request{AudioPath: "/tmp/a.wav"})

	require.Error(t, res.Err)
	assert.Equal(t, "Error during transcription: decoder crashed", res.Text)
	assert.False(t, res.HasFile())
	assert.Contains(t, eng.released, "whisper-1")
	assert.Contains(t, eng.released, "audio-1")
}

func TestRunFatalAudioLoad(t *testing.T) {
	eng := newEngine()
	eng.loadAudioErr = errors.New("unsupported codec")
	res, _ := runPipeline(t, testConfig(t, ""), eng, Request{AudioPath: "/tmp/a.ogg"})

	require.Error(t, res.Err)
	assert.Contains(t, res.Text, "unsupported codec")
	assert.False(t, res.HasFile())
}

func TestRunMissingAudio(t *testing.T) {
	eng := newEngine()
	res, pl := runPipeline(t, testConfig(t, ""), eng, Request{})

	assert.ErrorIs(t, res.Err, ErrNoAudio)
	assert.Equal(t, NoAudioMessage, res.Text)
	assert.False(t, res.HasFile())
	assert.Empty(t, eng.calls)
	assert.Empty(t, pl.fractions)
}

func TestRunInvalidRequest(t *testing.T) {
	eng := newEngine()
	res, _ := runPipeline(t, testConfig(t, ""), eng, Request{AudioPath: "/tmp/a.wav", ModelSize: "huge"})
	require.Error(t, res.Err)
	assert.Contains(t, res.Text, "model size must be one of")
	assert.Empty(t, eng.calls)

	res, _ = runPipeline(t, testConfig(t, ""), eng, Request{AudioPath: "/tmp/a.wav", Threads: -2})
	require.Error(t, res.Err)
	assert.Contains(t, res.Text, "thread count")
}

func TestRunAlignmentDegrades(t *testing.T) {
	eng := newEngine()
	eng.alignErr = errors.New("no align model for language")
	before := testutil.ToFloat64(metrics.StageDegradedTotal.WithLabelValues("align"))
	res, pl := runPipeline(t, testConfig(t, "hf"), eng, Request{AudioPath: "/tmp/a.wav"})
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.StageDegradedTotal.WithLabelValues("align")))

	require.NoError(t, res.Err)
	assert.True(t, res.Diarized)
	assert.True(t, res.HasFile())

	var warned bool
	for i, msg := range pl.messages {
		if strings.HasPrefix(msg, "Alignment warning: no align model for language") {
			warned = true
			assert.Equal(t, 0.50, pl.fractions[i])
		}
	}
	assert.True(t, warned)
}

func TestRunDiarizationDegrades(t *testing.T) {
	for name, eng := range map[string]*fakeEngine{
		"model load": func() *fakeEngine { e := newEngine(); e.diarModelErr = errors.New("401 gated repo"); return e }(),
		"inference":  func() *fakeEngine { e := newEngine(); e.diarizeErr = errors.New("cuda oom"); return e }(),
	} {
		t.Run(name, func(t *testing.T) {
			res, pl := runPipeline(t, testConfig(t, "hf"), eng, Request{AudioPath: "/tmp/a.wav"})

			require.NoError(t, res.Err)
			assert.False(t, res.Diarized)
			assert.Equal(t, transcript.Simple(eng.segments), res.Text, "no notice when a token was available")
			assert.True(t, res.HasFile())
			assert.Contains(t, strings.Join(pl.messages, "|"), "continuing without speaker labels")

			data, err := os.ReadFile(res.OutputPath)
			require.NoError(t, err)
			assert.Contains(t, string(data), "Speaker diarization: No\n")
		})
	}
}

func TestRunProgressNeverDecreases(t *testing.T) {
	eng := newEngine()
	eng.alignErr = errors.New("x")
	eng.diarizeErr = errors.New("y")
	_, pl := runPipeline(t, testConfig(t, "hf"), eng, Request{AudioPath: "/tmp/a.wav"})

	require.NotEmpty(t, pl.fractions)
	for i := 1; i < len(pl.fractions); i++ {
		assert.GreaterOrEqual(t, pl.fractions[i], pl.fractions[i-1])
	}
	assert.Equal(t, 1.0, pl.fractions[len(pl.fractions)-1])
}

func TestRunForwardsModelParameters(t *testing.T) {
	eng := newEngine()
	eng.accel = true
	c := testConfig(t, "")
	_, _ = runPipeline(t, c, eng, Request{AudioPath: "/tmp/a.wav", ModelSize: "large-v3", Threads: 32})

	assert.Equal(t, clients.WhisperModel{
		Size:        "large-v3",
		Device:      "cuda",
		ComputeType: "float16",
		Language:    "en",
		Threads:     32,
	}, eng.gotModel)
}

func TestRunForwardsThreadsToEveryModel(t *testing.T) {
	eng := newEngine()
	_, _ = runPipeline(t, testConfig(t, "hf"), eng, Request{AudioPath: "/tmp/a.wav", Threads: 6})

	assert.Equal(t, 6, eng.gotModel.Threads)
	assert.Equal(t, 6, eng.gotAlignThread)
	assert.Equal(t, 6, eng.gotDiarThread)

	eng = newEngine()
	_, _ = runPipeline(t, testConfig(t, "hf"), eng, Request{AudioPath: "/tmp/a.wav"})
	assert.Equal(t, 8, eng.gotAlignThread, "config default applies")
	assert.Equal(t, 8, eng.gotDiarThread)
}

func TestRunWritesSegmentsJSON(t *testing.T) {
	eng := newEngine()
	c := testConfig(t, "")
	c.Output.SegmentsJSON = true
	res, _ := runPipeline(t, c, eng, Request{AudioPath: "/tmp/call.wav"})

	require.True(t, res.HasFile())
	_, err := os.Stat(filepath.Join(filepath.Dir(res.OutputPath), "call_segments.json"))
	assert.NoError(t, err)
}
