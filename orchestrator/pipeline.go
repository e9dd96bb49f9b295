package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/maastricht-university/scribe/clients"
	cfg "github.com/maastricht-university/scribe/config"
	"github.com/maastricht-university/scribe/metrics"
	"github.com/maastricht-university/scribe/transcript"
)

// NoTokenNotice prefixes the transcript when diarization never had a credential.
const NoTokenNotice = "NOTE: No HuggingFace token provided (neither in request nor environment) - speaker diarization disabled."

// Engine is the model sidecar as seen by the pipeline.
type Engine interface {
	AcceleratorAvailable(ctx context.Context) (bool, error)

	LoadModel(ctx context.Context, m clients.WhisperModel) (string, error)
	LoadAudio(ctx context.Context, path string) (*clients.Audio, error)
	Transcribe(ctx context.Context, modelID, audioID string, batchSize int) (transcript.Result, error)

	LoadAlignModel(ctx context.Context, language, device string, threads int) (string, error)
	Align(ctx context.Context, modelID, audioID, device string, res transcript.Result) (transcript.Result, error)

	LoadDiarizationModel(ctx context.Context, token, device string, threads int) (string, error)
	Diarize(ctx context.Context, modelID, audioID string, bounds clients.SpeakerBounds) ([]transcript.Turn, error)

	ReleaseModel(ctx context.Context, id string) error
	ReleaseAudio(ctx context.Context, id string) error
}

type Pipeline struct {
	cfg    *cfg.Root
	engine Engine
	writer *transcript.Writer
	now    func() time.Time
}

// NewPipeline wires the pipeline to the sidecar named in the config.
func NewPipeline(c *cfg.Root) *Pipeline {
	return New(c, clients.NewHTTP(c.Engine.URL, c.Engine.Timeout))
}

func New(c *cfg.Root, engine Engine) *Pipeline {
	return &Pipeline{
		cfg:    c,
		engine: engine,
		writer: transcript.NewWriter(c.Output.Dir),
		now:    time.Now,
	}
}

// Run drives one invocation to completion. It never returns an error:
// fatal failures come back as result text with no output file.
func (p *Pipeline) Run(ctx context.Context, req Request, progress ProgressFunc) Result {
	if req.ModelSize == "" {
		req.ModelSize = p.cfg.Pipeline.ModelSize
	}
	if req.Threads == 0 {
		req.Threads = p.cfg.Pipeline.Threads
	}

	entry := log.WithFields(log.Fields{"audio": req.AudioPath, "model": req.ModelSize})
	started := time.Now()

	res := p.run(ctx, req, newTracker(progress, entry))

	outcome := "ok"
	if res.Err != nil {
		outcome = "fatal"
		entry.WithError(res.Err).Error("transcription failed")
	} else {
		entry.WithFields(log.Fields{
			"diarized": res.Diarized,
			"output":   res.OutputPath,
			"elapsed":  time.Since(started).Round(time.Millisecond),
		}).Info("transcription complete")
	}
	metrics.PipelineRunsTotal.WithLabelValues(outcome).Inc()
	return res
}

func (p *Pipeline) run(ctx context.Context, req Request, tr *tracker) Result {
	if strings.TrimSpace(req.AudioPath) == "" {
		return fatal(NoAudioMessage, ErrNoAudio)
	}
	if err := req.Validate(); err != nil {
		return fatal("Invalid request: "+err.Error(), err)
	}

	params := resolveParams(ctx, p.cfg, p.engine, req)
	tr.entry = tr.entry.WithFields(log.Fields{"device": params.Device, "compute_type": params.ComputeType})

	tr.report(0.05, "Loading Whisper model...")
	t0 := time.Now()
	modelID, err := p.engine.LoadModel(ctx, clients.WhisperModel{
		Size:        req.ModelSize,
		Device:      params.Device,
		ComputeType: params.ComputeType,
		Language:    params.Language,
		Threads:     req.Threads,
	})
	metrics.ObserveStage("load_model", t0)
	if err != nil {
		return fatal(fmt.Sprintf("Error loading model: %v", err), fmt.Errorf("load model: %w", err))
	}

	tr.report(0.15, "Transcribing audio (this may take a while for long files)...")
	t0 = time.Now()
	audio, result, err := p.transcribe(ctx, modelID, req.AudioPath, params.BatchSize)
	metrics.ObserveStage("transcribe", t0)
	if audio != nil {
		defer p.release(ctx, "audio", audio.ID, p.engine.ReleaseAudio)
	}
	if err != nil {
		p.release(ctx, "model", modelID, p.engine.ReleaseModel)
		return fatal(fmt.Sprintf("Error during transcription: %v", err), fmt.Errorf("transcribe: %w", err))
	}

	tr.report(0.50, "Aligning transcript...")
	aligned := p.align(ctx, params, audio.ID, result)
	if !aligned.OK() {
		metrics.StageDegradedTotal.WithLabelValues("align").Inc()
		tr.warn(0.50, fmt.Sprintf("Alignment warning: %v, continuing...", aligned.Degraded))
	}
	result = aligned.Value

	p.release(ctx, "model", modelID, p.engine.ReleaseModel)

	diarized := false
	if params.Diarize() {
		tr.report(0.65, fmt.Sprintf("Performing speaker diarization (token from %s)...", params.TokenSource))
		d := p.diarize(ctx, params, audio.ID, result)
		if d.OK() {
			diarized = true
		} else {
			metrics.StageDegradedTotal.WithLabelValues("diarize").Inc()
			tr.warn(0.65, fmt.Sprintf("Diarization failed: %v, continuing without speaker labels...", d.Degraded))
		}
		result = d.Value
	}

	tr.report(0.90, "Formatting output...")
	text := render(result.Segments, diarized, params.Diarize())

	tr.report(0.95, "Saving transcript...")
	path, err := p.persist(req, text, diarized, result.Segments)
	if err != nil {
		return fatal(fmt.Sprintf("Error writing transcript: %v", err), err)
	}

	tr.report(1.0, "Complete!")
	return Result{Text: text, OutputPath: path, Diarized: diarized}
}

func (p *Pipeline) transcribe(ctx context.Context, modelID, path string, batchSize int) (*clients.Audio, transcript.Result, error) {
	audio, err := p.engine.LoadAudio(ctx, path)
	if err != nil {
		return nil, transcript.Result{}, err
	}
	res, err := p.engine.Transcribe(ctx, modelID, audio.ID, batchSize)
	return audio, res, err
}

// align falls back to the unaligned result on any failure.
func (p *Pipeline) align(ctx context.Context, params Params, audioID string, res transcript.Result) Outcome[transcript.Result] {
	defer metrics.ObserveStage("align", time.Now())

	language := res.Language
	if language == "" {
		language = params.Language
	}
	alignID, err := p.engine.LoadAlignModel(ctx, language, params.Device, params.Threads)
	if err != nil {
		return degraded(res, fmt.Errorf("load align model: %w", err))
	}
	defer p.release(ctx, "align model", alignID, p.engine.ReleaseModel)

	out, err := p.engine.Align(ctx, alignID, audioID, params.Device, res)
	if err != nil {
		return degraded(res, err)
	}
	return succeeded(out)
}

// diarize falls back to the unlabelled result on any failure. Turns come
// from the sidecar; merging them into the segments happens here.
func (p *Pipeline) diarize(ctx context.Context, params Params, audioID string, res transcript.Result) Outcome[transcript.Result] {
	defer metrics.ObserveStage("diarize", time.Now())

	diarID, err := p.engine.LoadDiarizationModel(ctx, params.Token, params.Device, params.Threads)
	if err != nil {
		return degraded(res, fmt.Errorf("load diarization model: %w", err))
	}
	defer p.release(ctx, "diarization model", diarID, p.engine.ReleaseModel)

	turns, err := p.engine.Diarize(ctx, diarID, audioID, params.Bounds)
	if err != nil {
		return degraded(res, err)
	}
	return succeeded(transcript.AssignSpeakers(turns, res))
}

// release frees a sidecar resource; failures only cost memory on the sidecar.
func (p *Pipeline) release(ctx context.Context, kind, id string, free func(context.Context, string) error) {
	if id == "" {
		return
	}
	if err := free(ctx, id); err != nil {
		log.WithError(err).WithFields(log.Fields{"kind": kind, "id": id}).Debug("release failed")
	}
}

func render(segments []transcript.Segment, diarized, hadToken bool) string {
	if diarized {
		return transcript.WithSpeakers(segments)
	}
	text := transcript.Simple(segments)
	if !hadToken {
		text = NoTokenNotice + "\n\n" + text
	}
	return text
}

func fatal(msg string, err error) Result {
	return Result{Text: msg, Err: err}
}
