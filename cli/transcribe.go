package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/maastricht-university/scribe/orchestrator"
)

var transcribeOpts struct {
	model       string
	token       string
	minSpeakers int
	maxSpeakers int
	threads     int
	segments    bool
}

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <audio>",
	Short: "Transcribe one audio file and print the transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig()
		if err != nil {
			return err
		}
		if transcribeOpts.segments {
			conf.Output.SegmentsJSON = true
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		req := orchestrator.Request{
			AudioPath:   args[0],
			ModelSize:   transcribeOpts.model,
			Token:       transcribeOpts.token,
			MinSpeakers: transcribeOpts.minSpeakers,
			MaxSpeakers: transcribeOpts.maxSpeakers,
			Threads:     transcribeOpts.threads,
		}
		return runTranscribe(ctx, orchestrator.NewPipeline(conf), req, cmd)
	},
}

func init() {
	f := transcribeCmd.Flags()
	f.StringVar(&transcribeOpts.model, "model", "", "model size: tiny|base|small|medium|large-v3 (default from config)")
	f.StringVar(&transcribeOpts.token, "hf-token", "", "HuggingFace token for diarization (overrides HF_TOKEN)")
	f.IntVar(&transcribeOpts.minSpeakers, "min-speakers", 0, "minimum number of speakers, 0 to auto-detect")
	f.IntVar(&transcribeOpts.maxSpeakers, "max-speakers", 0, "maximum number of speakers, 0 to auto-detect")
	f.IntVar(&transcribeOpts.threads, "threads", 0, "CPU threads (default from config)")
	f.BoolVar(&transcribeOpts.segments, "json", false, "also write the merged segments as JSON next to the transcript")
}

type runner interface {
	Run(ctx context.Context, req orchestrator.Request, progress orchestrator.ProgressFunc) orchestrator.Result
}

func runTranscribe(ctx context.Context, p runner, req orchestrator.Request, cmd *cobra.Command) error {
	errOut := cmd.ErrOrStderr()
	progress := newProgressReporter(errOut, isTTY(errOut))
	res := p.Run(ctx, req, progress.Func())
	progress.Done()

	if res.Err != nil {
		log.Error(res.Text)
		return errFatal
	}

	fmt.Fprintln(cmd.OutOrStdout(), res.Text)
	log.WithFields(log.Fields{"file": res.OutputPath, "diarized": res.Diarized}).Info("transcript saved")
	return nil
}
