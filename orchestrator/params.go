package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"

	"github.com/maastricht-university/scribe/clients"
	cfg "github.com/maastricht-university/scribe/config"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// Validate checks the enumerated and ranged form fields. Speaker bounds are
// not validated: non-positive values simply mean auto-detect.
func (r Request) Validate() error {
	err := getValidator().Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Field() {
		case "ModelSize":
			msgs = append(msgs, fmt.Sprintf("model size must be one of %s, got %q", strings.Join(ModelSizes, ", "), fe.Value()))
		case "Threads":
			msgs = append(msgs, fmt.Sprintf("thread count must be at least 1, got %v", fe.Value()))
		default:
			msgs = append(msgs, fe.Error())
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

// Token sources named in progress messages.
const (
	TokenFromRequest     = "request"
	TokenFromEnvironment = "environment"
)

// Params are the values resolved once at the start of an invocation.
type Params struct {
	Token       string
	TokenSource string // empty when no credential is available
	Device      string
	ComputeType string
	BatchSize   int
	Threads     int
	Language    string
	Bounds      clients.SpeakerBounds
}

// Diarize reports whether a credential is available.
func (p Params) Diarize() bool { return p.Token != "" }

// ResolveToken prefers a non-blank explicit token over the environment one.
func ResolveToken(explicit, fromEnv string) (token, source string) {
	if t := strings.TrimSpace(explicit); t != "" {
		return t, TokenFromRequest
	}
	if t := strings.TrimSpace(fromEnv); t != "" {
		return t, TokenFromEnvironment
	}
	return "", ""
}

// DeviceFor maps accelerator availability to device and precision.
func DeviceFor(accelerator bool) (device, computeType string) {
	if accelerator {
		return "cuda", "float16"
	}
	return "cpu", "int8"
}

func batchSizeFor(device string) int {
	if device == "cuda" {
		return 16
	}
	return 4
}

type acceleratorProbe interface {
	AcceleratorAvailable(ctx context.Context) (bool, error)
}

func resolveParams(ctx context.Context, c *cfg.Root, probe acceleratorProbe, req Request) Params {
	token, source := ResolveToken(req.Token, c.Diarization.Token)

	accel := false
	switch c.Engine.Device {
	case "cuda":
		accel = true
	case "auto":
		ok, err := probe.AcceleratorAvailable(ctx)
		if err != nil {
			log.WithError(err).Warn("accelerator probe failed, assuming cpu")
		}
		accel = ok && err == nil
	}
	device, compute := DeviceFor(accel)

	return Params{
		Token:       token,
		TokenSource: source,
		Device:      device,
		ComputeType: compute,
		BatchSize:   batchSizeFor(device),
		Threads:     req.Threads,
		Language:    c.Engine.Language,
		Bounds:      clients.SpeakerBounds{Min: req.MinSpeakers, Max: req.MaxSpeakers},
	}
}
