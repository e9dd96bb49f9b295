package clients

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/maastricht-university/scribe/transcript"
)

// Audio is a decoded sample buffer held by the sidecar.
type Audio struct {
	ID       string  `json:"audio_id"`
	Duration float64 `json:"duration"` // sec
}

// LoadAudio uploads the file and lets the sidecar decode it once; later
// calls refer to the buffer by ID.
func (h *HTTP) LoadAudio(ctx context.Context, path string) (*Audio, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	fw, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	fd, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load audio: %w", err)
	}
	defer fd.Close()

	if _, err = io.Copy(fw, fd); err != nil {
		return nil, err
	}
	if err = w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.base+"/audio", &b)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var out Audio
	if err := h.do(req, "load audio", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReleaseAudio drops a decoded buffer on the sidecar.
func (h *HTTP) ReleaseAudio(ctx context.Context, id string) error {
	return h.delete(ctx, "release audio", "/audio/"+url.PathEscape(id))
}

type transcribeReq struct {
	ModelID   string `json:"model_id"`
	AudioID   string `json:"audio_id"`
	BatchSize int    `json:"batch_size"`
}

// Transcribe runs the loaded model over a decoded buffer.
func (h *HTTP) Transcribe(ctx context.Context, modelID, audioID string, batchSize int) (transcript.Result, error) {
	var out transcript.Result
	err := h.postJSON(ctx, "transcribe", "/transcribe", transcribeReq{ModelID: modelID, AudioID: audioID, BatchSize: batchSize}, &out)
	return out, err
}
