package clients

import (
	"context"
	"net/url"
)

// WhisperModel selects and configures the speech-to-text model.
type WhisperModel struct {
	Size        string `json:"size"`
	Device      string `json:"device"`
	ComputeType string `json:"compute_type"`
	Language    string `json:"language"`
	Threads     int    `json:"threads"`
}

type alignModelReq struct {
	LanguageCode string `json:"language_code"`
	Device       string `json:"device"`
	Threads      int    `json:"threads"`
}

type diarizeModelReq struct {
	AuthToken string `json:"auth_token"`
	Device    string `json:"device"`
	Threads   int    `json:"threads"`
}

type modelResp struct {
	ModelID string `json:"model_id"`
}

// LoadModel loads a transcription model and returns its handle.
func (h *HTTP) LoadModel(ctx context.Context, m WhisperModel) (string, error) {
	var out modelResp
	if err := h.postJSON(ctx, "load model", "/models/whisper", m, &out); err != nil {
		return "", err
	}
	return out.ModelID, nil
}

// LoadAlignModel loads the forced-alignment model for a language.
func (h *HTTP) LoadAlignModel(ctx context.Context, language, device string, threads int) (string, error) {
	var out modelResp
	req := alignModelReq{LanguageCode: language, Device: device, Threads: threads}
	if err := h.postJSON(ctx, "load align model", "/models/align", req, &out); err != nil {
		return "", err
	}
	return out.ModelID, nil
}

// LoadDiarizationModel loads the diarization pipeline. The token is the
// HuggingFace credential the sidecar needs to fetch gated weights.
func (h *HTTP) LoadDiarizationModel(ctx context.Context, token, device string, threads int) (string, error) {
	var out modelResp
	req := diarizeModelReq{AuthToken: token, Device: device, Threads: threads}
	if err := h.postJSON(ctx, "load diarization model", "/models/diarize", req, &out); err != nil {
		return "", err
	}
	return out.ModelID, nil
}

// ReleaseModel frees a loaded model on the sidecar.
func (h *HTTP) ReleaseModel(ctx context.Context, id string) error {
	return h.delete(ctx, "release model", "/models/"+url.PathEscape(id))
}
