package clients

import (
	"context"

	"github.com/samber/lo"

	"github.com/maastricht-university/scribe/transcript"
)

// SpeakerBounds constrains the number of speakers the diarizer looks for.
// Zero or negative values are left out of the request so the model
// auto-detects.
type SpeakerBounds struct {
	Min int
	Max int
}

type diarizeReq struct {
	ModelID     string `json:"model_id"`
	AudioID     string `json:"audio_id"`
	MinSpeakers *int   `json:"min_speakers,omitempty"`
	MaxSpeakers *int   `json:"max_speakers,omitempty"`
}

type diarizeSeg struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

type diarizeResp struct {
	Segments []diarizeSeg `json:"segments"`
}

// Diarize returns the speaker turns found in the audio.
func (h *HTTP) Diarize(ctx context.Context, modelID, audioID string, bounds SpeakerBounds) ([]transcript.Turn, error) {
	req := diarizeReq{ModelID: modelID, AudioID: audioID}
	if bounds.Min > 0 {
		req.MinSpeakers = lo.ToPtr(bounds.Min)
	}
	if bounds.Max > 0 {
		req.MaxSpeakers = lo.ToPtr(bounds.Max)
	}

	var out diarizeResp
	if err := h.postJSON(ctx, "diarize", "/diarize", req, &out); err != nil {
		return nil, err
	}
	return lo.Map(out.Segments, func(s diarizeSeg, _ int) transcript.Turn {
		return transcript.Turn{Start: s.Start, End: s.End, Speaker: s.Speaker}
	}), nil
}
