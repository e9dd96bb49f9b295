package clients

import (
	"context"

	"github.com/samber/lo"

	"github.com/maastricht-university/scribe/transcript"
)

type alignSeg struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type alignReq struct {
	ModelID              string     `json:"model_id"`
	AudioID              string     `json:"audio_id"`
	Device               string     `json:"device"`
	Segments             []alignSeg `json:"segments"`
	ReturnCharAlignments bool       `json:"return_char_alignments"`
}

// Align refines segment timestamps to word level with the alignment model.
func (h *HTTP) Align(ctx context.Context, modelID, audioID, device string, res transcript.Result) (transcript.Result, error) {
	req := alignReq{
		ModelID: modelID,
		AudioID: audioID,
		Device:  device,
		Segments: lo.Map(res.Segments, func(s transcript.Segment, _ int) alignSeg {
			return alignSeg{Start: s.Start, End: s.End, Text: s.Text}
		}),
	}

	var out transcript.Result
	if err := h.postJSON(ctx, "align", "/align", req, &out); err != nil {
		return transcript.Result{}, err
	}
	if out.Language == "" {
		out.Language = res.Language
	}
	return out, nil
}
