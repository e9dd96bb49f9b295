package transcript

// Word is one aligned word inside a segment.
type Word struct {
	Word    string  `json:"word"`
	Start   float64 `json:"start,omitempty"`
	End     float64 `json:"end,omitempty"`
	Score   float64 `json:"score,omitempty"`
	Speaker string  `json:"speaker,omitempty"`
}

type Segment struct {
	Start   float64 `json:"start"` // sec
	End     float64 `json:"end"`   // sec
	Text    string  `json:"text"`
	Speaker string  `json:"speaker,omitempty"` // "SPEAKER_00"...
	Words   []Word  `json:"words,omitempty"`
}

// Result is what the transcription and alignment stages hand back.
type Result struct {
	Segments []Segment `json:"segments"`
	Language string    `json:"language,omitempty"`
}

// Turn is one diarization interval attributed to a speaker.
type Turn struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}
