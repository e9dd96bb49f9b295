package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Metadata is rendered into the header of every transcript file.
type Metadata struct {
	Source    string // path of the transcribed audio
	Model     string
	Diarized  bool
	Generated time.Time
}

// Writer persists transcripts into fresh temporary directories under Root.
// An empty Root means the system temp dir.
type Writer struct {
	Root string
}

func NewWriter(root string) *Writer { return &Writer{Root: root} }

// Write creates a new directory, writes the header and text to
// <audio stem>_transcript.txt inside it and returns the file path.
func (w *Writer) Write(text string, meta Metadata) (string, error) {
	dir, err := w.mkRunDir()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, stem(meta.Source)+"_transcript.txt")

	var b strings.Builder
	b.WriteString(Header(meta))
	b.WriteString(text)

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write transcript: %w", err)
	}
	return path, nil
}

// WriteSegments dumps the raw segments as indented JSON next to an already
// written transcript file.
func (w *Writer) WriteSegments(transcriptPath string, segments []Segment) (string, error) {
	base := strings.TrimSuffix(filepath.Base(transcriptPath), "_transcript.txt")
	path := filepath.Join(filepath.Dir(transcriptPath), base+"_segments.json")
	if err := writeJSON(path, segments); err != nil {
		return "", fmt.Errorf("write segments: %w", err)
	}
	return path, nil
}

// Header returns the fixed metadata block that precedes the transcript body.
func Header(meta Metadata) string {
	diarized := "No"
	if meta.Diarized {
		diarized = "Yes"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Transcription of: %s\n", filepath.Base(meta.Source))
	fmt.Fprintf(&b, "Model: %s\n", meta.Model)
	fmt.Fprintf(&b, "Speaker diarization: %s\n", diarized)
	fmt.Fprintf(&b, "Generated: %s\n", meta.Generated.Format("2006-01-02 15:04:05"))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	return b.String()
}

func (w *Writer) mkRunDir() (string, error) {
	root := w.Root
	if root == "" {
		root = os.TempDir()
	} else if err := os.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("create output root: %w", err)
	}
	dir, err := os.MkdirTemp(root, "scribe-")
	if err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	return dir, nil
}

func stem(p string) string {
	base := filepath.Base(p)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
