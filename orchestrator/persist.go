package orchestrator

import (
	log "github.com/sirupsen/logrus"

	"github.com/maastricht-university/scribe/transcript"
)

// persist writes the transcript file and, when configured, the raw segments
// next to it. Only the transcript write can fail the run.
func (p *Pipeline) persist(req Request, text string, diarized bool, segments []transcript.Segment) (string, error) {
	meta := transcript.Metadata{
		Source:    req.AudioPath,
		Model:     req.ModelSize,
		Diarized:  diarized,
		Generated: p.now(),
	}

	path, err := p.writer.Write(text, meta)
	if err != nil {
		return "", err
	}

	if p.cfg.Output.SegmentsJSON {
		segPath, err := p.writer.WriteSegments(path, segments)
		if err != nil {
			log.WithError(err).Warn("segments export failed")
		} else {
			log.WithField("path", segPath).Debug("segments written")
		}
	}
	return path, nil
}
