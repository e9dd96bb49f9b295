package transcript

import "math"

// AssignSpeakers labels every segment, and every timed word inside it, with
// the speaker whose turns overlap it the most. Segments without any
// overlapping turn keep their existing speaker. The input is not modified.
func AssignSpeakers(turns []Turn, res Result) Result {
	out := Result{Language: res.Language, Segments: make([]Segment, len(res.Segments))}
	for i, seg := range res.Segments {
		if spk := dominantSpeaker(turns, seg.Start, seg.End); spk != "" {
			seg.Speaker = spk
		}
		if len(seg.Words) > 0 {
			words := make([]Word, len(seg.Words))
			for j, w := range seg.Words {
				if w.End > w.Start {
					if spk := dominantSpeaker(turns, w.Start, w.End); spk != "" {
						w.Speaker = spk
					}
				}
				words[j] = w
			}
			seg.Words = words
		}
		out.Segments[i] = seg
	}
	return out
}

// dominantSpeaker sums the overlap of [start,end) with each speaker's turns.
// Ties go to the lexically smaller label so the result is stable.
func dominantSpeaker(turns []Turn, start, end float64) string {
	overlap := map[string]float64{}
	for _, t := range turns {
		d := math.Min(t.End, end) - math.Max(t.Start, start)
		if d > 0 {
			overlap[t.Speaker] += d
		}
	}

	best, bestDur := "", 0.0
	for spk, d := range overlap {
		if d > bestDur || (d == bestDur && spk < best) {
			best, bestDur = spk, d
		}
	}
	return best
}
