package subtitles

// Segment is a timed span of transcribed speech.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Clone returns a copy of segs that shares no backing array with the input.
func Clone(segs []Segment) []Segment {
	if segs == nil {
		return nil
	}
	out := make([]Segment, len(segs))
	copy(out, segs)
	return out
}
