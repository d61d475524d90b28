package caption

// Word represents a single timed token from a transcript. Start and End are
// milliseconds from the start of the audio. Callers must supply words ordered
// by non-decreasing Start; that is a precondition, not a checked invariant.
type Word struct {
	Text       string  `json:"text"`
	Start      int64   `json:"start"`
	End        int64   `json:"end"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Cue is one renderable subtitle unit. Index is 1-based and only used by the
// SRT serializer.
type Cue struct {
	Index int
	Start int64
	End   int64
	Text  string
}
