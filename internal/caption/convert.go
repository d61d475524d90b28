package caption

import "captiond/internal/assemblyai"

// FromTranscriptWords maps provider words onto caption words.
func FromTranscriptWords(words []assemblyai.Word) []Word {
	if len(words) == 0 {
		return nil
	}
	out := make([]Word, len(words))
	for i, w := range words {
		out[i] = Word{
			Text:       w.Text,
			Start:      w.Start,
			End:        w.End,
			Confidence: w.Confidence,
		}
	}
	return out
}
