package caption

import (
	"strings"
	"unicode/utf8"

	"captiond/internal/config"
)

// sentenceEnd reports whether a token closes a sentence.
func sentenceEnd(text string) bool {
	return strings.HasSuffix(text, ".") ||
		strings.HasSuffix(text, "!") ||
		strings.HasSuffix(text, "?")
}

// Segment converts an ordered word sequence into caption cues using a greedy
// single forward pass. A cue is closed after the current word when any of the
// following holds: the accumulated text reaches MaxCueChars, the cue duration
// reaches MaxCueDurationMs, the word ends a sentence, or it is the last word.
// Breaks only ever happen between words, so a single word longer than
// MaxCueChars still becomes its own untruncated cue.
func Segment(words []Word, settings config.CaptionSettings) []Cue {
	if len(words) == 0 {
		return nil
	}

	var cues []Cue
	var sb strings.Builder
	var cueStart, cueEnd int64
	index := 1

	for i, w := range words {
		if sb.Len() == 0 {
			cueStart = w.Start
		} else {
			sb.WriteByte(' ')
		}
		sb.WriteString(w.Text)
		cueEnd = w.End

		isLast := i == len(words)-1
		tooLong := utf8.RuneCountInString(sb.String()) >= settings.MaxCueChars
		tooSlow := cueEnd-cueStart >= settings.MaxCueDurationMs

		if tooLong || tooSlow || isLast || sentenceEnd(w.Text) {
			text := strings.TrimSpace(sb.String())
			if text != "" {
				cues = append(cues, Cue{
					Index: index,
					Start: cueStart,
					End:   cueEnd,
					Text:  text,
				})
				index++
			}
			sb.Reset()
		}
	}

	return cues
}
