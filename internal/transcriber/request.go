package transcriber

import (
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"captiond/internal/assemblyai"
	"captiond/internal/config"
)

// maxKeytermsChars is the upstream limit on the keyterms prompt.
const maxKeytermsChars = 500

// Request describes one transcription request. The option fields are part of
// the cache fingerprint: two requests are identical only if their file
// contents and every option match exactly.
type Request struct {
	FilePath            string
	SpeechModel         string
	LanguageCode        string
	SpeakerLabels       bool
	SpeakersExpected    int // 0 means unset
	MinSpeakersExpected int
	MaxSpeakersExpected int
	KeytermsPrompt      string

	// DisableCache skips both the cache lookup and the cache store for this
	// request. Concurrent identical requests still collapse into one call.
	// Not part of the fingerprint.
	DisableCache bool
}

// Validate checks the request at the boundary. Violations come back as
// *ValidationError and are never retried.
func (r Request) Validate() error {
	if r.FilePath == "" {
		return &ValidationError{Message: "no input file provided"}
	}
	if _, err := os.Stat(r.FilePath); err != nil {
		return &ValidationError{Message: fmt.Sprintf("file not found: %s", r.FilePath)}
	}
	if !config.IsSupportedMedia(r.FilePath) {
		return &ValidationError{Message: fmt.Sprintf("unsupported file type: %s", filepath.Ext(r.FilePath))}
	}

	switch r.SpeechModel {
	case "", assemblyai.ModelUniversal, assemblyai.ModelSlam1:
	default:
		return &ValidationError{Message: fmt.Sprintf("unknown speech model: %s", r.SpeechModel)}
	}

	if r.KeytermsPrompt != "" {
		if r.SpeechModel != assemblyai.ModelSlam1 {
			return &ValidationError{Message: "keyterms prompt requires the slam-1 speech model"}
		}
		if n := utf8.RuneCountInString(r.KeytermsPrompt); n > maxKeytermsChars {
			return &ValidationError{Message: fmt.Sprintf("keyterms prompt too long: %d characters (max %d)", n, maxKeytermsChars)}
		}
	}

	if r.SpeakersExpected < 0 || r.MinSpeakersExpected < 0 || r.MaxSpeakersExpected < 0 {
		return &ValidationError{Message: "speaker counts must be positive"}
	}
	if r.SpeakersExpected > 0 && (r.MinSpeakersExpected > 0 || r.MaxSpeakersExpected > 0) {
		return &ValidationError{Message: "speakers_expected is mutually exclusive with min/max speaker bounds"}
	}
	if r.MinSpeakersExpected > 0 && r.MaxSpeakersExpected > 0 && r.MinSpeakersExpected > r.MaxSpeakersExpected {
		return &ValidationError{Message: "min_speakers_expected exceeds max_speakers_expected"}
	}
	if (r.SpeakersExpected > 0 || r.MinSpeakersExpected > 0 || r.MaxSpeakersExpected > 0) && !r.SpeakerLabels {
		return &ValidationError{Message: "speaker count options require speaker_labels"}
	}

	return nil
}

// Model returns the effective speech model, defaulting to universal.
func (r Request) Model() string {
	if r.SpeechModel == "" {
		return assemblyai.ModelUniversal
	}
	return r.SpeechModel
}

// Result is a completed transcription, the unit stored in the cache.
type Result struct {
	ID             string                  `json:"id"`
	Text           string                  `json:"text"`
	Confidence     float64                 `json:"confidence"`
	AudioDuration  float64                 `json:"audio_duration,omitempty"`
	ProcessingTime float64                 `json:"processing_time"`
	SpeakerLabels  bool                    `json:"speaker_labels_enabled"`
	Words          []assemblyai.Word       `json:"words,omitempty"`
	Utterances     []assemblyai.Utterance  `json:"utterances,omitempty"`
}

func resultFromTranscript(t *assemblyai.Transcript, req Request, elapsed float64) *Result {
	return &Result{
		ID:             t.ID,
		Text:           t.Text,
		Confidence:     t.Confidence,
		AudioDuration:  t.AudioDuration,
		ProcessingTime: elapsed,
		SpeakerLabels:  req.SpeakerLabels,
		Words:          t.Words,
		Utterances:     t.Utterances,
	}
}
