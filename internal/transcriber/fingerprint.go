package transcriber

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// fingerprintOptions is the canonical, exact-string option set hashed into
// the fingerprint. No normalization: a keyterms prompt differing only in
// whitespace yields a different fingerprint.
type fingerprintOptions struct {
	SpeechModel         string `json:"speech_model"`
	LanguageCode        string `json:"language_code"`
	SpeakerLabels       bool   `json:"speaker_labels"`
	SpeakersExpected    int    `json:"speakers_expected"`
	MinSpeakersExpected int    `json:"min_speakers_expected"`
	MaxSpeakersExpected int    `json:"max_speakers_expected"`
	KeytermsPrompt      string `json:"keyterms_prompt"`
}

// Fingerprint derives the deterministic cache key for a request: a SHA-256
// over the file content followed by the canonical option set.
func Fingerprint(req Request) (string, error) {
	f, err := os.Open(req.FilePath)
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}

	opts, err := json.Marshal(fingerprintOptions{
		SpeechModel:         req.Model(),
		LanguageCode:        req.LanguageCode,
		SpeakerLabels:       req.SpeakerLabels,
		SpeakersExpected:    req.SpeakersExpected,
		MinSpeakersExpected: req.MinSpeakersExpected,
		MaxSpeakersExpected: req.MaxSpeakersExpected,
		KeytermsPrompt:      req.KeytermsPrompt,
	})
	if err != nil {
		return "", fmt.Errorf("encode options: %w", err)
	}
	h.Write(opts)

	return hex.EncodeToString(h.Sum(nil)), nil
}
