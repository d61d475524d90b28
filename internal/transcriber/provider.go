package transcriber

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"captiond/internal/assemblyai"
	"captiond/internal/config"
)

// ProgressFunc receives progress updates for an in-flight transcript.
type ProgressFunc func(id string, percent int, status string)

// Provider is the upstream speech-to-text service. The coordinator only ever
// talks to the upstream through this interface.
type Provider interface {
	Transcribe(ctx context.Context, req Request, progress ProgressFunc) (*assemblyai.Transcript, error)
}

// apiProvider backs Provider with the AssemblyAI client.
type apiProvider struct {
	client *assemblyai.Client
}

// NewProvider wraps an AssemblyAI client as a Provider.
func NewProvider(client *assemblyai.Client) Provider {
	return &apiProvider{client: client}
}

func (p *apiProvider) Transcribe(ctx context.Context, req Request, progress ProgressFunc) (*assemblyai.Transcript, error) {
	f, err := os.Open(req.FilePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}

	params := assemblyai.TranscriptParams{
		SpeechModel:   req.Model(),
		LanguageCode:  req.LanguageCode,
		SpeakerLabels: req.SpeakerLabels,
	}
	if req.SpeakersExpected > 0 {
		n := req.SpeakersExpected
		params.SpeakersExpected = &n
	} else {
		if req.MinSpeakersExpected > 0 {
			n := req.MinSpeakersExpected
			params.MinSpeakersExpected = &n
		}
		if req.MaxSpeakersExpected > 0 {
			n := req.MaxSpeakersExpected
			params.MaxSpeakersExpected = &n
		}
	}
	if req.SpeechModel == assemblyai.ModelSlam1 {
		params.KeytermsPrompt = assemblyai.SplitKeyterms(req.KeytermsPrompt)
	}

	contentType := config.MimeForExt(filepath.Ext(req.FilePath))
	return p.client.Transcribe(ctx, f, stat.Size(), contentType, params, assemblyai.ProgressFunc(progress))
}
