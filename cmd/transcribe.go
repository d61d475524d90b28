package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"captiond/internal/assemblyai"
	"captiond/internal/caption"
	"captiond/internal/config"
	"captiond/internal/transcriber"

	"github.com/spf13/cobra"
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <input-file>",
	Short: "Transcribe an audio/video file and write captions",
	Long: `Transcribe an audio or video file through the AssemblyAI API and write
the transcript JSON plus SRT and/or WebVTT caption files next to the input.`,
	Args: cobra.ExactArgs(1),
	RunE: runTranscribe,
}

var (
	speechModel      string
	languageCode     string
	speakerLabels    bool
	speakersExpected int
	minSpeakers      int
	maxSpeakers      int
	keyterms         string

	maxRetries int
	rateLimit  int

	writeSRT  bool
	writeVTT  bool
	writeJSON bool
	output    string

	// Caption tuning flags.
	maxCueChars    int
	maxCueDuration int64
)

func init() {
	defaults := config.Default()

	transcribeCmd.Flags().StringVarP(&speechModel, "model", "m", assemblyai.ModelUniversal, "speech model: universal, slam-1")
	transcribeCmd.Flags().StringVarP(&languageCode, "language", "l", "", "language code (default: auto-detect)")
	transcribeCmd.Flags().BoolVar(&speakerLabels, "speaker-labels", false, "enable speaker diarization")
	transcribeCmd.Flags().IntVar(&speakersExpected, "speakers-expected", 0, "exact expected speaker count")
	transcribeCmd.Flags().IntVar(&minSpeakers, "min-speakers", 0, "minimum expected speaker count")
	transcribeCmd.Flags().IntVar(&maxSpeakers, "max-speakers", 0, "maximum expected speaker count")
	transcribeCmd.Flags().StringVar(&keyterms, "keyterms", "", "comma-separated domain terms (slam-1 only)")

	transcribeCmd.Flags().IntVar(&maxRetries, "max-retries", defaults.MaxRetries, "max retries per upstream call")
	transcribeCmd.Flags().IntVar(&rateLimit, "rate-limit", defaults.RateLimitPerMin, "API requests per minute")

	transcribeCmd.Flags().BoolVar(&writeSRT, "srt", true, "write an SRT caption file")
	transcribeCmd.Flags().BoolVar(&writeVTT, "vtt", false, "write a WebVTT caption file")
	transcribeCmd.Flags().BoolVar(&writeJSON, "json", false, "write the transcript JSON")
	transcribeCmd.Flags().StringVarP(&output, "output", "o", "", "output base path (default: <input> without extension)")

	// Caption tuning flags.
	transcribeCmd.Flags().IntVar(&maxCueChars, "max-cue-chars", defaults.Caption.MaxCueChars, "max characters per caption cue")
	transcribeCmd.Flags().Int64Var(&maxCueDuration, "max-cue-duration-ms", defaults.Caption.MaxCueDurationMs, "max caption cue duration in milliseconds")

	rootCmd.AddCommand(transcribeCmd)
}

func runTranscribe(cmd *cobra.Command, args []string) error {
	inputPath, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	cfg := config.Default()
	cfg.MaxRetries = maxRetries
	cfg.RateLimitPerMin = rateLimit
	cfg.Caption.MaxCueChars = maxCueChars
	cfg.Caption.MaxCueDurationMs = maxCueDuration

	// Setup signal handling for graceful cancellation.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider := transcriber.NewProvider(assemblyai.NewClient(
		assemblyai.WithPollInterval(cfg.PollInterval),
	))
	coord := transcriber.New(provider, cfg, nil)

	req := transcriber.Request{
		FilePath:            inputPath,
		SpeechModel:         speechModel,
		LanguageCode:        languageCode,
		SpeakerLabels:       speakerLabels,
		SpeakersExpected:    speakersExpected,
		MinSpeakersExpected: minSpeakers,
		MaxSpeakersExpected: maxSpeakers,
		KeytermsPrompt:      keyterms,
	}

	slog.Info("transcribing", "input", filepath.Base(inputPath), "model", req.Model())

	result, err := coord.Transcribe(ctx, req)
	if err != nil {
		return err
	}

	base := output
	if base == "" {
		base = strings.TrimSuffix(inputPath, filepath.Ext(inputPath))
	}

	return writeOutputs(result, base, cfg.Caption)
}

func writeOutputs(result *transcriber.Result, base string, settings config.CaptionSettings) error {
	if writeJSON {
		data, err := json.MarshalIndent(result, "", "    ")
		if err != nil {
			return fmt.Errorf("encode transcript: %w", err)
		}
		if err := os.WriteFile(base+".json", data, 0644); err != nil {
			return fmt.Errorf("write transcript JSON: %w", err)
		}
		slog.Info("transcript JSON saved", "path", base+".json")
	}

	words := caption.FromTranscriptWords(result.Words)
	cues := caption.Segment(words, settings)

	if writeSRT {
		if err := os.WriteFile(base+".srt", []byte(caption.FormatSRT(cues)), 0644); err != nil {
			return fmt.Errorf("write SRT file: %w", err)
		}
		slog.Info("SRT file saved", "path", base+".srt")
	}
	if writeVTT {
		if err := os.WriteFile(base+".vtt", []byte(caption.FormatVTT(cues)), 0644); err != nil {
			return fmt.Errorf("write VTT file: %w", err)
		}
		slog.Info("VTT file saved", "path", base+".vtt")
	}

	if !quiet {
		slog.Info("done", "cues", len(cues), "confidence", fmt.Sprintf("%.2f", result.Confidence))
	}
	return nil
}
