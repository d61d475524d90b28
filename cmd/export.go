package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"captiond/internal/caption"
	"captiond/internal/config"
	"captiond/internal/transcriber"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <transcript.json>",
	Short: "Convert a saved transcript JSON into SRT or WebVTT captions",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

var (
	exportFormat      string
	exportOutput      string
	exportMaxChars    int
	exportMaxDuration int64
)

func init() {
	defaults := config.Default()

	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "srt", "caption format: srt, vtt")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output path (default: <input>.<format>)")
	exportCmd.Flags().IntVar(&exportMaxChars, "max-cue-chars", defaults.Caption.MaxCueChars, "max characters per caption cue")
	exportCmd.Flags().Int64Var(&exportMaxDuration, "max-cue-duration-ms", defaults.Caption.MaxCueDurationMs, "max caption cue duration in milliseconds")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportFormat != "srt" && exportFormat != "vtt" {
		return fmt.Errorf("unknown format: %s", exportFormat)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read transcript: %w", err)
	}

	var result transcriber.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return fmt.Errorf("parse transcript: %w", err)
	}

	settings := config.CaptionSettings{
		MaxCueChars:      exportMaxChars,
		MaxCueDurationMs: exportMaxDuration,
	}
	cues := caption.Segment(caption.FromTranscriptWords(result.Words), settings)

	var content string
	if exportFormat == "vtt" {
		content = caption.FormatVTT(cues)
	} else {
		content = caption.FormatSRT(cues)
	}

	outputPath := exportOutput
	if outputPath == "" {
		outputPath = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + "." + exportFormat
	}

	if err := os.WriteFile(outputPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("write caption file: %w", err)
	}

	slog.Info("captions saved", "path", outputPath, "cues", len(cues))
	return nil
}
