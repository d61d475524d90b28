package server

import (
	"encoding/json"
	"net/http"

	"captiond/internal/caption"
	"captiond/internal/config"
	"captiond/internal/transcriber"
)

// exportRequest is the caption export payload: the word timing list from a
// transcription result plus optional segmentation overrides.
type exportRequest struct {
	Words            []caption.Word `json:"words"`
	MaxCueChars      int            `json:"max_cue_chars,omitempty"`
	MaxCueDurationMs int64          `json:"max_cue_duration_ms,omitempty"`
}

// handleExport turns a word timing list into an SRT or WebVTT document.
// Format is selected with ?format=srt|vtt (default srt).
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "srt"
	}
	if format != "srt" && format != "vtt" {
		writeError(w, &transcriber.ValidationError{Message: "unknown export format: " + format})
		return
	}

	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &transcriber.ValidationError{Message: "invalid export payload: " + err.Error()})
		return
	}

	settings := config.CaptionSettings{
		MaxCueChars:      s.cfg.Caption.MaxCueChars,
		MaxCueDurationMs: s.cfg.Caption.MaxCueDurationMs,
	}
	if req.MaxCueChars > 0 {
		settings.MaxCueChars = req.MaxCueChars
	}
	if req.MaxCueDurationMs > 0 {
		settings.MaxCueDurationMs = req.MaxCueDurationMs
	}

	cues := caption.Segment(req.Words, settings)

	var body, contentType string
	switch format {
	case "vtt":
		body = caption.FormatVTT(cues)
		contentType = "text/vtt; charset=utf-8"
	default:
		body = caption.FormatSRT(cues)
		contentType = "application/x-subrip; charset=utf-8"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename=captions."+format)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}
