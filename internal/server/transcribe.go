package server

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"captiond/internal/transcriber"

	"github.com/google/uuid"
)

// handleTranscribe accepts a multipart upload, streams it to a temp file
// under the configured size cap, and resolves it through the coordinator.
func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	reqID := uuid.NewString()
	start := time.Now()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, &transcriber.ValidationError{Message: "no file provided"})
		return
	}
	defer file.Close()

	if header.Filename == "" {
		writeError(w, &transcriber.ValidationError{Message: "no file provided"})
		return
	}

	slog.Info("upload started",
		"request_id", reqID,
		"filename", header.Filename,
		"content_type", header.Header.Get("Content-Type"))

	tempPath, size, err := s.saveUpload(file, header.Filename)
	if err != nil {
		writeError(w, err)
		return
	}
	defer os.Remove(tempPath)

	req := transcriber.Request{
		FilePath:       tempPath,
		SpeechModel:    r.FormValue("speech_model"),
		LanguageCode:   r.FormValue("language_code"),
		SpeakerLabels:  r.FormValue("speaker_labels") == "true",
		KeytermsPrompt: r.FormValue("keyterms_prompt"),
	}
	for _, field := range []struct {
		name string
		dst  *int
	}{
		{"speakers_expected", &req.SpeakersExpected},
		{"min_speakers_expected", &req.MinSpeakersExpected},
		{"max_speakers_expected", &req.MaxSpeakersExpected},
	} {
		v := r.FormValue(field.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, &transcriber.ValidationError{Message: fmt.Sprintf("invalid %s: %q", field.name, v)})
			return
		}
		*field.dst = n
	}
	if v := r.FormValue("enable_caching"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, &transcriber.ValidationError{Message: fmt.Sprintf("invalid enable_caching: %q", v)})
			return
		}
		req.DisableCache = !enabled
	}

	result, err := s.coord.Transcribe(r.Context(), req)
	if err != nil {
		slog.Error("transcription failed", "request_id", reqID, "err", err)
		writeError(w, err)
		return
	}

	slog.Info("transcription completed",
		"request_id", reqID,
		"transcript_id", result.ID,
		"processing_time", time.Since(start).Seconds(),
		"text_length", len(result.Text))

	writeJSON(w, http.StatusOK, struct {
		*transcriber.Result
		FileSizeMB float64 `json:"file_size_mb"`
	}{
		Result:     result,
		FileSizeMB: float64(size) / (1024 * 1024),
	})
}

// saveUpload streams the upload to a temp file, enforcing the size limit.
// The temp file keeps the original extension so media-type validation works.
func (s *Server) saveUpload(src io.Reader, filename string) (string, int64, error) {
	ext := filepath.Ext(filename)
	tmp, err := os.CreateTemp("", "upload_*"+ext)
	if err != nil {
		return "", 0, fmt.Errorf("create temp file: %w", err)
	}
	defer tmp.Close()

	size, err := io.Copy(tmp, io.LimitReader(src, s.cfg.MaxUploadBytes+1))
	if err != nil {
		os.Remove(tmp.Name())
		return "", 0, fmt.Errorf("save upload: %w", err)
	}
	if size > s.cfg.MaxUploadBytes {
		os.Remove(tmp.Name())
		return "", 0, &payloadTooLargeError{limit: s.cfg.MaxUploadBytes}
	}
	return tmp.Name(), size, nil
}

// payloadTooLargeError maps to 413 in writeError.
type payloadTooLargeError struct {
	limit int64
}

func (e *payloadTooLargeError) Error() string {
	return fmt.Sprintf("file too large: maximum size is %dMB", e.limit/(1024*1024))
}
