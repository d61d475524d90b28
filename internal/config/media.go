package config

import (
	"path/filepath"
	"strings"
)

// validExtensions is the set of audio/video file types accepted for upload.
var validExtensions = map[string]bool{
	".mp3": true, ".m4a": true, ".wav": true, ".flac": true,
	".ogg": true, ".aac": true, ".mp4": true, ".mov": true,
	".mkv": true, ".avi": true, ".flv": true, ".webm": true,
}

// IsSupportedMedia reports whether the file extension is an accepted
// audio/video type.
func IsSupportedMedia(path string) bool {
	return validExtensions[strings.ToLower(filepath.Ext(path))]
}

// MimeForExt returns the MIME type for common audio/video extensions.
func MimeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".mp3":
		return "audio/mp3"
	case ".m4a":
		return "audio/m4a"
	case ".wav":
		return "audio/wav"
	case ".flac":
		return "audio/flac"
	case ".ogg":
		return "audio/ogg"
	case ".aac":
		return "audio/aac"
	case ".mp4":
		return "video/mp4"
	case ".mov":
		return "video/mov"
	case ".mkv":
		return "video/x-matroska"
	case ".webm":
		return "video/webm"
	default:
		return "application/octet-stream"
	}
}
