package config

import "testing"

func TestIsSupportedMedia(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"audio.mp3", true},
		{"/tmp/upload_abc.m4a", true},
		{"clip.MP4", true},
		{"video.webm", true},
		{"song.flac", true},
		{"notes.txt", false},
		{"archive.zip", false},
		{"noextension", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsSupportedMedia(tt.path); got != tt.want {
			t.Errorf("IsSupportedMedia(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestMimeForExt(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{".mp3", "audio/mp3"},
		{".WAV", "audio/wav"},
		{".mp4", "video/mp4"},
		{".mkv", "video/x-matroska"},
		{".xyz", "application/octet-stream"},
	}
	for _, tt := range tests {
		if got := MimeForExt(tt.ext); got != tt.want {
			t.Errorf("MimeForExt(%q) = %q, want %q", tt.ext, got, tt.want)
		}
	}
}
