package config

import "time"

// CaptionSettings holds caption segmentation parameters.
type CaptionSettings struct {
	MaxCueChars      int
	MaxCueDurationMs int64
}

// Config holds the full application configuration.
type Config struct {
	Caption CaptionSettings

	MaxConnections  int64
	CacheTTL        time.Duration
	MaxRetries      int
	RetryBaseDelay  time.Duration
	RequestTimeout  time.Duration
	PollInterval    time.Duration
	RateLimitPerMin int
	MaxUploadBytes  int64
}

// Default returns a Config with the service defaults.
func Default() *Config {
	return &Config{
		Caption: CaptionSettings{
			MaxCueChars:      80,
			MaxCueDurationMs: 5000,
		},
		MaxConnections:  10,
		CacheTTL:        time.Hour,
		MaxRetries:      3,
		RetryBaseDelay:  time.Second,
		RequestTimeout:  10 * time.Minute,
		PollInterval:    2 * time.Second,
		RateLimitPerMin: 30,
		MaxUploadBytes:  500 * 1024 * 1024,
	}
}
