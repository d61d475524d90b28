package transcriber

import "fmt"

// ValidationError is a malformed or rejected request. It is never retried and
// never cached.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// UpstreamError is a terminal upstream failure after the retry budget is
// exhausted.
type UpstreamError struct {
	Attempts int
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("transcription failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// CanceledError is a caller-initiated abandonment, surfaced distinctly from
// failure.
type CanceledError struct {
	Err error
}

func (e *CanceledError) Error() string {
	return fmt.Sprintf("request canceled: %v", e.Err)
}

func (e *CanceledError) Unwrap() error {
	return e.Err
}
