package transcriber

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"captiond/internal/assemblyai"
	"captiond/internal/config"
)

// fakeProvider is a scriptable upstream: it can fail a number of times before
// succeeding and block until released to simulate long-running calls.
type fakeProvider struct {
	calls atomic.Int64
	block chan struct{} // when non-nil, Transcribe blocks until closed

	mu       sync.Mutex
	failures int
	failWith error
}

func (p *fakeProvider) Transcribe(ctx context.Context, req Request, progress ProgressFunc) (*assemblyai.Transcript, error) {
	p.calls.Add(1)

	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	p.mu.Lock()
	if p.failures != 0 {
		if p.failures > 0 {
			p.failures--
		}
		err := p.failWith
		p.mu.Unlock()
		return nil, err
	}
	p.mu.Unlock()

	if progress != nil {
		progress("t-1", 100, assemblyai.StatusCompleted)
	}
	return &assemblyai.Transcript{
		ID:         "t-1",
		Status:     assemblyai.StatusCompleted,
		Text:       "hello world",
		Confidence: 0.97,
		Words: []assemblyai.Word{
			{Text: "hello", Start: 0, End: 400, Confidence: 0.98},
			{Text: "world", Start: 400, End: 900, Confidence: 0.96},
		},
	}, nil
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.RetryBaseDelay = time.Millisecond
	cfg.RateLimitPerMin = 0
	cfg.RequestTimeout = 10 * time.Second
	return cfg
}

func testRequest(t *testing.T) Request {
	t.Helper()
	return Request{FilePath: writeTempAudio(t, "in.mp3", []byte("audio-body"))}
}

func TestCoordinator_CacheHit(t *testing.T) {
	provider := &fakeProvider{}
	sink := &CounterSink{}
	coord := New(provider, testConfig(), sink)
	req := testRequest(t)

	first, err := coord.Transcribe(context.Background(), req)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := coord.Transcribe(context.Background(), req)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}

	if got := provider.calls.Load(); got != 1 {
		t.Errorf("upstream calls = %d, want 1", got)
	}
	if first != second {
		t.Error("cache hit should return the stored result")
	}

	counters := sink.Snapshot()
	if counters.CacheHits != 1 || counters.CacheMisses != 1 {
		t.Errorf("counters = %+v, want 1 hit and 1 miss", counters)
	}
}

func TestCoordinator_CacheTTLExpiry(t *testing.T) {
	cfg := testConfig()
	cfg.CacheTTL = 100 * time.Millisecond

	provider := &fakeProvider{}
	coord := New(provider, cfg, nil)
	req := testRequest(t)

	if _, err := coord.Transcribe(context.Background(), req); err != nil {
		t.Fatal(err)
	}

	// Within TTL: served from cache.
	time.Sleep(30 * time.Millisecond)
	if _, err := coord.Transcribe(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	if got := provider.calls.Load(); got != 1 {
		t.Fatalf("upstream calls before expiry = %d, want 1", got)
	}

	// After TTL: entry is treated as absent and one new call is made.
	time.Sleep(120 * time.Millisecond)
	if _, err := coord.Transcribe(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	if got := provider.calls.Load(); got != 2 {
		t.Errorf("upstream calls after expiry = %d, want 2", got)
	}
}

func TestCoordinator_CacheBypass(t *testing.T) {
	provider := &fakeProvider{}
	coord := New(provider, testConfig(), nil)
	req := testRequest(t)
	req.DisableCache = true

	// Bypassing requests neither read nor populate the cache.
	for i := 0; i < 2; i++ {
		if _, err := coord.Transcribe(context.Background(), req); err != nil {
			t.Fatal(err)
		}
	}
	if got := provider.calls.Load(); got != 2 {
		t.Errorf("upstream calls with bypass = %d, want 2", got)
	}
	if coord.Stats().CacheEntries != 0 {
		t.Error("bypassing requests must not create cache entries")
	}

	// A caching request for the same file still has to go upstream once,
	// and after that the cache serves it.
	req.DisableCache = false
	for i := 0; i < 2; i++ {
		if _, err := coord.Transcribe(context.Background(), req); err != nil {
			t.Fatal(err)
		}
	}
	if got := provider.calls.Load(); got != 3 {
		t.Errorf("upstream calls = %d, want 3", got)
	}
}

func TestCoordinator_CacheBypassStillSingleFlight(t *testing.T) {
	provider := &fakeProvider{block: make(chan struct{})}
	coord := New(provider, testConfig(), nil)
	req := testRequest(t)
	req.DisableCache = true

	const n = 3
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = coord.Transcribe(context.Background(), req)
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(provider.block)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
	}
	if got := provider.calls.Load(); got != 1 {
		t.Errorf("upstream calls = %d, want 1 (bypass disables the cache, not single-flight)", got)
	}
}

func TestCoordinator_SingleFlight(t *testing.T) {
	provider := &fakeProvider{block: make(chan struct{})}
	coord := New(provider, testConfig(), nil)
	req := testRequest(t)

	const n = 5
	results := make([]*Result, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = coord.Transcribe(context.Background(), req)
		}()
	}

	// Give every goroutine time to join the flight, then release the upstream.
	time.Sleep(50 * time.Millisecond)
	close(provider.block)
	wg.Wait()

	if got := provider.calls.Load(); got != 1 {
		t.Errorf("upstream calls = %d, want 1 for %d concurrent identical requests", got, n)
	}
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if results[i] != results[0] {
			t.Errorf("caller %d received a different result", i)
		}
	}
}

func TestCoordinator_RetryExhaustionIsTerminal(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRetries = 2

	provider := &fakeProvider{
		failures: -1, // always fail
		failWith: &assemblyai.APIError{StatusCode: http.StatusServiceUnavailable, Message: "down"},
	}
	sink := &CounterSink{}
	coord := New(provider, cfg, sink)

	_, err := coord.Transcribe(context.Background(), testRequest(t))

	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UpstreamError, got %v", err)
	}
	if ue.Attempts != 3 {
		t.Errorf("attempts = %d, want 3 (1 + 2 retries)", ue.Attempts)
	}
	if got := provider.calls.Load(); got != 3 {
		t.Errorf("upstream calls = %d, want 3", got)
	}
	if coord.Stats().CacheEntries != 0 {
		t.Error("failures must never be cached")
	}
	if sink.Snapshot().Retries != 2 {
		t.Errorf("retry counter = %d, want 2", sink.Snapshot().Retries)
	}
}

func TestCoordinator_NonTransientNotRetried(t *testing.T) {
	provider := &fakeProvider{
		failures: -1,
		failWith: &assemblyai.APIError{StatusCode: http.StatusBadRequest, Message: "bad audio"},
	}
	coord := New(provider, testConfig(), nil)

	_, err := coord.Transcribe(context.Background(), testRequest(t))

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError for non-transient upstream failure, got %v", err)
	}
	if got := provider.calls.Load(); got != 1 {
		t.Errorf("upstream calls = %d, want 1 (no retry)", got)
	}
}

func TestCoordinator_TransientThenSuccess(t *testing.T) {
	provider := &fakeProvider{
		failures: 2,
		failWith: &assemblyai.APIError{StatusCode: http.StatusTooManyRequests, Message: "slow down"},
	}
	coord := New(provider, testConfig(), nil)

	result, err := coord.Transcribe(context.Background(), testRequest(t))
	if err != nil {
		t.Fatalf("expected success after transient failures, got %v", err)
	}
	if result.Text != "hello world" {
		t.Errorf("result text = %q", result.Text)
	}
	if got := provider.calls.Load(); got != 3 {
		t.Errorf("upstream calls = %d, want 3", got)
	}
}

func TestCoordinator_CanceledWaiterDoesNotAbortFlight(t *testing.T) {
	provider := &fakeProvider{block: make(chan struct{})}
	coord := New(provider, testConfig(), nil)
	req := testRequest(t)

	type outcome struct {
		result *Result
		err    error
	}

	// First waiter holds the flight open.
	keeper := make(chan outcome, 1)
	go func() {
		res, err := coord.Transcribe(context.Background(), req)
		keeper <- outcome{res, err}
	}()
	time.Sleep(30 * time.Millisecond)

	// Second waiter joins and then cancels.
	ctx, cancel := context.WithCancel(context.Background())
	quitter := make(chan outcome, 1)
	go func() {
		res, err := coord.Transcribe(ctx, req)
		quitter <- outcome{res, err}
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()

	q := <-quitter
	var ce *CanceledError
	if !errors.As(q.err, &ce) {
		t.Fatalf("canceled waiter should get *CanceledError, got %v", q.err)
	}

	// The underlying call must survive for the remaining waiter.
	close(provider.block)
	k := <-keeper
	if k.err != nil {
		t.Fatalf("remaining waiter should succeed, got %v", k.err)
	}
	if got := provider.calls.Load(); got != 1 {
		t.Errorf("upstream calls = %d, want 1", got)
	}
}

func TestCoordinator_LastWaiterCancelAbandonsUpstream(t *testing.T) {
	provider := &fakeProvider{block: make(chan struct{})}
	coord := New(provider, testConfig(), nil)
	req := testRequest(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := coord.Transcribe(ctx, req)
		done <- err
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()

	err := <-done
	var ce *CanceledError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *CanceledError, got %v", err)
	}

	// With no waiters left the flight context is canceled, the blocked
	// provider call returns, and the fingerprint becomes absent again.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		coord.mu.Lock()
		n := len(coord.flights)
		coord.mu.Unlock()
		if n == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("flight was not cleaned up after all waiters canceled")
}

func TestCoordinator_ValidationShortCircuits(t *testing.T) {
	provider := &fakeProvider{}
	coord := New(provider, testConfig(), nil)

	_, err := coord.Transcribe(context.Background(), Request{FilePath: "/missing.mp3"})

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if got := provider.calls.Load(); got != 0 {
		t.Errorf("upstream calls = %d, want 0", got)
	}
}

func TestCoordinator_Stats(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConnections = 7
	cfg.CacheTTL = 42 * time.Minute

	provider := &fakeProvider{}
	coord := New(provider, cfg, nil)

	stats := coord.Stats()
	if stats.MaxConnections != 7 {
		t.Errorf("MaxConnections = %d, want 7", stats.MaxConnections)
	}
	if stats.CacheTTL != 42*time.Minute {
		t.Errorf("CacheTTL = %v, want 42m", stats.CacheTTL)
	}
	if stats.CacheEntries != 0 {
		t.Errorf("CacheEntries = %d, want 0", stats.CacheEntries)
	}

	if stats.SampleKeys != nil && len(stats.SampleKeys) != 0 {
		t.Errorf("SampleKeys on empty cache = %v", stats.SampleKeys)
	}

	if _, err := coord.Transcribe(context.Background(), testRequest(t)); err != nil {
		t.Fatal(err)
	}
	after := coord.Stats()
	if after.CacheEntries != 1 {
		t.Errorf("CacheEntries after success = %d, want 1", after.CacheEntries)
	}
	if len(after.SampleKeys) != 1 || len(after.SampleKeys[0]) != 64 {
		t.Errorf("SampleKeys after success = %v, want one fingerprint", after.SampleKeys)
	}
}

func TestCoordinator_ProgressTracking(t *testing.T) {
	provider := &fakeProvider{}
	coord := New(provider, testConfig(), nil)

	if _, err := coord.Transcribe(context.Background(), testRequest(t)); err != nil {
		t.Fatal(err)
	}

	info, ok := coord.Progress("t-1")
	if !ok {
		t.Fatal("expected progress entry for completed transcript")
	}
	if info.Percent != 100 || info.Status != assemblyai.StatusCompleted {
		t.Errorf("progress = %+v, want 100/completed", info)
	}

	if _, ok := coord.Progress("unknown"); ok {
		t.Error("unknown id should report no progress")
	}
}
