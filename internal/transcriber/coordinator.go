package transcriber

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"captiond/internal/assemblyai"
	"captiond/internal/config"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// flight is one in-flight upstream call shared by all concurrent requests
// with the same fingerprint.
type flight struct {
	done    chan struct{}
	result  *Result
	err     error
	waiters int
	cancel  context.CancelFunc
}

// Coordinator mediates every upstream transcription call: identical requests
// are served from a TTL cache, concurrent identical requests collapse into a
// single upstream call, and transient failures are retried with backoff.
// Upstream concurrency is bounded by a connection slot pool; saturating the
// pool blocks new calls rather than rejecting them.
type Coordinator struct {
	provider Provider
	cache    *gocache.Cache
	progress *gocache.Cache
	cacheTTL time.Duration
	slots    *semaphore.Weighted
	maxConns int64
	limiter  *rate.Limiter
	policy   Policy
	timeout  time.Duration
	metrics  Sink

	mu      sync.Mutex
	flights map[string]*flight
}

// ProgressInfo is the tracked state of an in-flight transcript.
type ProgressInfo struct {
	Percent   int       `json:"progress"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Stats is the read-only monitoring snapshot.
type Stats struct {
	CacheEntries   int           `json:"cache_entries"`
	CacheTTL       time.Duration `json:"-"`
	MaxConnections int64         `json:"max_connections"`
	SampleKeys     []string      `json:"sample_keys"`
}

// New builds a Coordinator from the given provider and configuration. A nil
// sink disables metrics.
func New(provider Provider, cfg *config.Config, sink Sink) *Coordinator {
	if sink == nil {
		sink = NopSink{}
	}

	var limiter *rate.Limiter
	if cfg.RateLimitPerMin > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RateLimitPerMin)/60.0), 1)
	}

	c := &Coordinator{
		provider: provider,
		cache:    gocache.New(cfg.CacheTTL, 10*time.Minute),
		progress: gocache.New(cfg.CacheTTL, 10*time.Minute),
		cacheTTL: cfg.CacheTTL,
		slots:    semaphore.NewWeighted(cfg.MaxConnections),
		maxConns: cfg.MaxConnections,
		limiter:  limiter,
		timeout:  cfg.RequestTimeout,
		metrics:  sink,
		flights:  make(map[string]*flight),
	}

	c.policy = Policy{
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  cfg.RetryBaseDelay,
		MaxDelay:   time.Minute,
		Retryable:  assemblyai.IsTransient,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			sink.Retry()
			slog.Warn("upstream call failed, retrying",
				"attempt", attempt, "backoff", delay, "err", err)
		},
	}

	return c
}

// Transcribe resolves a request through the cache, an in-flight call with the
// same fingerprint, or a fresh upstream call. Errors are *ValidationError,
// *UpstreamError, or *CanceledError.
func (c *Coordinator) Transcribe(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	fp, err := Fingerprint(req)
	if err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	if req.DisableCache {
		slog.Debug("cache bypass requested", "fingerprint", fp[:12])
	} else if v, ok := c.cache.Get(fp); ok {
		c.metrics.CacheHit()
		slog.Debug("cache hit", "fingerprint", fp[:12])
		return v.(*Result), nil
	} else {
		c.metrics.CacheMiss()
	}

	// Check-then-insert on the flight map is one critical section, so two
	// concurrent misses on the same fingerprint can never both go upstream.
	c.mu.Lock()
	if f, ok := c.flights[fp]; ok {
		f.waiters++
		c.mu.Unlock()
		slog.Debug("joining in-flight request", "fingerprint", fp[:12])
		return c.wait(ctx, f)
	}

	fctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	f := &flight{
		done:    make(chan struct{}),
		waiters: 1,
		cancel:  cancel,
	}
	c.flights[fp] = f
	c.mu.Unlock()

	go c.run(fctx, f, fp, req)
	return c.wait(ctx, f)
}

// run executes the upstream call for a flight and resolves every waiter with
// the same outcome. Failures are never cached.
func (c *Coordinator) run(ctx context.Context, f *flight, fp string, req Request) {
	defer f.cancel()

	res, err := c.callUpstream(ctx, req)
	if err == nil && !req.DisableCache {
		c.cache.Set(fp, res, c.cacheTTL)
	}

	c.mu.Lock()
	delete(c.flights, fp)
	c.mu.Unlock()

	f.result, f.err = res, err
	close(f.done)
}

// wait blocks until the flight resolves or the caller's context is done.
// A canceled waiter detaches; the upstream call is only abandoned once no
// waiters remain.
func (c *Coordinator) wait(ctx context.Context, f *flight) (*Result, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		c.detach(f)
		return nil, &CanceledError{Err: ctx.Err()}
	}
}

func (c *Coordinator) detach(f *flight) {
	c.mu.Lock()
	f.waiters--
	last := f.waiters == 0
	c.mu.Unlock()

	if last {
		f.cancel()
	}
}

func (c *Coordinator) callUpstream(ctx context.Context, req Request) (*Result, error) {
	if err := c.slots.Acquire(ctx, 1); err != nil {
		return nil, &CanceledError{Err: err}
	}
	defer c.slots.Release(1)

	start := time.Now()
	var transcript *assemblyai.Transcript

	attempts, err := c.policy.Do(ctx, func(ctx context.Context) error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		c.metrics.UpstreamCall()

		t, err := c.provider.Transcribe(ctx, req, c.recordProgress)
		if err != nil {
			return err
		}
		transcript = t
		return nil
	})

	if err != nil {
		c.metrics.Failure()
		if ctx.Err() != nil {
			return nil, &CanceledError{Err: ctx.Err()}
		}
		if !assemblyai.IsTransient(err) {
			return nil, &ValidationError{Message: err.Error()}
		}
		return nil, &UpstreamError{Attempts: attempts, Err: err}
	}

	return resultFromTranscript(transcript, req, time.Since(start).Seconds()), nil
}

func (c *Coordinator) recordProgress(id string, percent int, status string) {
	if id == "" {
		return
	}
	c.progress.Set(id, ProgressInfo{
		Percent:   percent,
		Status:    status,
		UpdatedAt: time.Now(),
	}, c.cacheTTL)
}

// Progress reports the tracked state of a transcript by ID.
func (c *Coordinator) Progress(id string) (ProgressInfo, bool) {
	v, ok := c.progress.Get(id)
	if !ok {
		return ProgressInfo{}, false
	}
	return v.(ProgressInfo), true
}

// Stats returns the monitoring snapshot: live cache entries, configured TTL,
// the connection slot limit, and up to five cache keys in no particular order.
func (c *Coordinator) Stats() Stats {
	keys := make([]string, 0, 5)
	for k := range c.cache.Items() {
		keys = append(keys, k)
		if len(keys) == 5 {
			break
		}
	}
	return Stats{
		CacheEntries:   c.cache.ItemCount(),
		CacheTTL:       c.cacheTTL,
		MaxConnections: c.maxConns,
		SampleKeys:     keys,
	}
}
