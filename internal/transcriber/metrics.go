package transcriber

import "sync/atomic"

// Sink receives coordinator events. It is injected at construction so nothing
// in the process accumulates metrics behind the coordinator's back.
type Sink interface {
	CacheHit()
	CacheMiss()
	UpstreamCall()
	Retry()
	Failure()
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) CacheHit()     {}
func (NopSink) CacheMiss()    {}
func (NopSink) UpstreamCall() {}
func (NopSink) Retry()        {}
func (NopSink) Failure()      {}

// Counters is a point-in-time snapshot of a CounterSink.
type Counters struct {
	CacheHits     int64 `json:"cache_hits"`
	CacheMisses   int64 `json:"cache_misses"`
	UpstreamCalls int64 `json:"upstream_calls"`
	Retries       int64 `json:"retries"`
	Failures      int64 `json:"failures"`
}

// CounterSink counts events with atomics, safe for concurrent use.
type CounterSink struct {
	hits     atomic.Int64
	misses   atomic.Int64
	calls    atomic.Int64
	retries  atomic.Int64
	failures atomic.Int64
}

func (s *CounterSink) CacheHit()     { s.hits.Add(1) }
func (s *CounterSink) CacheMiss()    { s.misses.Add(1) }
func (s *CounterSink) UpstreamCall() { s.calls.Add(1) }
func (s *CounterSink) Retry()        { s.retries.Add(1) }
func (s *CounterSink) Failure()      { s.failures.Add(1) }

// Snapshot returns the current counter values.
func (s *CounterSink) Snapshot() Counters {
	return Counters{
		CacheHits:     s.hits.Load(),
		CacheMisses:   s.misses.Load(),
		UpstreamCalls: s.calls.Load(),
		Retries:       s.retries.Load(),
		Failures:      s.failures.Load(),
	}
}
