package admin

import "sync/atomic"

// QueryStats accumulates counters observed by the query handler. All fields
// are updated with atomic adds so a single instance can be shared across the
// one-goroutine-per-datagram server without a lock.
type QueryStats struct {
	queriesTotal   atomic.Uint64
	cacheHits      atomic.Uint64
	cacheMisses    atomic.Uint64
	responsesNX    atomic.Uint64
	responsesErr   atomic.Uint64
	upstreamLookups atomic.Uint64
}

func (s *QueryStats) IncQuery()           { s.queriesTotal.Add(1) }
func (s *QueryStats) IncCacheHit()        { s.cacheHits.Add(1) }
func (s *QueryStats) IncCacheMiss()       { s.cacheMisses.Add(1) }
func (s *QueryStats) IncNXDomain()        { s.responsesNX.Add(1) }
func (s *QueryStats) IncError()           { s.responsesErr.Add(1) }
func (s *QueryStats) IncUpstreamLookup()  { s.upstreamLookups.Add(1) }

// Snapshot is a point-in-time, non-atomic copy suitable for JSON encoding.
type Snapshot struct {
	QueriesTotal    uint64 `json:"queries_total"`
	CacheHits       uint64 `json:"cache_hits"`
	CacheMisses     uint64 `json:"cache_misses"`
	ResponsesNX     uint64 `json:"responses_nxdomain"`
	ResponsesErr    uint64 `json:"responses_error"`
	UpstreamLookups uint64 `json:"upstream_lookups"`
}

func (s *QueryStats) Snapshot() Snapshot {
	return Snapshot{
		QueriesTotal:    s.queriesTotal.Load(),
		CacheHits:       s.cacheHits.Load(),
		CacheMisses:     s.cacheMisses.Load(),
		ResponsesNX:     s.responsesNX.Load(),
		ResponsesErr:    s.responsesErr.Load(),
		UpstreamLookups: s.upstreamLookups.Load(),
	}
}
