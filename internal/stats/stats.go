// Package stats holds process-wide activity counters for the scanner.
//
// All updates are lock-free atomics, safe to call from the concurrent book
// fetchers and the sequential poll loop without external synchronization.
// No cross-counter consistency is guaranteed or needed — each counter is an
// independent monotonic (or last-write-wins) value.
package stats

import "sync/atomic"

// Stats is the set of counters summarizing scanner activity since startup.
type Stats struct {
	startMs   atomic.Uint64
	lastLogMs atomic.Uint64

	heartbeats        atomic.Uint64
	marketsLoaded     atomic.Uint64
	marketsInSnapshot atomic.Uint64

	nearArbHits    atomic.Uint64
	opportunities  atomic.Uint64
	intentsEmitted atomic.Uint64
}

// New creates a Stats with the start and last-log clocks set to nowMs.
func New(nowMs uint64) *Stats {
	s := &Stats{}
	s.startMs.Store(nowMs)
	s.lastLogMs.Store(nowMs)
	return s
}

// IncHeartbeat records one completed snapshot cycle.
func (s *Stats) IncHeartbeat() {
	s.heartbeats.Add(1)
}

// SetMarketsLoaded records the size of the last market discovery.
func (s *Stats) SetMarketsLoaded(n uint64) {
	s.marketsLoaded.Store(n)
}

// SetMarketsInSnapshot records how many markets were fully quoted last cycle.
func (s *Stats) SetMarketsInSnapshot(n uint64) {
	s.marketsInSnapshot.Store(n)
}

// IncNearArb records one market whose summed asks crossed the warning edge.
func (s *Stats) IncNearArb() {
	s.nearArbHits.Add(1)
}

// IncOpportunity records one market that cleared the execution threshold.
func (s *Stats) IncOpportunity() {
	s.opportunities.Add(1)
}

// AddIntents records n order intents handed to the execution sink.
func (s *Stats) AddIntents(n uint64) {
	s.intentsEmitted.Add(n)
}

// ShouldLog reports whether at least everySec seconds have elapsed since the
// last logged summary. An interval of 0 disables periodic logging entirely.
func (s *Stats) ShouldLog(nowMs uint64, everySec uint64) bool {
	if everySec == 0 {
		return false
	}
	last := s.lastLogMs.Load()
	if nowMs < last {
		return false
	}
	return nowMs-last >= everySec*1000
}

// MarkLogged resets the periodic logging timer.
func (s *Stats) MarkLogged(nowMs uint64) {
	s.lastLogMs.Store(nowMs)
}

// Snapshot produces an immutable summary suitable for serialization as a
// single JSON line.
func (s *Stats) Snapshot(nowMs uint64) Snapshot {
	start := s.startMs.Load()
	var up uint64
	if nowMs > start {
		up = (nowMs - start) / 1000
	}
	return Snapshot{
		NowMs:             nowMs,
		UpSec:             up,
		Heartbeats:        s.heartbeats.Load(),
		MarketsLoaded:     s.marketsLoaded.Load(),
		MarketsInSnapshot: s.marketsInSnapshot.Load(),
		NearArbHits:       s.nearArbHits.Load(),
		Opportunities:     s.opportunities.Load(),
		IntentsEmitted:    s.intentsEmitted.Load(),
	}
}

// Snapshot is a point-in-time copy of all counters plus derived uptime.
type Snapshot struct {
	NowMs             uint64 `json:"now_ms"`
	UpSec             uint64 `json:"up_sec"`
	Heartbeats        uint64 `json:"heartbeats"`
	MarketsLoaded     uint64 `json:"markets_loaded"`
	MarketsInSnapshot uint64 `json:"markets_in_snapshot"`
	NearArbHits       uint64 `json:"near_arb_hits"`
	Opportunities     uint64 `json:"opportunities"`
	IntentsEmitted    uint64 `json:"intents_emitted"`
}
