package store

import (
	"sync/atomic"
)

// Stats holds operation counters for a store. Counters live in memory only
// and start at zero on Open.
type Stats struct {
	Reads         uint64 // Get calls that found an entry
	Misses        uint64 // Get and Remove calls for absent keys
	Writes        uint64 // entries written by Put
	Removes       uint64 // entries deleted by Remove or a nil Put
	Erases        uint64 // successful Erase and Clear calls
	ClearFailures uint64 // Clear calls whose erase failed
	Errors        uint64 // StorageErrors returned to callers
}

// StatsCollector collects operation counters for the store.
type StatsCollector struct {
	reads         uint64
	misses        uint64
	writes        uint64
	removes       uint64
	erases        uint64
	clearFailures uint64
	errors        uint64
}

// NewStatsCollector creates a new stats collector
func NewStatsCollector() *StatsCollector {
	return &StatsCollector{}
}

// IncrementReads atomically increments the read counter
func (s *StatsCollector) IncrementReads() {
	atomic.AddUint64(&s.reads, 1)
}

// IncrementMisses atomically increments the miss counter
func (s *StatsCollector) IncrementMisses() {
	atomic.AddUint64(&s.misses, 1)
}

// IncrementWrites atomically increments the write counter
func (s *StatsCollector) IncrementWrites() {
	atomic.AddUint64(&s.writes, 1)
}

// IncrementRemoves atomically increments the remove counter
func (s *StatsCollector) IncrementRemoves() {
	atomic.AddUint64(&s.removes, 1)
}

// IncrementErases atomically increments the erase counter
func (s *StatsCollector) IncrementErases() {
	atomic.AddUint64(&s.erases, 1)
}

// IncrementClearFailures atomically increments the swallowed-failure counter
func (s *StatsCollector) IncrementClearFailures() {
	atomic.AddUint64(&s.clearFailures, 1)
}

// IncrementErrors atomically increments the error counter
func (s *StatsCollector) IncrementErrors() {
	atomic.AddUint64(&s.errors, 1)
}

// Stats returns the current statistics
func (s *StatsCollector) Stats() Stats {
	return Stats{
		Reads:         atomic.LoadUint64(&s.reads),
		Misses:        atomic.LoadUint64(&s.misses),
		Writes:        atomic.LoadUint64(&s.writes),
		Removes:       atomic.LoadUint64(&s.removes),
		Erases:        atomic.LoadUint64(&s.erases),
		ClearFailures: atomic.LoadUint64(&s.clearFailures),
		Errors:        atomic.LoadUint64(&s.errors),
	}
}
