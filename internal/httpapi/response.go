package httpapi

import "github.com/freeeve/diskmap/internal/store"

// KeysResponse lists sanitized keys in sorted order.
type KeysResponse struct {
	Keys  []string `json:"keys"`
	Count int      `json:"count"`
}

type SizeResponse struct {
	Size int `json:"size"`
}

// StatsResponse is the JSON-friendly form of store.Stats.
type StatsResponse struct {
	Entries       int    `json:"entries"`
	Reads         uint64 `json:"reads"`
	Misses        uint64 `json:"misses"`
	Writes        uint64 `json:"writes"`
	Removes       uint64 `json:"removes"`
	Erases        uint64 `json:"erases"`
	ClearFailures uint64 `json:"clear_failures"`
	Errors        uint64 `json:"errors"`
}

// ToStatsResponse converts store counters and the current entry count.
func ToStatsResponse(s store.Stats, entries int) StatsResponse {
	return StatsResponse{
		Entries:       entries,
		Reads:         s.Reads,
		Misses:        s.Misses,
		Writes:        s.Writes,
		Removes:       s.Removes,
		Erases:        s.Erases,
		ClearFailures: s.ClearFailures,
		Errors:        s.Errors,
	}
}
