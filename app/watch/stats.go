package watch

import "sync"

// Stats tracks engine activity counters, surfaced on the stats endpoint.
type Stats struct {
	mu            sync.Mutex
	Rescans       int `json:"rescans"`
	UnitsInjected int `json:"units_injected"`
	ClipsSaved    int `json:"clips_saved"`
	ClipsFailed   int `json:"clips_failed"`
	Navigations   int `json:"navigations"`
	Teardowns     int `json:"teardowns"`
	LastScanUnits int `json:"last_scan_units"`
}

func NewStats() *Stats {
	return &Stats{}
}

func (s *Stats) recordRescan(injected int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Rescans++
	s.UnitsInjected += injected
	s.LastScanUnits = injected
}

func (s *Stats) recordClip(success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if success {
		s.ClipsSaved++
	} else {
		s.ClipsFailed++
	}
}

func (s *Stats) recordNavigation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Navigations++
}

func (s *Stats) recordTeardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Teardowns++
}

// Snapshot returns a copy safe to serialize.
func (s *Stats) Snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Rescans:       s.Rescans,
		UnitsInjected: s.UnitsInjected,
		ClipsSaved:    s.ClipsSaved,
		ClipsFailed:   s.ClipsFailed,
		Navigations:   s.Navigations,
		Teardowns:     s.Teardowns,
		LastScanUnits: s.LastScanUnits,
	}
}
