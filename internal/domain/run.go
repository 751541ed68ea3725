package domain

import "time"

// RoundStats summarizes one dispatch over the frontier.
type RoundStats struct {
	Round      int           `json:"round"`
	Dispatched int           `json:"dispatched"`
	Failed     int           `json:"failed"`
	Found      int           `json:"found"`
	SizeBefore int           `json:"size_before"`
	SizeAfter  int           `json:"size_after"`
	Duration   time.Duration `json:"duration_ns"`
}

// New returns how many items the round added to the frontier.
func (s RoundStats) New() int {
	return s.SizeAfter - s.SizeBefore
}

// ProbeResult is one liveness-probe answer. Only Alive results are written to
// the alive artifact.
type ProbeResult struct {
	Host       string   `json:"host"`
	URL        string   `json:"url,omitempty"`
	StatusCode int      `json:"status_code,omitempty"`
	Title      string   `json:"title,omitempty"`
	Tech       []string `json:"tech,omitempty"`
	Alive      bool     `json:"alive"`
}

// Artifacts are the newline-delimited sets produced by a run.
type Artifacts struct {
	Raw   []string
	Clean []string
	Alive []string
}

// Report is the persisted summary of a run.
type Report struct {
	ID     string `json:"id,omitempty"`
	Domain string `json:"domain"`

	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`

	SeedSize   int          `json:"seed_size"`
	Rounds     []RoundStats `json:"rounds"`
	StopReason StopReason   `json:"stop_reason"`

	RawCount   int `json:"raw_count"`
	CleanCount int `json:"clean_count"`
	AliveCount int `json:"alive_count"`

	Probes      []ProbeResult `json:"probes,omitempty"`
	ProbeFailed bool          `json:"probe_failed,omitempty"`

	Interrupted bool              `json:"interrupted"`
	Paths       map[string]string `json:"paths,omitempty"`
}

// AliveHosts returns the items of the alive subset, in probe order.
func AliveHosts(results []ProbeResult) []string {
	out := make([]string, 0, len(results))
	seen := map[string]struct{}{}
	for _, r := range results {
		if !r.Alive || r.Host == "" {
			continue
		}
		if _, ok := seen[r.Host]; ok {
			continue
		}
		seen[r.Host] = struct{}{}
		out = append(out, r.Host)
	}
	return out
}
