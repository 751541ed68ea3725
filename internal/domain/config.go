package domain

import (
	"runtime"
	"time"
)

// ProberKind selects the liveness-probe adapter.
type ProberKind string

const (
	ProberExec    ProberKind = "exec"
	ProberBuiltin ProberKind = "builtin"
	ProberNone    ProberKind = "none"
)

// Config is the full run configuration, loaded from subconverge.yaml and
// overridden by CLI flags.
type Config struct {
	Enum   EnumConfig
	Post   PostConfig
	Probe  ProbeConfig
	Output OutputConfig
}

type EnumConfig struct {
	// Command is the enumeration tool argv; "{{item}}" is replaced per call.
	Command []string

	Concurrency int
	Timeout     time.Duration
	Retries     int
	RetryDelay  time.Duration
	RateLimit   float64 // calls per second, 0 = unlimited
	MaxRounds   int     // 0 = until convergence

	// RequireSeed makes an empty seed enumeration fatal.
	RequireSeed bool
}

type PostConfig struct {
	StripPattern string
	ScopeFilter  bool
}

type ProbeConfig struct {
	Kind ProberKind

	// Command is the probe tool argv (exec prober). Items are written to stdin.
	Command []string
	Fields  ProbeFields

	Concurrency int
	Timeout     time.Duration
	RateLimit   float64
	Fingerprint bool

	// InterruptGrace bounds post-processing after an interrupt.
	InterruptGrace time.Duration
}

// ProbeFields are JSONPath expressions applied to each JSON line emitted by
// the exec prober.
type ProbeFields struct {
	Host   string
	URL    string
	Status string
	Title  string
	Tech   string
}

type OutputConfig struct {
	Dir        string
	WriteIndex bool
}

// DefaultConcurrency is the worker count used when none is configured.
func DefaultConcurrency() int {
	return runtime.NumCPU() * 4
}

// DefaultConfig provides sane defaults if subconverge.yaml is partially missing.
func DefaultConfig() Config {
	return Config{
		Enum: EnumConfig{
			Command:     []string{"subfinder", "-d", "{{item}}", "-silent", "-all"},
			Concurrency: DefaultConcurrency(),
			Timeout:     10 * time.Minute,
			Retries:     0,
			RetryDelay:  2 * time.Second,
			RequireSeed: true,
		},
		Post: PostConfig{
			StripPattern: DefaultStripPattern,
			ScopeFilter:  true,
		},
		Probe: ProbeConfig{
			Kind:    ProberExec,
			Command: []string{"httpx", "-silent", "-json"},
			Fields: ProbeFields{
				Host:   "$.input",
				URL:    "$.url",
				Status: "$.status_code",
				Title:  "$.title",
				Tech:   "$.tech",
			},
			Concurrency:    50,
			Timeout:        10 * time.Second,
			Fingerprint:    false,
			InterruptGrace: 30 * time.Second,
		},
		Output: OutputConfig{
			Dir:        "subconverge-out",
			WriteIndex: true,
		},
	}
}
