package config

// YAMLConfig mirrors subconverge.yaml. Every leaf is a pointer so that an
// absent key keeps the default; durations are Go duration strings.
type YAMLConfig struct {
	Subconverge struct {
		Enumerate YAMLEnumerate `yaml:"enumerate"`
		Post      YAMLPost      `yaml:"post"`
		Probe     YAMLProbe     `yaml:"probe"`
		Output    YAMLOutput    `yaml:"output"`
	} `yaml:"subconverge"`
}

type YAMLEnumerate struct {
	Command     []string `yaml:"command"`
	Concurrency *int     `yaml:"concurrency"`
	Timeout     *string  `yaml:"timeout"`
	Retries     *int     `yaml:"retries"`
	RetryDelay  *string  `yaml:"retry_delay"`
	Rate        *float64 `yaml:"rate"`
	MaxRounds   *int     `yaml:"max_rounds"`
	RequireSeed *bool    `yaml:"require_seed"`
}

type YAMLPost struct {
	Strip       *string `yaml:"strip"`
	ScopeFilter *bool   `yaml:"scope_filter"`
}

type YAMLProbe struct {
	Kind           *string         `yaml:"kind"`
	Command        []string        `yaml:"command"`
	Fields         YAMLProbeFields `yaml:"fields"`
	Concurrency    *int            `yaml:"concurrency"`
	Timeout        *string         `yaml:"timeout"`
	Rate           *float64        `yaml:"rate"`
	Fingerprint    *bool           `yaml:"fingerprint"`
	InterruptGrace *string         `yaml:"interrupt_grace"`
}

type YAMLProbeFields struct {
	Host   *string `yaml:"host"`
	URL    *string `yaml:"url"`
	Status *string `yaml:"status"`
	Title  *string `yaml:"title"`
	Tech   *string `yaml:"tech"`
}

type YAMLOutput struct {
	Dir   *string `yaml:"dir"`
	Index *bool   `yaml:"index"`
}
