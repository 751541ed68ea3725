package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/1ikeadragon/subconverge/internal/domain"
)

// Apply overlays the values present in y onto base and validates the result.
func Apply(base domain.Config, path string, y YAMLConfig) (domain.Config, error) {
	cfg := base
	s := y.Subconverge

	if len(s.Enumerate.Command) > 0 {
		cfg.Enum.Command = append([]string(nil), s.Enumerate.Command...)
	}
	setInt(&cfg.Enum.Concurrency, s.Enumerate.Concurrency)
	setInt(&cfg.Enum.Retries, s.Enumerate.Retries)
	setInt(&cfg.Enum.MaxRounds, s.Enumerate.MaxRounds)
	setFloat(&cfg.Enum.RateLimit, s.Enumerate.Rate)
	setBool(&cfg.Enum.RequireSeed, s.Enumerate.RequireSeed)
	if err := setDuration(&cfg.Enum.Timeout, s.Enumerate.Timeout, path, "enumerate.timeout"); err != nil {
		return base, err
	}
	if err := setDuration(&cfg.Enum.RetryDelay, s.Enumerate.RetryDelay, path, "enumerate.retry_delay"); err != nil {
		return base, err
	}

	if s.Post.Strip != nil {
		cfg.Post.StripPattern = *s.Post.Strip
	}
	setBool(&cfg.Post.ScopeFilter, s.Post.ScopeFilter)

	if s.Probe.Kind != nil {
		cfg.Probe.Kind = domain.ProberKind(strings.ToLower(strings.TrimSpace(*s.Probe.Kind)))
	}
	if len(s.Probe.Command) > 0 {
		cfg.Probe.Command = append([]string(nil), s.Probe.Command...)
	}
	setString(&cfg.Probe.Fields.Host, s.Probe.Fields.Host)
	setString(&cfg.Probe.Fields.URL, s.Probe.Fields.URL)
	setString(&cfg.Probe.Fields.Status, s.Probe.Fields.Status)
	setString(&cfg.Probe.Fields.Title, s.Probe.Fields.Title)
	setString(&cfg.Probe.Fields.Tech, s.Probe.Fields.Tech)
	setInt(&cfg.Probe.Concurrency, s.Probe.Concurrency)
	setFloat(&cfg.Probe.RateLimit, s.Probe.Rate)
	setBool(&cfg.Probe.Fingerprint, s.Probe.Fingerprint)
	if err := setDuration(&cfg.Probe.Timeout, s.Probe.Timeout, path, "probe.timeout"); err != nil {
		return base, err
	}
	if err := setDuration(&cfg.Probe.InterruptGrace, s.Probe.InterruptGrace, path, "probe.interrupt_grace"); err != nil {
		return base, err
	}

	if s.Output.Dir != nil && strings.TrimSpace(*s.Output.Dir) != "" {
		cfg.Output.Dir = *s.Output.Dir
	}
	setBool(&cfg.Output.WriteIndex, s.Output.Index)

	if err := Validate(cfg); err != nil {
		var oe *domain.OpError
		if errors.As(err, &oe) && oe.Path == "" {
			oe.Path = path
		}
		return base, err
	}
	return cfg, nil
}

// Validate checks the ranges a run depends on. It is also applied after CLI
// flag overrides.
func Validate(cfg domain.Config) error {
	switch {
	case len(cfg.Enum.Command) == 0:
		return invalidField("", "enumerate.command", "command is required")
	case cfg.Enum.Concurrency < 1:
		return invalidField("", "enumerate.concurrency", "must be >= 1")
	case cfg.Enum.Retries < 0:
		return invalidField("", "enumerate.retries", "must be >= 0")
	case cfg.Enum.RateLimit < 0:
		return invalidField("", "enumerate.rate", "must be >= 0")
	case cfg.Enum.MaxRounds < 0:
		return invalidField("", "enumerate.max_rounds", "must be >= 0")
	case cfg.Enum.Timeout < 0:
		return invalidField("", "enumerate.timeout", "must be >= 0")
	case cfg.Probe.Concurrency < 1:
		return invalidField("", "probe.concurrency", "must be >= 1")
	case cfg.Probe.RateLimit < 0:
		return invalidField("", "probe.rate", "must be >= 0")
	}

	switch cfg.Probe.Kind {
	case domain.ProberExec:
		if len(cfg.Probe.Command) == 0 {
			return invalidField("", "probe.command", "command is required for the exec prober")
		}
	case domain.ProberBuiltin, domain.ProberNone:
	default:
		return invalidField("", "probe.kind", fmt.Sprintf("unknown prober %q (want exec, builtin or none)", cfg.Probe.Kind))
	}
	return nil
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *string, path, field string) error {
	if v == nil {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(*v))
	if err != nil {
		return invalidField(path, field, err.Error())
	}
	*dst = d
	return nil
}

func invalidField(path, field, msg string) error {
	return &domain.OpError{
		Op:   "config.map",
		Kind: domain.KindInvalidConfig,
		Path: path,
		Err:  fmt.Errorf("field %s: %s: %w", field, msg, domain.ErrInvalidConfig),
	}
}
