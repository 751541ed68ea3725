package cli

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/1ikeadragon/subconverge/internal/domain"
	"github.com/1ikeadragon/subconverge/internal/infra/artifacts"
	"github.com/1ikeadragon/subconverge/internal/infra/config"
	"github.com/1ikeadragon/subconverge/internal/infra/execenum"
	"github.com/1ikeadragon/subconverge/internal/infra/execprobe"
	"github.com/1ikeadragon/subconverge/internal/infra/httpclient"
	"github.com/1ikeadragon/subconverge/internal/infra/httpprobe"
	"github.com/1ikeadragon/subconverge/internal/infra/noprobe"
	"github.com/1ikeadragon/subconverge/internal/ports"
)

// workspaceCtx holds everything a run needs once config and flags are merged.
type workspaceCtx struct {
	cfg     domain.Config
	cfgPath string

	enum   ports.Enumerator
	prober ports.Prober
	store  ports.ArtifactStore
}

// resolveConfig loads --config when given, else the nearest subconverge.yaml,
// else the defaults. Flags the user set override the file.
func resolveConfig(cmd *cobra.Command, f rootFlags) (domain.Config, string, error) {
	var locator ports.ConfigLocator = config.NewFinder()
	cfg := domain.DefaultConfig()
	path := strings.TrimSpace(f.config)

	if path == "" {
		wd, err := os.Getwd()
		if err == nil {
			if found, ferr := locator.FindConfig(wd); ferr == nil {
				path = found
			}
		}
	}

	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, path, err
		}
		cfg = loaded
	}

	applyFlags(cmd, &cfg, f)
	if err := config.Validate(cfg); err != nil {
		return cfg, path, err
	}
	return cfg, path, nil
}

func applyFlags(cmd *cobra.Command, cfg *domain.Config, f rootFlags) {
	changed := func(name string) bool {
		fl := cmd.Flags().Lookup(name)
		return fl != nil && fl.Changed
	}

	if changed("concurrency") {
		cfg.Enum.Concurrency = f.concurrency
	}
	if changed("timeout") {
		cfg.Enum.Timeout = f.timeout
	}
	if changed("retries") {
		cfg.Enum.Retries = f.retries
	}
	if changed("rate") {
		cfg.Enum.RateLimit = f.rate
	}
	if changed("max-rounds") {
		cfg.Enum.MaxRounds = f.maxRounds
	}
	if changed("allow-empty-seed") {
		cfg.Enum.RequireSeed = !f.allowEmptySeed
	}
	if changed("strip") {
		cfg.Post.StripPattern = f.strip
	}
	if changed("prober") {
		cfg.Probe.Kind = domain.ProberKind(strings.ToLower(strings.TrimSpace(f.prober)))
	}
	if changed("out") {
		cfg.Output.Dir = f.out
	}
}

// loadWorkspace builds the adapters for cfg. The enumeration tool must be
// installed; see buildProber for the probe tool.
func loadWorkspace(cfg domain.Config, path string, log *slog.Logger) (*workspaceCtx, error) {
	enum, err := execenum.New(cfg.Enum.Command)
	if err != nil {
		return nil, err
	}
	if err := enum.Available(); err != nil {
		return nil, err
	}

	prober, err := buildProber(cfg.Probe, log.With("component", "probe"))
	if err != nil {
		return nil, err
	}

	return &workspaceCtx{
		cfg:     cfg,
		cfgPath: path,
		enum:    enum,
		prober:  prober,
		store:   artifacts.New(cfg.Output.Dir,
			artifacts.WithIndex(cfg.Output.WriteIndex),
			artifacts.WithLogger(log.With("component", "artifacts")),
		),
	}, nil
}

// buildProber returns the configured prober. A missing probe tool is not
// fatal: the probe step fails later and the alive set stays empty.
func buildProber(pc domain.ProbeConfig, log *slog.Logger) (ports.Prober, error) {
	switch pc.Kind {
	case domain.ProberNone:
		return noprobe.New(), nil

	case domain.ProberBuiltin:
		hc := httpclient.DefaultConfig()
		if pc.Timeout > 0 {
			hc.Timeout = pc.Timeout
		}
		opts := []httpprobe.Option{
			httpprobe.WithConcurrency(pc.Concurrency),
			httpprobe.WithRateLimit(pc.RateLimit),
			httpprobe.WithLogger(log),
		}
		if pc.Fingerprint {
			fp, err := httpprobe.NewWappalyzer()
			if err != nil {
				log.Warn("probe.fingerprint_disabled", "err", err.Error())
			} else {
				opts = append(opts, httpprobe.WithFingerprinter(fp))
			}
		}
		return httpprobe.New(httpclient.New(hc), opts...), nil

	default:
		p, err := execprobe.New(pc.Command, pc.Fields, execprobe.WithLogger(log))
		if err != nil {
			return nil, err
		}
		if aerr := p.Available(); aerr != nil {
			log.Warn("probe.unavailable", "err", aerr.Error())
		}
		return p, nil
	}
}
