package usecase

import (
	"context"
	"io"
	"log/slog"

	"github.com/1ikeadragon/subconverge/internal/domain"
	"github.com/1ikeadragon/subconverge/internal/ports"
)

// PostProcessor turns the finalized frontier into the clean and alive sets.
type PostProcessor struct {
	norm   *domain.Normalizer
	prober ports.Prober
	scope  bool
	log    *slog.Logger
}

func NewPostProcessor(norm *domain.Normalizer, prober ports.Prober, scopeFilter bool, log *slog.Logger) *PostProcessor {
	if log == nil {
		log = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &PostProcessor{norm: norm, prober: prober, scope: scopeFilter, log: log}
}

// Clean filters raw to root's scope (when enabled) and applies
// NormalizeAndDedupe. raw itself is not modified.
func (p *PostProcessor) Clean(root string, raw []string) []string {
	items := raw
	if p.scope {
		items = domain.FilterScope(raw, root)
	}
	return p.norm.NormalizeAndDedupe(items)
}

// Probe runs the liveness prober over clean. A prober failure is logged and
// yields an empty result; it never aborts the run.
func (p *PostProcessor) Probe(ctx context.Context, clean []string) ([]domain.ProbeResult, error) {
	if p.prober == nil || len(clean) == 0 {
		return []domain.ProbeResult{}, nil
	}

	results, err := p.prober.Probe(ctx, clean)
	if err != nil {
		p.log.Warn("probe.failed", "items", len(clean), "err", err.Error())
		if !domain.IsKind(err, domain.KindProbe) {
			err = &domain.OpError{Op: "usecase.probe", Kind: domain.KindProbe, Err: err}
		}
		return results, err
	}
	return results, nil
}
