// Package noprobe treats every item as alive. It is used for offline runs
// where no liveness check is wanted.
package noprobe

import (
	"context"

	"github.com/1ikeadragon/subconverge/internal/domain"
	"github.com/1ikeadragon/subconverge/internal/ports"
)

type Prober struct{}

func New() Prober { return Prober{} }

var _ ports.Prober = Prober{}

func (Prober) Probe(_ context.Context, items []string) ([]domain.ProbeResult, error) {
	out := make([]domain.ProbeResult, 0, len(items))
	for _, it := range items {
		out = append(out, domain.ProbeResult{Host: it, Alive: true})
	}
	return out, nil
}
