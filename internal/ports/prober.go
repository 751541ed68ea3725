package ports

import (
	"context"

	"github.com/1ikeadragon/subconverge/internal/domain"
)

// Prober checks which items are alive. Results may carry status metadata.
type Prober interface {
	Probe(ctx context.Context, items []string) ([]domain.ProbeResult, error)
}
