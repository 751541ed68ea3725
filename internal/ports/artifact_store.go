package ports

import "github.com/1ikeadragon/subconverge/internal/domain"

// ArtifactStore persists the raw, clean and alive sets plus the run report.
type ArtifactStore interface {
	Save(report domain.Report, sets domain.Artifacts) (id string, paths map[string]string, err error)
}
