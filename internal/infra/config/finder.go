package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/1ikeadragon/subconverge/internal/domain"
	"github.com/1ikeadragon/subconverge/internal/ports"
)

const DefaultFileName = "subconverge.yaml"

// Finder locates subconverge.yaml by searching upward from a directory.
type Finder struct {
	ConfigFile string // defaults to "subconverge.yaml"
}

func NewFinder() *Finder {
	return &Finder{ConfigFile: DefaultFileName}
}

var _ ports.ConfigLocator = (*Finder)(nil)

// FindConfig returns the path of the nearest config file at or above
// startDir.
func (f *Finder) FindConfig(startDir string) (string, error) {
	if startDir == "" {
		return "", &domain.OpError{
			Op:   "config.find",
			Kind: domain.KindInvalidConfig,
			Err:  errors.New("startDir is empty"),
		}
	}

	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", &domain.OpError{
			Op:   "config.find",
			Kind: domain.KindExecution,
			Err:  err,
		}
	}

	// A file path starts the search from its directory.
	if info, statErr := os.Stat(abs); statErr == nil && !info.IsDir() {
		abs = filepath.Dir(abs)
	}

	name := f.ConfigFile
	if name == "" {
		name = DefaultFileName
	}

	cur := filepath.Clean(abs)
	for {
		p := filepath.Join(cur, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return "", &domain.OpError{
				Op:   "config.find",
				Kind: domain.KindNotFound,
				Path: name,
				Err:  domain.ErrNotFound,
			}
		}
		cur = parent
	}
}
