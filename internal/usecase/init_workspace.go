package usecase

import (
	"strings"

	"github.com/1ikeadragon/subconverge/internal/ports"
)

type InitWorkspace struct {
	initializer ports.WorkspaceInitializer
}

func NewInitWorkspace(initializer ports.WorkspaceInitializer) *InitWorkspace {
	return &InitWorkspace{initializer: initializer}
}

// Execute returns the files written under root.
func (uc *InitWorkspace) Execute(root string, force bool) ([]string, error) {
	if strings.TrimSpace(root) == "" {
		root = "."
	}
	written, err := uc.initializer.Init(root, force)
	if err != nil {
		return written, err
	}
	if written == nil {
		written = []string{}
	}
	return written, nil
}
