package ports

// WorkspaceInitializer writes a starter subconverge.yaml and .gitignore entries.
type WorkspaceInitializer interface {
	Init(root string, force bool) ([]string, error)
}
