package ports

// ConfigLocator finds a subconverge.yaml starting from an arbitrary directory.
type ConfigLocator interface {
	FindConfig(startDir string) (string, error)
}
