package fsworkspace

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/1ikeadragon/subconverge/internal/domain"
	"github.com/1ikeadragon/subconverge/internal/ports"
)

type Initializer struct {
	outDir string
}

// NewInitializer writes the starter files. outDir is the output directory
// added to .gitignore.
func NewInitializer(outDir string) *Initializer {
	if strings.TrimSpace(outDir) == "" {
		outDir = domain.DefaultConfig().Output.Dir
	}
	return &Initializer{outDir: outDir}
}

var _ ports.WorkspaceInitializer = (*Initializer)(nil)

// Init writes every embedded template under root. Existing files are kept
// unless force is set. It returns the files it wrote.
func (i *Initializer) Init(root string, force bool) ([]string, error) {
	root = filepath.Clean(root)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, wrap("fsworkspace.mkdir", root, err)
	}

	if err := ensureGitignore(root, i.outDir); err != nil {
		return nil, wrap("fsworkspace.gitignore", filepath.Join(root, ".gitignore"), err)
	}

	var written []string
	err := fs.WalkDir(templatesFS, "templates", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel := strings.TrimPrefix(p, "templates/")
		dst := filepath.Join(root, rel)

		if !force {
			if _, statErr := os.Stat(dst); statErr == nil {
				return nil
			}
		}

		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}

		b, err := fs.ReadFile(templatesFS, p)
		if err != nil {
			return err
		}
		if err := os.WriteFile(dst, b, 0o644); err != nil {
			return err
		}
		written = append(written, dst)
		return nil
	})
	if err != nil {
		return written, wrap("fsworkspace.init", root, err)
	}
	return written, nil
}

func ensureGitignore(root, outDir string) error {
	const header = "# subconverge"
	entries := []string{
		strings.TrimSuffix(filepath.ToSlash(outDir), "/") + "/",
		".subconverge/",
	}

	path := filepath.Join(root, ".gitignore")
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			lines := append([]string{header}, entries...)
			lines = append(lines, "")
			return os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644)
		}
		return err
	}

	existing := string(b)
	present := map[string]bool{}
	for _, line := range strings.Split(existing, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		present[trimmed] = true
	}

	var missing []string
	for _, e := range entries {
		if !present[e] {
			missing = append(missing, e)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	var out strings.Builder
	out.Grow(len(existing) + 64)

	out.WriteString(existing)
	if existing != "" && !strings.HasSuffix(existing, "\n") {
		out.WriteByte('\n')
	}
	out.WriteByte('\n')
	if !present[header] {
		out.WriteString(header)
		out.WriteByte('\n')
	}
	for _, e := range missing {
		out.WriteString(e)
		out.WriteByte('\n')
	}

	return os.WriteFile(path, []byte(out.String()), 0o644)
}

func wrap(op, path string, err error) error {
	return &domain.OpError{Op: op, Kind: domain.KindExecution, Path: path, Err: err}
}
