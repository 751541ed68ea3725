// Package artifacts writes the per-run sets and report under
// <root>/<domain-slug>/ and keeps a JSONL index of runs in <root>.
package artifacts

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/1ikeadragon/subconverge/internal/domain"
	"github.com/1ikeadragon/subconverge/internal/ports"
)

const (
	RawFile    = "subs_raw.txt"
	CleanFile  = "subs_clean.txt"
	AliveFile  = "subs_alive.txt"
	ReportFile = "report.json"
	IndexFile  = "index.jsonl"
)

type Store struct {
	rootDir    string
	writeIndex bool
	now        func() time.Time
	log        *slog.Logger
}

type Option func(*Store)

// WithIndex enables <root>/index.jsonl.
func WithIndex(enabled bool) Option {
	return func(s *Store) { s.writeIndex = enabled }
}

// WithNow is useful for tests.
func WithNow(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger receives warnings about the run index.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

func New(root string, opts ...Option) *Store {
	s := &Store{
		rootDir: root,
		now:     time.Now,
		log:     slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ ports.ArtifactStore = (*Store)(nil)

// Save replaces the previous artifacts for the same domain. The returned
// paths are keyed raw, clean, alive and report.
func (s *Store) Save(report domain.Report, sets domain.Artifacts) (string, map[string]string, error) {
	slug := slugify(report.Domain)
	if slug == "" {
		slug = "run"
	}

	dir := filepath.Join(s.rootDir, slug)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, &domain.OpError{
			Op:   "artifacts.mkdir",
			Kind: domain.KindExecution,
			Path: dir,
			Err:  err,
		}
	}

	ts := report.StartedAt
	if ts.IsZero() {
		ts = s.now()
	}
	ts = ts.UTC()
	id := fmt.Sprintf("%s_%s", ts.Format("20060102T150405Z"), slug)

	paths := map[string]string{
		"raw":    filepath.Join(dir, RawFile),
		"clean":  filepath.Join(dir, CleanFile),
		"alive":  filepath.Join(dir, AliveFile),
		"report": filepath.Join(dir, ReportFile),
	}

	for _, f := range []struct {
		key   string
		items []string
	}{
		{"raw", sets.Raw},
		{"clean", sets.Clean},
		{"alive", sets.Alive},
	} {
		if err := writeAtomic(paths[f.key], linesOf(f.items)); err != nil {
			return "", nil, err
		}
	}

	toSave := report
	toSave.ID = id
	toSave.Paths = paths
	if toSave.StartedAt.IsZero() {
		toSave.StartedAt = ts
	}

	b, err := json.MarshalIndent(toSave, "", "  ")
	if err != nil {
		return "", nil, &domain.OpError{
			Op:   "artifacts.marshal",
			Kind: domain.KindExecution,
			Path: paths["report"],
			Err:  err,
		}
	}
	if err := writeAtomic(paths["report"], append(b, '\n')); err != nil {
		return "", nil, err
	}

	if s.writeIndex {
		// The artifacts are already on disk; a lost index line is not fatal.
		if err := s.appendIndex(id, toSave); err != nil {
			s.log.Warn("artifacts.index_failed", "id", id, "err", err.Error())
		}
	}

	return id, paths, nil
}

func (s *Store) appendIndex(id string, report domain.Report) error {
	type idx struct {
		ID         string            `json:"id"`
		Domain     string            `json:"domain"`
		Report     string            `json:"report"`
		StartedAt  time.Time         `json:"started_at"`
		StopReason domain.StopReason `json:"stop_reason"`
		Clean      int               `json:"clean"`
		Alive      int               `json:"alive"`
	}
	rel, err := filepath.Rel(s.rootDir, report.Paths["report"])
	if err != nil {
		rel = report.Paths["report"]
	}
	line, err := json.Marshal(idx{
		ID:         id,
		Domain:     report.Domain,
		Report:     filepath.ToSlash(rel),
		StartedAt:  report.StartedAt,
		StopReason: report.StopReason,
		Clean:      report.CleanCount,
		Alive:      report.AliveCount,
	})
	if err != nil {
		return err
	}

	f, err := os.OpenFile(filepath.Join(s.rootDir, IndexFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// writeAtomic writes tmp then renames over path.
func writeAtomic(path string, b []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return &domain.OpError{
			Op:   "artifacts.write",
			Kind: domain.KindExecution,
			Path: tmp,
			Err:  err,
		}
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return &domain.OpError{
			Op:   "artifacts.rename",
			Kind: domain.KindExecution,
			Path: path,
			Err:  err,
		}
	}
	return nil
}

func linesOf(items []string) []byte {
	sorted := append([]string(nil), items...)
	sort.Strings(sorted)

	var b strings.Builder
	for _, it := range sorted {
		if it == "" {
			continue
		}
		b.WriteString(it)
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// slugify produces a safe directory name.
func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))

	lastDash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}

	return strings.Trim(b.String(), "-")
}
