package fsworkspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/1ikeadragon/subconverge/internal/domain"
	"github.com/1ikeadragon/subconverge/internal/infra/config"
)

func TestInitializer_Init_WritesLoadableConfig(t *testing.T) {
	tmp := t.TempDir()

	written, err := NewInitializer("").Init(tmp, false)
	if err != nil {
		t.Fatalf("Init error: %v", err)
	}

	cfgPath := filepath.Join(tmp, config.DefaultFileName)
	if len(written) != 1 || written[0] != cfgPath {
		t.Fatalf("expected only %s written, got %v", cfgPath, written)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("template does not load: %v", err)
	}

	want := domain.DefaultConfig()
	if cfg.Enum.Concurrency != want.Enum.Concurrency {
		t.Fatalf("template must keep the CPU-derived concurrency, got %d", cfg.Enum.Concurrency)
	}
	if cfg.Post.StripPattern != want.Post.StripPattern {
		t.Fatalf("unexpected strip pattern %q", cfg.Post.StripPattern)
	}
	if cfg.Probe.Kind != domain.ProberExec || cfg.Output.Dir != want.Output.Dir {
		t.Fatalf("template drifted from defaults: %+v", cfg)
	}
}

func TestInitializer_Init_SkipsExistingFilesUnlessForce(t *testing.T) {
	tmp := t.TempDir()

	cfgPath := filepath.Join(tmp, config.DefaultFileName)
	if err := os.WriteFile(cfgPath, []byte("custom\n"), 0o644); err != nil {
		t.Fatalf("write existing config: %v", err)
	}

	i := NewInitializer("")

	written, err := i.Init(tmp, false)
	if err != nil {
		t.Fatalf("Init (force=false) error: %v", err)
	}
	if len(written) != 0 {
		t.Fatalf("expected nothing written, got %v", written)
	}

	b, err := os.ReadFile(cfgPath)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if string(b) != "custom\n" {
		t.Fatalf("expected config preserved, got %q", string(b))
	}

	if _, err := i.Init(tmp, true); err != nil {
		t.Fatalf("Init (force=true) error: %v", err)
	}

	b, err = os.ReadFile(cfgPath)
	if err != nil {
		t.Fatalf("read config after force: %v", err)
	}
	if !strings.Contains(string(b), "subconverge:") {
		t.Fatalf("expected config overwritten with template, got %q", string(b))
	}
}
