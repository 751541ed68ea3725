package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/1ikeadragon/subconverge/internal/domain"
	"github.com/1ikeadragon/subconverge/internal/infra/config"
)

// fakeTool answers like subfinder for a tiny closed world.
const fakeTool = `case "{{item}}" in
  example.com) printf 'a.example.com\nwww.example.com\n*.example.com\nother.org\n';;
  a.example.com) echo b.a.example.com;;
  b.a.example.com) echo a.example.com;;
esac`

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, config.DefaultFileName)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func fakeConfig(t *testing.T, dir string) string {
	t.Helper()
	cmd, _ := json.Marshal([]string{"/bin/sh", "-c", fakeTool})
	return writeConfig(t, dir, "subconverge:\n  enumerate:\n    command: "+string(cmd)+"\n  probe:\n    kind: none\n")
}

func runCLI(t *testing.T, ctx context.Context, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

func TestRoot_MissingDomain(t *testing.T) {
	_, _, err := runCLI(t, context.Background())
	if !domain.IsKind(err, domain.KindMissingInput) {
		t.Fatalf("expected KindMissingInput, got %v", err)
	}
	if exitCode(err) != 1 {
		t.Fatalf("expected exit 1, got %d", exitCode(err))
	}
}

func TestRoot_EndToEnd(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := fakeConfig(t, tmp)
	out := filepath.Join(tmp, "out")

	stdout, stderr, err := runCLI(t, context.Background(), "Example.com", "--config", cfgPath, "-o", out, "--no-color", "-c", "2")
	if err != nil {
		t.Fatalf("run failed: %v\nstderr:\n%s", err, stderr)
	}

	// www.example.com has no bare twin, so deduplication keeps it.
	alive := strings.Fields(stdout)
	want := []string{"a.example.com", "b.a.example.com", "www.example.com"}
	if strings.Join(alive, ",") != strings.Join(want, ",") {
		t.Fatalf("alive = %v, want %v", alive, want)
	}

	raw, err := os.ReadFile(filepath.Join(out, "example-com", "subs_raw.txt"))
	if err != nil {
		t.Fatalf("read raw: %v", err)
	}
	if strings.Contains(string(raw), "other.org") || strings.Contains(string(raw), "*") {
		t.Fatalf("out-of-scope or wildcard entries leaked into raw set:\n%s", raw)
	}

	b, err := os.ReadFile(filepath.Join(out, "example-com", "report.json"))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var report domain.Report
	if err := json.Unmarshal(b, &report); err != nil {
		t.Fatalf("unmarshal report: %v", err)
	}
	if report.StopReason != domain.StopConverged || report.Domain != "example.com" {
		t.Fatalf("unexpected report: %+v", report)
	}

	if _, err := os.Stat(filepath.Join(out, "index.jsonl")); err != nil {
		t.Fatalf("expected index.jsonl: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, ".subconverge", "logs", "subconverge.log")); err != nil {
		t.Fatalf("expected log file: %v", err)
	}
	if !strings.Contains(stderr, "[round 1]") {
		t.Fatalf("expected round progress on stderr:\n%s", stderr)
	}
}

func TestRoot_EmptySeedFails(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := writeConfig(t, tmp, `subconverge:
  enumerate:
    command: ["/bin/sh", "-c", "true {{item}}"]
  probe:
    kind: none
`)
	out := filepath.Join(tmp, "out")

	_, stderr, err := runCLI(t, context.Background(), "example.com", "--config", cfgPath, "-o", out, "--no-color")
	if !domain.IsKind(err, domain.KindEmptySeed) {
		t.Fatalf("expected KindEmptySeed, got %v", err)
	}
	if !strings.Contains(stderr, "[error]") {
		t.Fatalf("expected error line on stderr:\n%s", stderr)
	}
	if _, serr := os.Stat(filepath.Join(out, "example-com")); !os.IsNotExist(serr) {
		t.Fatalf("no artifacts may be written for an empty seed")
	}

	_, _, err = runCLI(t, context.Background(), "example.com", "--config", cfgPath, "-o", out, "--allow-empty-seed")
	if err != nil {
		t.Fatalf("--allow-empty-seed must succeed, got %v", err)
	}
}

func TestRoot_MissingTool(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := writeConfig(t, tmp, "subconverge:\n  enumerate:\n    command: [\"subconverge-no-such-tool\", \"{{item}}\"]\n")

	_, _, err := runCLI(t, context.Background(), "example.com", "--config", cfgPath, "-o", filepath.Join(tmp, "out"))
	if !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("expected KindNotFound, got %v", err)
	}
}

func TestRoot_InvalidFlagValues(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := fakeConfig(t, tmp)

	cases := [][]string{
		{"--prober", "nmap"},
		{"-c", "0"},
		{"--strip", "("},
	}
	for _, extra := range cases {
		args := append([]string{"example.com", "--config", cfgPath, "-o", filepath.Join(tmp, "out")}, extra...)
		_, _, err := runCLI(t, context.Background(), args...)
		if !domain.IsKind(err, domain.KindInvalidConfig) {
			t.Fatalf("%v: expected KindInvalidConfig, got %v", extra, err)
		}
	}
}

func TestRoot_Interrupted(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := writeConfig(t, tmp, `subconverge:
  enumerate:
    command: ["/bin/sh", "-c", "echo a.{{item}}; sleep 5"]
    timeout: 0s
  probe:
    kind: none
    interrupt_grace: 2s
`)
	out := filepath.Join(tmp, "out")

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	_, _, err := runCLI(t, ctx, "example.com", "--config", cfgPath, "-o", out)
	if err == nil {
		t.Fatalf("expected an error")
	}
	if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		t.Fatalf("expected a context error, got %v", err)
	}
}

func TestApplyFlags_OnlyChanged(t *testing.T) {
	cmd := newRootCmd()
	if err := cmd.ParseFlags([]string{"--retries", "3", "--allow-empty-seed", "--prober", "BUILTIN"}); err != nil {
		t.Fatalf("parse: %v", err)
	}

	cfg := domain.DefaultConfig()
	cfg.Enum.Concurrency = 7
	f := rootFlags{retries: 3, allowEmptySeed: true, prober: "BUILTIN", concurrency: 99}
	applyFlags(cmd, &cfg, f)

	if cfg.Enum.Concurrency != 7 {
		t.Fatalf("unset flag must not override config, got %d", cfg.Enum.Concurrency)
	}
	if cfg.Enum.Retries != 3 || cfg.Enum.RequireSeed || cfg.Probe.Kind != domain.ProberBuiltin {
		t.Fatalf("unexpected cfg: %+v", cfg.Enum)
	}
}

func TestInit_WritesConfig(t *testing.T) {
	tmp := t.TempDir()

	stdout, _, err := runCLI(t, context.Background(), "init", tmp)
	if err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if !strings.Contains(stdout, "wrote") {
		t.Fatalf("unexpected output %q", stdout)
	}
	if _, err := config.Load(filepath.Join(tmp, config.DefaultFileName)); err != nil {
		t.Fatalf("written config does not load: %v", err)
	}

	stdout, _, err = runCLI(t, context.Background(), "init", tmp)
	if err != nil {
		t.Fatalf("second init failed: %v", err)
	}
	if !strings.Contains(stdout, "already initialized") {
		t.Fatalf("unexpected output %q", stdout)
	}
}

func TestVersion(t *testing.T) {
	stdout, _, err := runCLI(t, context.Background(), "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(stdout, "subconverge ") {
		t.Fatalf("unexpected version output %q", stdout)
	}
}

func TestExitCode(t *testing.T) {
	if exitCode(context.Canceled) != exitInterrupted {
		t.Fatalf("cancelled runs exit %d", exitInterrupted)
	}
	if exitCode(errors.New("x")) != 1 {
		t.Fatalf("other errors exit 1")
	}
}
