package logger

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestSetup_WritesJSONLines(t *testing.T) {
	root := t.TempDir()

	cleanup, err := Setup(Config{Root: root, Debug: true})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}

	want := filepath.Join(root, ".subconverge", "logs", "subconverge.log")
	if Path() != want {
		t.Fatalf("Path() = %q, want %q", Path(), want)
	}

	Component("dispatch").Debug("round.finished", "round", 2)

	if err := cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if Path() != "" {
		t.Fatalf("expected empty path after cleanup")
	}

	f, err := os.Open(want)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	var msgs []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("log line is not JSON: %q", sc.Text())
		}
		msgs = append(msgs, m)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(msgs))
	}
	last := msgs[1]
	if last["msg"] != "round.finished" || last["component"] != "dispatch" || last["round"] != float64(2) {
		t.Fatalf("unexpected record: %v", last)
	}
	if _, ok := last["source"]; !ok {
		t.Fatalf("expected source in debug mode")
	}
}

func TestSetup_InfoLevelDropsDebug(t *testing.T) {
	root := t.TempDir()
	cleanup, err := Setup(Config{Root: root})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	path := Path()
	L().Debug("hidden")
	_ = cleanup()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var n int
	for _, c := range b {
		if c == '\n' {
			n++
		}
	}
	if n != 1 {
		t.Fatalf("expected only the init record, got %d lines", n)
	}
}

func TestL_DiscardsBeforeSetup(t *testing.T) {
	if L() == nil {
		t.Fatalf("expected a usable logger before Setup")
	}
	L().Info("nowhere")
}
