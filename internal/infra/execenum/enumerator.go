// Package execenum adapts an external enumeration tool (subfinder by default)
// to ports.Enumerator. The tool is run once per item and prints one hostname
// per line on stdout.
package execenum

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/1ikeadragon/subconverge/internal/app/template"
	"github.com/1ikeadragon/subconverge/internal/domain"
	"github.com/1ikeadragon/subconverge/internal/ports"
)

const (
	itemVar          = "item"
	maxStderrBytes   = 2048
	defaultWaitDelay = 2 * time.Second
)

type Enumerator struct {
	argv      []string
	waitDelay time.Duration
	env       []string
}

type Option func(*Enumerator)

// WithEnv appends KEY=VALUE pairs to the tool's environment.
func WithEnv(kv ...string) Option {
	return func(e *Enumerator) { e.env = append(e.env, kv...) }
}

// WithWaitDelay bounds how long a killed tool may keep its pipes open.
func WithWaitDelay(d time.Duration) Option {
	return func(e *Enumerator) { e.waitDelay = d }
}

// New validates argv: it must name a program and reference {{item}}.
func New(argv []string, opts ...Option) (*Enumerator, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return nil, &domain.OpError{
			Op:   "execenum.new",
			Kind: domain.KindInvalidConfig,
			Err:  errors.New("enumeration command is empty"),
		}
	}
	if !template.References(argv, itemVar) {
		return nil, &domain.OpError{
			Op:   "execenum.new",
			Kind: domain.KindInvalidConfig,
			Path: strings.Join(argv, " "),
			Err:  errors.New("enumeration command must reference {{item}}"),
		}
	}

	e := &Enumerator{
		argv:      append([]string(nil), argv...),
		waitDelay: defaultWaitDelay,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

var _ ports.Enumerator = (*Enumerator)(nil)

// Available reports whether the tool binary can be found in PATH.
func (e *Enumerator) Available() error {
	if _, err := exec.LookPath(e.argv[0]); err != nil {
		return &domain.OpError{
			Op:   "execenum.lookpath",
			Kind: domain.KindNotFound,
			Path: e.argv[0],
			Err:  err,
		}
	}
	return nil
}

func (e *Enumerator) Enumerate(ctx context.Context, item string) ([]string, error) {
	argv, err := template.RenderArgs(e.argv, map[string]string{itemVar: item})
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.WaitDelay = e.waitDelay
	if len(e.env) > 0 {
		cmd.Env = append(cmd.Environ(), e.env...)
	}

	var stdout bytes.Buffer
	stderr := &tailBuffer{max: maxStderrBytes}
	cmd.Stdout = &stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w (%v)", ctxErr, err)
		} else if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return nil, &domain.OpError{
			Op:   "execenum.run",
			Kind: domain.KindEnumeration,
			Path: item,
			Err:  err,
		}
	}

	return ParseLines(&stdout)
}

// ParseLines reads one hostname per line, canonicalizes it and drops blank,
// wildcard and malformed lines. Duplicates are removed, order is preserved.
func ParseLines(r *bytes.Buffer) ([]string, error) {
	seen := map[string]struct{}{}
	out := []string{}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		it, ok := domain.CleanItem(sc.Text())
		if !ok {
			continue
		}
		if _, dup := seen[it]; dup {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	if err := sc.Err(); err != nil {
		return nil, &domain.OpError{
			Op:   "execenum.parse",
			Kind: domain.KindEnumeration,
			Err:  err,
		}
	}
	return out, nil
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	max int
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.max {
		t.buf = t.buf[len(t.buf)-t.max:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string { return string(t.buf) }
