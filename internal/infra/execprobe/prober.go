// Package execprobe adapts an external liveness prober (httpx by default) to
// ports.Prober. Items are written to the tool's stdin, one per line; every
// line the tool prints is an alive host, either as plain text or as a JSON
// object whose fields are picked with JSONPath.
package execprobe

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os/exec"
	"strings"
	"time"

	"github.com/1ikeadragon/subconverge/internal/app/extract"
	"github.com/1ikeadragon/subconverge/internal/domain"
	"github.com/1ikeadragon/subconverge/internal/ports"
)

const maxStderrBytes = 2048

type Prober struct {
	argv      []string
	fields    domain.ProbeFields
	waitDelay time.Duration
	log       *slog.Logger
}

type Option func(*Prober)

func WithLogger(l *slog.Logger) Option {
	return func(p *Prober) {
		if l != nil {
			p.log = l
		}
	}
}

func WithWaitDelay(d time.Duration) Option {
	return func(p *Prober) { p.waitDelay = d }
}

func New(argv []string, fields domain.ProbeFields, opts ...Option) (*Prober, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return nil, &domain.OpError{
			Op:   "execprobe.new",
			Kind: domain.KindInvalidConfig,
			Err:  errors.New("probe command is empty"),
		}
	}
	p := &Prober{
		argv:      append([]string(nil), argv...),
		fields:    fields,
		waitDelay: 2 * time.Second,
		log:       slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

var _ ports.Prober = (*Prober)(nil)

// Available reports whether the tool binary can be found in PATH.
func (p *Prober) Available() error {
	if _, err := exec.LookPath(p.argv[0]); err != nil {
		return &domain.OpError{
			Op:   "execprobe.lookpath",
			Kind: domain.KindNotFound,
			Path: p.argv[0],
			Err:  err,
		}
	}
	return nil
}

// Probe runs the tool once over all items. Lines parsed before a tool failure
// are returned together with the error.
func (p *Prober) Probe(ctx context.Context, items []string) ([]domain.ProbeResult, error) {
	if len(items) == 0 {
		return []domain.ProbeResult{}, nil
	}

	cmd := exec.CommandContext(ctx, p.argv[0], p.argv[1:]...)
	cmd.WaitDelay = p.waitDelay
	cmd.Stdin = strings.NewReader(strings.Join(items, "\n") + "\n")

	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, p.wrap(err)
	}
	if err := cmd.Start(); err != nil {
		return nil, p.wrap(err)
	}

	results := []domain.ProbeResult{}
	sc := bufio.NewScanner(stdout)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		r, ok := p.parseLine(line)
		if !ok {
			p.log.Debug("probe.unparsed", "line", truncate(line, 200))
			continue
		}
		results = append(results, r)
	}
	scanErr := sc.Err()

	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w (%v)", ctxErr, err)
		} else if msg := strings.TrimSpace(tail(stderr.String(), maxStderrBytes)); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return results, p.wrap(err)
	}
	if scanErr != nil {
		return results, p.wrap(scanErr)
	}
	return results, nil
}

func (p *Prober) parseLine(line string) (domain.ProbeResult, bool) {
	if !strings.HasPrefix(line, "{") {
		host := hostOf(strings.Fields(line)[0])
		if host == "" {
			return domain.ProbeResult{}, false
		}
		r := domain.ProbeResult{Host: host, Alive: true}
		if strings.Contains(line, "://") {
			r.URL = strings.Fields(line)[0]
		}
		return r, true
	}

	vals, _ := extract.Apply([]byte(line), map[string]string{
		"host":   p.fields.Host,
		"url":    p.fields.URL,
		"status": p.fields.Status,
		"title":  p.fields.Title,
		"tech":   p.fields.Tech,
	})

	r := domain.ProbeResult{
		Host:       hostOf(vals.String("host")),
		URL:        vals.String("url"),
		StatusCode: vals.Int("status"),
		Title:      vals.String("title"),
		Tech:       vals.Strings("tech"),
		Alive:      true,
	}
	if r.Host == "" {
		r.Host = hostOf(r.URL)
	}
	if r.Host == "" {
		return domain.ProbeResult{}, false
	}
	return r, true
}

// hostOf accepts a bare host, host:port or URL and returns the lower-case host.
func hostOf(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func (p *Prober) wrap(err error) error {
	return &domain.OpError{
		Op:   "execprobe.run",
		Kind: domain.KindProbe,
		Path: p.argv[0],
		Err:  err,
	}
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
