// Package httpprobe is the built-in liveness prober. It needs no external
// binary: every item gets a GET over https and then http, and the first
// response of any status marks the host alive.
package httpprobe

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/gammazero/workerpool"
	wappalyzer "github.com/projectdiscovery/wappalyzergo"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/1ikeadragon/subconverge/internal/domain"
	"github.com/1ikeadragon/subconverge/internal/ports"
)

const defaultMaxBodyBytes = 256 * 1024 // 256KB

// Fingerprinter maps a response to the technologies it reveals.
type Fingerprinter interface {
	Fingerprint(headers map[string][]string, body []byte) map[string]struct{}
}

// NewWappalyzer loads the embedded wappalyzer fingerprint database.
func NewWappalyzer() (Fingerprinter, error) {
	w, err := wappalyzer.New()
	if err != nil {
		return nil, &domain.OpError{Op: "httpprobe.wappalyzer", Kind: domain.KindExecution, Err: err}
	}
	return w, nil
}

type Prober struct {
	client       *http.Client
	concurrency  int
	limiter      *rate.Limiter
	maxBodyBytes int64
	schemes      []string
	fp           Fingerprinter
	log          *slog.Logger
}

type Option func(*Prober)

func WithConcurrency(n int) Option {
	return func(p *Prober) { p.concurrency = n }
}

// WithRateLimit caps requests per second across all workers. Zero disables it.
func WithRateLimit(perSecond float64) Option {
	return func(p *Prober) {
		if perSecond > 0 {
			p.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

func WithMaxBodyBytes(n int64) Option {
	return func(p *Prober) { p.maxBodyBytes = n }
}

// WithSchemes sets the order in which schemes are tried.
func WithSchemes(schemes ...string) Option {
	return func(p *Prober) { p.schemes = schemes }
}

func WithFingerprinter(f Fingerprinter) Option {
	return func(p *Prober) { p.fp = f }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Prober) {
		if l != nil {
			p.log = l
		}
	}
}

func New(client *http.Client, opts ...Option) *Prober {
	p := &Prober{
		client:       client,
		concurrency:  50,
		maxBodyBytes: defaultMaxBodyBytes,
		schemes:      []string{"https", "http"},
		log:          slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.concurrency < 1 {
		p.concurrency = 1
	}
	return p
}

var _ ports.Prober = (*Prober)(nil)

// Probe returns one result per item, sorted by host. Hosts that never
// answered are reported with Alive=false. A cancelled ctx yields the
// results gathered so far plus a probe error.
func (p *Prober) Probe(ctx context.Context, items []string) ([]domain.ProbeResult, error) {
	if len(items) == 0 {
		return []domain.ProbeResult{}, nil
	}

	workers := p.concurrency
	if workers > len(items) {
		workers = len(items)
	}

	var (
		mu      sync.Mutex
		results = make([]domain.ProbeResult, 0, len(items))
	)

	wp := workerpool.New(workers)
	for _, it := range items {
		item := it
		wp.Submit(func() {
			if ctx.Err() != nil {
				return
			}
			r := p.probeOne(ctx, item)
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
		})
	}
	wp.StopWait()

	sort.Slice(results, func(i, j int) bool { return results[i].Host < results[j].Host })

	if err := ctx.Err(); err != nil {
		return results, &domain.OpError{Op: "httpprobe.probe", Kind: domain.KindProbe, Err: err}
	}
	return results, nil
}

func (p *Prober) probeOne(ctx context.Context, host string) domain.ProbeResult {
	res := domain.ProbeResult{Host: strings.ToLower(host)}

	for _, scheme := range p.schemes {
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return res
			}
		}

		target := scheme + "://" + host + "/"
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			p.log.Debug("probe.request", "host", host, "err", err.Error())
			return res
		}
		req.Header.Set("User-Agent", "subconverge")

		resp, err := p.client.Do(req)
		if err != nil {
			p.log.Debug("probe.miss", "url", target, "err", err.Error())
			continue
		}

		body, _, readErr := readBounded(resp.Body, p.maxBodyBytes)
		resp.Body.Close()
		if readErr != nil {
			p.log.Debug("probe.body", "url", target, "err", readErr.Error())
		}

		res.Alive = true
		res.URL = target
		res.StatusCode = resp.StatusCode
		res.Title = extractTitle(body)
		if p.fp != nil {
			res.Tech = techList(p.fp.Fingerprint(resp.Header, body))
		}
		p.log.Debug("probe.hit", "url", target, "status", resp.StatusCode)
		return res
	}
	return res
}

func readBounded(r io.Reader, maxBytes int64) ([]byte, bool, error) {
	lim := io.LimitReader(r, maxBytes+1)
	b, err := io.ReadAll(lim)
	if err != nil {
		return b, false, err
	}
	if int64(len(b)) > maxBytes {
		return b[:maxBytes], true, nil
	}
	return b, false, nil
}

// extractTitle returns the first <title> text with whitespace collapsed.
func extractTitle(body []byte) string {
	z := html.NewTokenizer(bytes.NewReader(body))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			name, _ := z.TagName()
			if string(name) != "title" {
				continue
			}
			if z.Next() != html.TextToken {
				return ""
			}
			return strings.Join(strings.Fields(string(z.Text())), " ")
		}
	}
}

func techList(m map[string]struct{}) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
