package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/1ikeadragon/subconverge/internal/domain"
	"github.com/1ikeadragon/subconverge/internal/ports"
)

// --- fakes shared by the dispatcher and enumerate tests ---

// mapEnumerator returns a fixed closure: m[item], or fail[item] as an error.
type mapEnumerator struct {
	mu    sync.Mutex
	m     map[string][]string
	fail  map[string]error
	calls []string
}

func (e *mapEnumerator) Enumerate(_ context.Context, item string) ([]string, error) {
	e.mu.Lock()
	e.calls = append(e.calls, item)
	e.mu.Unlock()

	if err, ok := e.fail[item]; ok {
		return nil, err
	}
	return e.m[item], nil
}

func (e *mapEnumerator) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

func (e *mapEnumerator) callsFor(item string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, c := range e.calls {
		if c == item {
			n++
		}
	}
	return n
}

// gaugeEnumerator records the peak number of concurrent calls.
type gaugeEnumerator struct {
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func (e *gaugeEnumerator) Enumerate(ctx context.Context, item string) ([]string, error) {
	n := e.inFlight.Add(1)
	defer e.inFlight.Add(-1)
	for {
		p := e.peak.Load()
		if n <= p || e.peak.CompareAndSwap(p, n) {
			break
		}
	}
	select {
	case <-time.After(e.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return []string{"x." + item}, nil
}

// blockingEnumerator never returns until its context is done.
type blockingEnumerator struct{}

func (blockingEnumerator) Enumerate(ctx context.Context, _ string) ([]string, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// flakyEnumerator fails the first failures calls, then succeeds.
type flakyEnumerator struct {
	failures int32
	calls    atomic.Int32
}

func (e *flakyEnumerator) Enumerate(_ context.Context, item string) ([]string, error) {
	if e.calls.Add(1) <= e.failures {
		return nil, errors.New("transient")
	}
	return []string{"ok." + item}, nil
}

type allAliveProber struct {
	got []string
}

func (p *allAliveProber) Probe(_ context.Context, items []string) ([]domain.ProbeResult, error) {
	p.got = append([]string(nil), items...)
	out := make([]domain.ProbeResult, 0, len(items))
	for _, it := range items {
		out = append(out, domain.ProbeResult{Host: it, URL: "https://" + it, StatusCode: 200, Alive: true})
	}
	return out, nil
}

type errProber struct{ err error }

func (p errProber) Probe(_ context.Context, _ []string) ([]domain.ProbeResult, error) {
	return nil, p.err
}

// ctxProber reports the context state it was called with.
type ctxProber struct {
	called bool
	ctxErr error
}

func (p *ctxProber) Probe(ctx context.Context, items []string) ([]domain.ProbeResult, error) {
	p.called = true
	p.ctxErr = ctx.Err()
	return []domain.ProbeResult{}, nil
}

type fakeStore struct {
	saved  bool
	report domain.Report
	sets   domain.Artifacts
	err    error
}

func (s *fakeStore) Save(report domain.Report, sets domain.Artifacts) (string, map[string]string, error) {
	if s.err != nil {
		return "", nil, s.err
	}
	s.saved = true
	s.report = report
	s.sets = sets
	return "run-123", map[string]string{"raw": "raw.txt"}, nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recordingSink) Emit(ev domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingSink) kinds(kind domain.EventKind) []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Event
	for _, ev := range r.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

var (
	_ ports.Enumerator    = (*mapEnumerator)(nil)
	_ ports.Enumerator    = (*gaugeEnumerator)(nil)
	_ ports.Enumerator    = blockingEnumerator{}
	_ ports.Enumerator    = (*flakyEnumerator)(nil)
	_ ports.Prober        = (*allAliveProber)(nil)
	_ ports.Prober        = errProber{}
	_ ports.Prober        = (*ctxProber)(nil)
	_ ports.ArtifactStore = (*fakeStore)(nil)
	_ ports.ProgressSink  = (*recordingSink)(nil)
)
