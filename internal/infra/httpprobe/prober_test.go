package httpprobe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/1ikeadragon/subconverge/internal/domain"
	"github.com/1ikeadragon/subconverge/internal/infra/httpclient"
)

type stubFingerprinter struct{}

func (stubFingerprinter) Fingerprint(headers map[string][]string, _ []byte) map[string]struct{} {
	out := map[string]struct{}{}
	if v := headers["Server"]; len(v) > 0 {
		out[v[0]] = struct{}{}
	}
	return out
}

var _ Fingerprinter = stubFingerprinter{}

func hostOf(t *testing.T, raw string) string {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u.Host
}

func TestProbe_FallsBackToHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Server", "nginx")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("<html><head><TITLE>\n Hello &amp; bye </TITLE></head></html>"))
	}))
	defer srv.Close()

	host := hostOf(t, srv.URL)
	p := New(httpclient.New(httpclient.DefaultConfig()), WithFingerprinter(stubFingerprinter{}))

	got, err := p.Probe(context.Background(), []string{host})
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one result, got %+v", got)
	}
	r := got[0]
	if !r.Alive || r.StatusCode != http.StatusForbidden {
		t.Fatalf("expected alive 403, got %+v", r)
	}
	if r.URL != "http://"+host+"/" {
		t.Fatalf("expected http fallback url, got %q", r.URL)
	}
	if r.Title != "Hello & bye" {
		t.Fatalf("unexpected title %q", r.Title)
	}
	if len(r.Tech) != 1 || r.Tech[0] != "nginx" {
		t.Fatalf("unexpected tech %v", r.Tech)
	}
}

func TestProbe_PrefersHTTPS(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	host := hostOf(t, srv.URL)
	p := New(httpclient.New(httpclient.DefaultConfig()))

	got, err := p.Probe(context.Background(), []string{host})
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if len(got) != 1 || !got[0].Alive || !strings.HasPrefix(got[0].URL, "https://") {
		t.Fatalf("expected https hit, got %+v", got)
	}
}

func TestProbe_DeadHostReportedNotAlive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	host := hostOf(t, srv.URL)
	srv.Close()

	cfg := httpclient.DefaultConfig()
	cfg.Timeout = time.Second
	p := New(httpclient.New(cfg))

	got, err := p.Probe(context.Background(), []string{host})
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if len(got) != 1 || got[0].Alive {
		t.Fatalf("expected one dead result, got %+v", got)
	}
	if len(domain.AliveHosts(got)) != 0 {
		t.Fatalf("dead host must not be in alive set")
	}
}

func TestProbe_SortedByHost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	defer srv.Close()

	_, port, _ := strings.Cut(hostOf(t, srv.URL), ":")
	items := []string{"localhost:" + port, "127.0.0.1:" + port}

	p := New(httpclient.New(httpclient.DefaultConfig()), WithSchemes("http"), WithConcurrency(4))
	got, err := p.Probe(context.Background(), items)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if len(got) != 2 || got[0].Host != "127.0.0.1:"+port || got[1].Host != "localhost:"+port {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestProbe_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(httpclient.New(httpclient.DefaultConfig()))
	_, err := p.Probe(ctx, []string{"a.example.com"})
	if !domain.IsKind(err, domain.KindProbe) {
		t.Fatalf("expected KindProbe, got %v", err)
	}
}

func TestReadBounded_Truncates(t *testing.T) {
	b, truncated, err := readBounded(strings.NewReader(strings.Repeat("a", 10)), 4)
	if err != nil {
		t.Fatalf("readBounded: %v", err)
	}
	if !truncated || len(b) != 4 {
		t.Fatalf("expected 4 bytes truncated, got %d %v", len(b), truncated)
	}
}

func TestExtractTitle_Missing(t *testing.T) {
	if got := extractTitle([]byte("<html></html>")); got != "" {
		t.Fatalf("expected empty title, got %q", got)
	}
}
