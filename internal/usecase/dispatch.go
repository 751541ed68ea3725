package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/gammazero/workerpool"
	"golang.org/x/time/rate"

	"github.com/1ikeadragon/subconverge/internal/domain"
	"github.com/1ikeadragon/subconverge/internal/ports"
)

// DispatchResult is the union of one round's successful enumeration calls.
type DispatchResult struct {
	Found      []string
	Dispatched int
	Failed     int
	Skipped    int
}

// Dispatcher fans an enumeration call out per item with at most Concurrency
// calls in flight. Per-item failures are logged and counted, never returned.
type Dispatcher struct {
	enum        ports.Enumerator
	concurrency int
	timeout     time.Duration
	retries     int
	retryDelay  time.Duration
	limiter     *rate.Limiter

	log      *slog.Logger
	progress ports.ProgressSink
}

type DispatchOption func(*Dispatcher)

func WithConcurrency(n int) DispatchOption {
	return func(d *Dispatcher) { d.concurrency = n }
}

// WithCallTimeout bounds each enumeration call. Zero disables the bound.
func WithCallTimeout(t time.Duration) DispatchOption {
	return func(d *Dispatcher) { d.timeout = t }
}

func WithRetries(n int, delay time.Duration) DispatchOption {
	return func(d *Dispatcher) {
		d.retries = n
		d.retryDelay = delay
	}
}

// WithRateLimit caps call starts per second across all workers. Zero disables it.
func WithRateLimit(perSecond float64) DispatchOption {
	return func(d *Dispatcher) {
		if perSecond > 0 {
			d.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		} else {
			d.limiter = nil
		}
	}
}

func WithDispatchLogger(l *slog.Logger) DispatchOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

func WithDispatchProgress(p ports.ProgressSink) DispatchOption {
	return func(d *Dispatcher) { d.progress = p }
}

func NewDispatcher(enum ports.Enumerator, opts ...DispatchOption) *Dispatcher {
	d := &Dispatcher{
		enum:        enum,
		concurrency: domain.DefaultConcurrency(),
		log:         slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.concurrency < 1 {
		d.concurrency = 1
	}
	if d.retries < 0 {
		d.retries = 0
	}
	return d
}

type itemResult struct {
	item    string
	found   []string
	err     error
	skipped bool
}

// Dispatch runs one round over items. The union is built by a single
// aggregator goroutine; workers only send on the results channel.
// Once ctx is done, queued items are skipped and results already received
// are still returned.
func (d *Dispatcher) Dispatch(ctx context.Context, round int, items []string) DispatchResult {
	if len(items) == 0 {
		return DispatchResult{Found: []string{}}
	}

	workers := d.concurrency
	if workers > len(items) {
		workers = len(items)
	}

	results := make(chan itemResult, workers)
	done := make(chan DispatchResult, 1)

	go func() {
		union := map[string]struct{}{}
		var res DispatchResult
		for r := range results {
			if r.skipped {
				res.Skipped++
				continue
			}
			res.Dispatched++
			if r.err != nil {
				res.Failed++
				d.log.Warn("enumerate.failed", "round", round, "item", r.item, "err", r.err.Error())
			} else {
				for _, f := range r.found {
					union[f] = struct{}{}
				}
				d.log.Debug("enumerate.done", "round", round, "item", r.item, "found", len(r.found))
			}
			d.emit(domain.Event{
				Kind:  domain.EventItemDone,
				Round: round,
				Item:  r.item,
				Found: len(r.found),
				Err:   r.err,
			})
		}

		res.Found = make([]string, 0, len(union))
		for f := range union {
			res.Found = append(res.Found, f)
		}
		sort.Strings(res.Found)
		done <- res
	}()

	wp := workerpool.New(workers)
	for _, it := range items {
		item := it
		wp.Submit(func() {
			if ctx.Err() != nil {
				results <- itemResult{item: item, skipped: true}
				return
			}
			found, err := d.call(ctx, item)
			results <- itemResult{item: item, found: found, err: err}
		})
	}
	wp.StopWait()
	close(results)

	return <-done
}

func (d *Dispatcher) call(ctx context.Context, item string) ([]string, error) {
	var lastErr error
	for attempt := 0; attempt <= d.retries; attempt++ {
		if attempt > 0 {
			d.log.Debug("enumerate.retry", "item", item, "attempt", attempt, "err", lastErr.Error())
			select {
			case <-ctx.Done():
				return nil, wrapEnumErr(item, ctx.Err())
			case <-time.After(d.retryDelay):
			}
		}

		if d.limiter != nil {
			if err := d.limiter.Wait(ctx); err != nil {
				return nil, wrapEnumErr(item, err)
			}
		}

		callCtx, cancel := ctx, context.CancelFunc(func() {})
		if d.timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, d.timeout)
		}
		found, err := d.enum.Enumerate(callCtx, item)
		cancel()
		if err == nil {
			return found, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, wrapEnumErr(item, lastErr)
}

func (d *Dispatcher) emit(ev domain.Event) {
	if d.progress != nil {
		d.progress.Emit(ev)
	}
}

func wrapEnumErr(item string, err error) error {
	var oe *domain.OpError
	if errors.As(err, &oe) && oe.Kind == domain.KindEnumeration {
		return err
	}
	return &domain.OpError{
		Op:   "usecase.dispatch",
		Kind: domain.KindEnumeration,
		Path: item,
		Err:  err,
	}
}
