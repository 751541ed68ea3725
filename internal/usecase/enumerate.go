package usecase

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/1ikeadragon/subconverge/internal/app/hostname"
	"github.com/1ikeadragon/subconverge/internal/domain"
	"github.com/1ikeadragon/subconverge/internal/ports"
)

// Enumerate runs the full pipeline for one root domain: seed, expand to a
// fixed point, post-process, probe and persist.
type Enumerate struct {
	enum       ports.Enumerator
	dispatcher *Dispatcher
	post       *PostProcessor
	store      ports.ArtifactStore
	progress   ports.ProgressSink
	log        *slog.Logger

	maxRounds   int
	requireSeed bool
	scopeFilter bool
	grace       time.Duration
	now         func() time.Time
}

type EnumerateOption func(*Enumerate)

func WithLogger(l *slog.Logger) EnumerateOption {
	return func(uc *Enumerate) {
		if l != nil {
			uc.log = l
		}
	}
}

func WithProgress(p ports.ProgressSink) EnumerateOption {
	return func(uc *Enumerate) { uc.progress = p }
}

// WithNow is useful for tests.
func WithNow(now func() time.Time) EnumerateOption {
	return func(uc *Enumerate) { uc.now = now }
}

// NewEnumerate wires the use case from cfg. store may be nil to skip
// persistence; prober may be nil to skip probing.
func NewEnumerate(enum ports.Enumerator, prober ports.Prober, store ports.ArtifactStore, cfg domain.Config, opts ...EnumerateOption) (*Enumerate, error) {
	norm, err := domain.NewNormalizer(cfg.Post.StripPattern)
	if err != nil {
		return nil, err
	}

	uc := &Enumerate{
		enum:        enum,
		store:       store,
		log:         slog.New(slog.NewJSONHandler(io.Discard, nil)),
		maxRounds:   cfg.Enum.MaxRounds,
		requireSeed: cfg.Enum.RequireSeed,
		scopeFilter: cfg.Post.ScopeFilter,
		grace:       cfg.Probe.InterruptGrace,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}

	uc.dispatcher = NewDispatcher(enum,
		WithConcurrency(cfg.Enum.Concurrency),
		WithCallTimeout(cfg.Enum.Timeout),
		WithRetries(cfg.Enum.Retries, cfg.Enum.RetryDelay),
		WithRateLimit(cfg.Enum.RateLimit),
		WithDispatchLogger(uc.log),
		WithDispatchProgress(uc.progress),
	)
	uc.post = NewPostProcessor(norm, prober, cfg.Post.ScopeFilter, uc.log)
	return uc, nil
}

// Execute runs the pipeline. Only a missing or invalid domain and an empty
// seed are fatal. On cancellation the items merged so far are still
// post-processed and saved, and the context error is returned with the report.
func (uc *Enumerate) Execute(ctx context.Context, rootDomain string) (domain.Report, domain.Artifacts, error) {
	report := domain.Report{
		Domain:    rootDomain,
		StartedAt: uc.now(),
		Rounds:    []domain.RoundStats{},
	}

	root, err := hostname.Canonical(rootDomain)
	if err != nil {
		report.EndedAt = uc.now()
		return report, domain.Artifacts{}, err
	}
	report.Domain = root
	if apex, aerr := hostname.Apex(root); aerr == nil && apex != root {
		uc.log.Info("enumerate.subtree", "root", root, "apex", apex)
	}

	if err := ctx.Err(); err != nil {
		report.EndedAt = uc.now()
		return report, domain.Artifacts{}, err
	}

	seed, err := uc.seed(ctx, root)
	if err != nil {
		report.EndedAt = uc.now()
		return report, domain.Artifacts{}, err
	}
	report.SeedSize = len(seed)

	frontier, gate := uc.converge(ctx, root, seed, &report)
	report.StopReason = gate.Reason()
	report.Interrupted = gate.Reason() == domain.StopInterrupted

	if report.Interrupted {
		uc.log.Info("enumerate.interrupted", "kept", frontier.Len(), "grace", uc.grace.String())
	}
	postCtx, stopPost := uc.postContext(ctx)
	defer stopPost()

	sets := domain.Artifacts{Raw: frontier.Items()}
	sets.Clean = uc.post.Clean(root, sets.Raw)

	uc.emit(domain.Event{Kind: domain.EventProbeStart, Total: len(sets.Clean)})
	probes, perr := uc.post.Probe(postCtx, sets.Clean)
	report.ProbeFailed = perr != nil
	report.Probes = probes
	sets.Alive = domain.AliveHosts(probes)
	uc.emit(domain.Event{Kind: domain.EventProbeDone, Total: len(sets.Alive), Err: perr})

	if ctx.Err() != nil && !report.Interrupted {
		report.Interrupted = true
		uc.log.Info("enumerate.interrupted", "phase", "probe", "grace", uc.grace.String())
	}

	report.RawCount = len(sets.Raw)
	report.CleanCount = len(sets.Clean)
	report.AliveCount = len(sets.Alive)
	report.EndedAt = uc.now()

	if uc.store != nil {
		id, paths, serr := uc.store.Save(report, sets)
		if serr != nil {
			uc.log.Error("artifacts.save_failed", "err", serr.Error())
			return report, sets, serr
		}
		report.ID = id
		report.Paths = paths
	}

	uc.log.Info("enumerate.finished",
		"domain", root,
		"rounds", len(report.Rounds),
		"raw", report.RawCount,
		"clean", report.CleanCount,
		"alive", report.AliveCount,
		"stop", string(report.StopReason),
	)
	uc.emit(domain.Event{Kind: domain.EventRunFinished, Report: &report})

	if report.Interrupted {
		return report, sets, ctx.Err()
	}
	return report, sets, nil
}

// postContext detaches post-processing from ctx. Once ctx is done the
// returned context lives for at most the interrupt grace period.
func (uc *Enumerate) postContext(ctx context.Context) (context.Context, func()) {
	postCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	stop := context.AfterFunc(ctx, func() {
		mu.Lock()
		defer mu.Unlock()
		timer = time.AfterFunc(uc.grace, cancel)
	})
	return postCtx, func() {
		stop()
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		cancel()
	}
}

func (uc *Enumerate) seed(ctx context.Context, root string) ([]string, error) {
	items, err := uc.dispatcher.call(ctx, root)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !uc.requireSeed {
			uc.log.Warn("seed.failed", "domain", root, "err", err.Error())
			return []string{}, nil
		}
		return nil, &domain.OpError{
			Op:   "usecase.seed",
			Kind: domain.KindEmptySeed,
			Path: root,
			Err:  err,
		}
	}

	items = uc.inScope(root, items)
	if len(items) == 0 && uc.requireSeed {
		return nil, &domain.OpError{
			Op:   "usecase.seed",
			Kind: domain.KindEmptySeed,
			Path: root,
			Err:  domain.ErrEmptySeed,
		}
	}
	return items, nil
}

// converge grows the frontier from seed until the gate closes. The root
// itself was already queried by the seed call and is never re-dispatched,
// even when a later round finds it.
func (uc *Enumerate) converge(ctx context.Context, root string, seed []string, report *domain.Report) (*domain.Frontier, *domain.Gate) {
	frontier := domain.NewFrontier()
	gate := domain.NewGate(uc.maxRounds)

	last := domain.PhaseIdle
	setPhase := func(p domain.Phase) {
		if p != last {
			last = p
			uc.emit(domain.Event{Kind: domain.EventPhase, Phase: p})
		}
	}

	frontier.Merge(seed)
	frontier.MarkDispatched([]string{root})
	setPhase(gate.Seed(frontier.Len()))

	for gate.Continue() {
		if ctx.Err() != nil {
			gate.Halt(domain.StopInterrupted)
			break
		}

		round := gate.Rounds() + 1
		pending := frontier.Pending()
		before := frontier.Len()
		start := uc.now()

		uc.emit(domain.Event{Kind: domain.EventRoundStart, Round: round, Pending: len(pending), Total: before})

		res := uc.dispatcher.Dispatch(ctx, round, pending)
		frontier.MarkDispatched(pending)
		after := frontier.Merge(uc.inScope(root, res.Found))

		stats := domain.RoundStats{
			Round:      round,
			Dispatched: res.Dispatched,
			Failed:     res.Failed,
			Found:      len(res.Found),
			SizeBefore: before,
			SizeAfter:  after,
			Duration:   uc.now().Sub(start),
		}
		report.Rounds = append(report.Rounds, stats)
		uc.log.Info("round.finished",
			"round", round,
			"dispatched", stats.Dispatched,
			"failed", stats.Failed,
			"new", stats.New(),
			"total", after,
		)
		uc.emit(domain.Event{Kind: domain.EventRoundDone, Round: round, Stats: stats, Total: after})

		if ctx.Err() != nil {
			gate.Halt(domain.StopInterrupted)
			break
		}
		setPhase(gate.Observe(after))
	}

	setPhase(gate.Phase())
	return frontier, gate
}

func (uc *Enumerate) inScope(root string, items []string) []string {
	if !uc.scopeFilter {
		return items
	}
	return domain.FilterScope(items, root)
}

func (uc *Enumerate) emit(ev domain.Event) {
	if uc.progress != nil {
		uc.progress.Emit(ev)
	}
}
