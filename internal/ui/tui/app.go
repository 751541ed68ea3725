// Package tui is the --tui dashboard: a single screen that follows one
// enumeration run from seed to the saved artifacts.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/1ikeadragon/subconverge/internal/domain"
)

const maxRecentRounds = 8

type model struct {
	theme Theme
	deps  Deps
	log   *slog.Logger

	sink   *ChannelSink
	runCtx context.Context
	cancel context.CancelFunc

	spinner  spinner.Model
	progress progress.Model
	width    int

	phase    domain.Phase
	round    int
	pending  int
	done     int
	failed   int
	frontier int
	lastItem string
	rounds   []domain.RoundStats

	probing    bool
	probeTotal int

	running      bool
	interrupting bool
	report       *domain.Report
	err          error
	startedAt    time.Time
	now          func() time.Time
}

// Run shows the dashboard until the run ends and the user quits. The first
// ctrl+c interrupts the run; partial results are still saved.
func Run(ctx context.Context, deps Deps) (domain.Report, error) {
	log := deps.Logger
	if log == nil {
		log = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sink := NewChannelSink(256)
	defer sink.Close()

	m := newModel(deps, sink, cancel, log)
	m.runCtx = runCtx

	p := tea.NewProgram(wrapSafe(m, log), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()

	var last model
	if sm, ok := final.(safeModel); ok {
		last = sm.m
	}
	if last.report == nil {
		if err == nil {
			err = last.err
		}
		if err == nil {
			err = context.Canceled
		}
		return domain.Report{Domain: deps.Domain}, err
	}
	if last.running {
		// Left before the run finished saving.
		return *last.report, context.Canceled
	}
	return *last.report, last.err
}

func newModel(deps Deps, sink *ChannelSink, cancel context.CancelFunc, log *slog.Logger) model {
	t := DefaultTheme()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = t.Accent

	return model{
		theme:    t,
		deps:     deps,
		log:      log,
		sink:     sink,
		cancel:   cancel,
		spinner:  sp,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		phase:    domain.PhaseIdle,
		running:  true,
		now:      time.Now,
	}
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, listenEvents(m.sink)}
	if m.deps.Execute != nil && m.runCtx != nil {
		_, run := startRunAsync(m.runCtx, m.deps, m.sink, m.log)
		cmds = append(cmds, run)
	}
	return tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = clampInt(msg.Width-20, 10, 60)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if !m.running {
				return m, tea.Quit
			}
			if !m.interrupting {
				m.interrupting = true
				m.log.Info("tui.interrupt")
				if m.cancel != nil {
					m.cancel()
				}
				return m, nil
			}
			// A second interrupt leaves without waiting for post-processing.
			return m, tea.Quit
		}
		return m, nil

	case eventMsg:
		m = m.apply(domain.Event(msg))
		return m, listenEvents(m.sink)

	case eventsClosedMsg:
		return m, nil

	case runDoneMsg:
		m.running = false
		m.err = msg.err
		if msg.report.Domain != "" {
			r := msg.report
			m.report = &r
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		pm, cmd := m.progress.Update(msg)
		if p, ok := pm.(progress.Model); ok {
			m.progress = p
		}
		return m, cmd
	}
	return m, nil
}

// apply folds one progress event into the dashboard state.
func (m model) apply(ev domain.Event) model {
	switch ev.Kind {
	case domain.EventPhase:
		m.phase = ev.Phase
		if m.startedAt.IsZero() {
			m.startedAt = m.now()
		}
	case domain.EventRoundStart:
		m.round = ev.Round
		m.pending = ev.Pending
		m.frontier = ev.Total
		m.done, m.failed = 0, 0
	case domain.EventItemDone:
		m.done++
		if ev.Err != nil {
			m.failed++
		}
		m.lastItem = ev.Item
	case domain.EventRoundDone:
		m.frontier = ev.Total
		m.rounds = append(m.rounds, ev.Stats)
		if len(m.rounds) > maxRecentRounds {
			m.rounds = m.rounds[len(m.rounds)-maxRecentRounds:]
		}
	case domain.EventProbeStart:
		m.probing = true
		m.probeTotal = ev.Total
	case domain.EventProbeDone:
		m.probing = false
	case domain.EventRunFinished:
		if ev.Report != nil {
			r := *ev.Report
			m.report = &r
		}
	}
	return m
}

func (m model) View() string {
	wrap := lipgloss.NewStyle().Padding(1, 2)

	title := "subconverge"
	if m.deps.Domain != "" {
		title += "  " + m.deps.Domain
	}
	header := m.theme.Title.Render(title) + "\n" +
		m.theme.Subtitle.Render("expand until the frontier stops growing") + "\n"

	var b strings.Builder
	b.WriteString(m.statusLine())
	b.WriteString("\n\n")

	if m.round > 0 && m.running && !m.probing {
		pct := 0.0
		if m.pending > 0 {
			pct = float64(m.done) / float64(m.pending)
		}
		b.WriteString(fmt.Sprintf("round %d  %s  %d/%d", m.round, m.progress.ViewAs(pct), m.done, m.pending))
		if m.failed > 0 {
			b.WriteString(m.theme.Error.Render(fmt.Sprintf("  %d failed", m.failed)))
		}
		b.WriteString("\n")
		if m.lastItem != "" {
			b.WriteString(m.theme.Help.Render("last: " + clampString(m.lastItem, 60)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(m.roundsTable())

	if m.report != nil && !m.running {
		b.WriteString("\n")
		b.WriteString(renderSummary(m.theme, *m.report))
	}
	if m.err != nil && !m.interruptedOnly() {
		b.WriteString("\n")
		b.WriteString(m.theme.Error.Render("✗ " + userMessage(m.err)))
		b.WriteString("\n")
	}

	help := "ctrl+c interrupt"
	if m.interrupting && m.running {
		help = "ctrl+c again to leave without saving"
	}
	if !m.running {
		help = "q quit"
	}

	return wrap.Render(header + "\n" + m.theme.Card.Render(b.String()) + "\n" + m.theme.Help.Render(help))
}

func (m model) statusLine() string {
	switch {
	case !m.running && m.err != nil && !m.interruptedOnly():
		return m.theme.Error.Render("failed")
	case !m.running:
		return m.theme.OK.Render("✓ done")
	case m.interrupting:
		return m.spinner.View() + " " + m.theme.Warn.Render("interrupted, saving partial results")
	case m.probing:
		return m.spinner.View() + fmt.Sprintf(" probing %d hosts", m.probeTotal)
	}

	phase := string(m.phase)
	if m.phase == domain.PhaseIdle {
		phase = "seeding"
	}
	elapsed := ""
	if !m.startedAt.IsZero() {
		elapsed = "  " + m.now().Sub(m.startedAt).Round(time.Second).String()
	}
	return m.spinner.View() + " " + phase + fmt.Sprintf("  frontier %d", m.frontier) + m.theme.Help.Render(elapsed)
}

func (m model) roundsTable() string {
	if len(m.rounds) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.theme.Help.Render(fmt.Sprintf("%-6s %8s %7s %6s %7s %9s", "round", "queried", "failed", "new", "total", "took")))
	b.WriteString("\n")
	for _, r := range m.rounds {
		b.WriteString(fmt.Sprintf("%-6d %8d %7d %6d %7d %9s\n",
			r.Round, r.Dispatched, r.Failed, r.New(), r.SizeAfter, r.Duration.Round(time.Millisecond)))
	}
	return b.String()
}

// interruptedOnly is true when the run was cut short by the user but its
// partial results were saved.
func (m model) interruptedOnly() bool {
	return m.report != nil && m.report.Interrupted && errors.Is(m.err, context.Canceled)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
