// Package console prints run progress as plain colored lines, with a
// per-round progress bar when the output is a terminal.
package console

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/1ikeadragon/subconverge/internal/domain"
	"github.com/1ikeadragon/subconverge/internal/ports"
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

type palette struct {
	info  *color.Color
	ok    *color.Color
	warn  *color.Color
	fail  *color.Color
	count *color.Color
	faint *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		info:  color.New(color.FgCyan),
		ok:    color.New(color.FgGreen, color.Bold),
		warn:  color.New(color.FgYellow),
		fail:  color.New(color.FgRed),
		count: color.New(color.FgGreen),
		faint: color.New(color.Faint),
	}
	for _, c := range []*color.Color{p.info, p.ok, p.warn, p.fail, p.count, p.faint} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Reporter is a ports.ProgressSink writing to a single stream, normally
// stderr. It is safe for concurrent Emit calls.
type Reporter struct {
	mu  sync.Mutex
	w   io.Writer
	c   palette
	bar *progressbar.ProgressBar

	useColor bool
	showBar  bool
	verbose  bool
}

type Option func(*Reporter)

func WithColor(enabled bool) Option {
	return func(r *Reporter) { r.useColor = enabled }
}

// WithProgressBar draws a bar per round instead of one line per failure.
func WithProgressBar(enabled bool) Option {
	return func(r *Reporter) { r.showBar = enabled }
}

// WithVerbose prints every finished item.
func WithVerbose(enabled bool) Option {
	return func(r *Reporter) { r.verbose = enabled }
}

func New(w io.Writer, opts ...Option) *Reporter {
	r := &Reporter{w: w, useColor: true}
	for _, opt := range opts {
		opt(r)
	}
	r.c = newPalette(r.useColor)
	return r
}

var _ ports.ProgressSink = (*Reporter)(nil)

func (r *Reporter) Emit(ev domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev.Kind {
	case domain.EventPhase:
		r.line(r.c.info.Sprint("phase"), "%s", ev.Phase)

	case domain.EventRoundStart:
		r.line(r.c.info.Sprintf("round %d", ev.Round), "querying %s items (frontier %s)",
			r.c.count.Sprint(ev.Pending), r.c.count.Sprint(ev.Total))
		if r.showBar && ev.Pending > 0 {
			r.bar = progressbar.NewOptions(ev.Pending,
				progressbar.OptionSetWriter(r.w),
				progressbar.OptionSetDescription(fmt.Sprintf("round %d", ev.Round)),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(30),
				progressbar.OptionSetPredictTime(true),
				progressbar.OptionThrottle(65*time.Millisecond),
				progressbar.OptionClearOnFinish(),
				progressbar.OptionEnableColorCodes(r.useColor),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
			)
		}

	case domain.EventItemDone:
		if r.bar != nil {
			_ = r.bar.Add(1)
			return
		}
		if ev.Err != nil {
			r.line(r.c.fail.Sprint("fail"), "%s: %v", ev.Item, ev.Err)
		} else if r.verbose {
			r.line(r.c.faint.Sprint("done"), "%s +%d", ev.Item, ev.Found)
		}

	case domain.EventRoundDone:
		r.finishBar()
		s := ev.Stats
		msg := fmt.Sprintf("+%s new, total %s in %s",
			r.c.count.Sprint(s.New()), r.c.count.Sprint(ev.Total), s.Duration.Round(time.Millisecond))
		if s.Failed > 0 {
			msg += r.c.warn.Sprintf(" (%d failed)", s.Failed)
		}
		r.line(r.c.info.Sprintf("round %d", ev.Round), "%s", msg)

	case domain.EventProbeStart:
		r.line(r.c.info.Sprint("probe"), "probing %s hosts", r.c.count.Sprint(ev.Total))

	case domain.EventProbeDone:
		if ev.Err != nil {
			r.line(r.c.warn.Sprint("probe"), "failed, alive set is empty: %v", ev.Err)
			return
		}
		r.line(r.c.info.Sprint("probe"), "%s alive", r.c.count.Sprint(ev.Total))

	case domain.EventRunFinished:
		if ev.Report != nil {
			r.summary(*ev.Report)
		}
	}
}

func (r *Reporter) finishBar() {
	if r.bar == nil {
		return
	}
	_ = r.bar.Finish()
	r.bar = nil
}

func (r *Reporter) summary(rep domain.Report) {
	status := r.c.ok.Sprint("done")
	if rep.Interrupted {
		status = r.c.warn.Sprint("interrupted")
	}
	r.line(status, "%s: %d round(s), stop=%s, raw %s, clean %s, alive %s",
		rep.Domain, len(rep.Rounds), rep.StopReason,
		r.c.count.Sprint(rep.RawCount), r.c.count.Sprint(rep.CleanCount), r.c.count.Sprint(rep.AliveCount))

	keys := make([]string, 0, len(rep.Paths))
	for k := range rep.Paths {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(r.w, "  %s %s\n", r.c.faint.Sprintf("%-6s", k), rep.Paths[k])
	}
}

// Error prints a fatal error line.
func (r *Reporter) Error(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finishBar()
	r.line(r.c.fail.Sprint("error"), "%v", err)
}

func (r *Reporter) line(tag, format string, args ...any) {
	fmt.Fprintf(r.w, "[%s] %s\n", tag, fmt.Sprintf(format, args...))
}
