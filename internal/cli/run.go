package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/1ikeadragon/subconverge/internal/domain"
	"github.com/1ikeadragon/subconverge/internal/infra/logger"
	"github.com/1ikeadragon/subconverge/internal/ports"
	"github.com/1ikeadragon/subconverge/internal/ui/console"
	"github.com/1ikeadragon/subconverge/internal/ui/tui"
	"github.com/1ikeadragon/subconverge/internal/usecase"
)

func runEnumerate(cmd *cobra.Command, target string, f rootFlags) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	stderr := cmd.ErrOrStderr()
	stdout := cmd.OutOrStdout()

	// Logging lives under the output dir, which may come from the config file.
	cfg, cfgPath, err := resolveConfig(cmd, f)
	if err != nil {
		return err
	}
	if abs, aerr := filepath.Abs(cfg.Output.Dir); aerr == nil {
		cfg.Output.Dir = abs
	}

	cleanup, lerr := logger.Setup(logger.Config{Root: cfg.Output.Dir, Debug: f.debug})
	if cleanup != nil {
		defer func() { _ = cleanup() }()
	}
	if lerr != nil {
		fmt.Fprintf(stderr, "warning: logging disabled: %v\n", lerr)
	}
	log := logger.L()

	ws, err := loadWorkspace(cfg, cfgPath, log)
	if err != nil {
		log.Error("setup.failed", "err", err.Error())
		return err
	}
	log.Info("run.start",
		"domain", target,
		"config", ws.cfgPath,
		"concurrency", ws.cfg.Enum.Concurrency,
		"prober", string(ws.cfg.Probe.Kind),
		"out", ws.cfg.Output.Dir,
	)

	execute := func(ctx context.Context, sink ports.ProgressSink) (domain.Report, error) {
		uc, err := usecase.NewEnumerate(ws.enum, ws.prober, ws.store, ws.cfg,
			usecase.WithLogger(logger.Component("enumerate")),
			usecase.WithProgress(sink),
		)
		if err != nil {
			return domain.Report{}, err
		}
		report, _, err := uc.Execute(ctx, target)
		return report, err
	}

	if f.tui {
		_, err := tui.Run(ctx, tui.Deps{
			Domain:  target,
			Execute: execute,
			Logger:  log,
			Debug:   f.debug,
		})
		return err
	}

	errFile, _ := stderr.(*os.File)
	tty := console.IsTerminal(errFile)
	reporter := console.New(stderr,
		console.WithColor(tty && !f.noColor),
		console.WithProgressBar(tty),
		console.WithVerbose(f.debug),
	)

	report, err := execute(ctx, reporter)
	if err != nil && domain.KindOf(err).Fatal() && report.Paths == nil {
		reporter.Error(err)
		if p := logger.Path(); p != "" {
			fmt.Fprintf(stderr, "log: %s\n", p)
		}
		return err
	}

	printAlive(stdout, report)
	return err
}

// printAlive writes the alive set to stdout, one host per line, so the
// command can feed a pipeline.
func printAlive(w io.Writer, report domain.Report) {
	for _, h := range domain.AliveHosts(report.Probes) {
		fmt.Fprintln(w, h)
	}
}
