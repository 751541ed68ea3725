package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/1ikeadragon/subconverge/internal/buildinfo"
	"github.com/1ikeadragon/subconverge/internal/domain"
)

const exitInterrupted = 130

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cmd := newRootCmd()
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if errors.Is(err, context.Canceled) {
		return exitInterrupted
	}
	return 1
}

type rootFlags struct {
	config string
	out    string

	concurrency    int
	timeout        time.Duration
	retries        int
	rate           float64
	maxRounds      int
	strip          string
	prober         string
	allowEmptySeed bool

	tui     bool
	noColor bool
	debug   bool
}

func newRootCmd() *cobra.Command {
	var f rootFlags
	def := domain.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "subconverge <domain>",
		Short: "Enumerate subdomains until the result stops growing, then clean and probe them",
		Long: "subconverge runs an enumeration tool on a domain, then on every new name it\n" +
			"finds, round after round, until a round adds nothing. The union is deduplicated,\n" +
			"filtered to the domain and checked for liveness.",
		Version:      buildinfo.Version,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return &domain.OpError{
					Op:   "cli.root",
					Kind: domain.KindMissingInput,
					Err:  errors.New("usage: subconverge <domain>: " + domain.ErrMissingInput.Error()),
				}
			}
			return runEnumerate(cmd, args[0], f)
		},
	}
	cmd.SetVersionTemplate(buildinfo.String() + "\n")

	fl := cmd.Flags()
	fl.IntVarP(&f.concurrency, "concurrency", "c", def.Enum.Concurrency, "maximum enumeration calls in flight")
	fl.DurationVar(&f.timeout, "timeout", def.Enum.Timeout, "per-call enumeration timeout (0 disables)")
	fl.IntVar(&f.retries, "retries", def.Enum.Retries, "retries per failed enumeration call")
	fl.Float64Var(&f.rate, "rate", def.Enum.RateLimit, "maximum enumeration calls started per second (0 = unlimited)")
	fl.IntVar(&f.maxRounds, "max-rounds", def.Enum.MaxRounds, "stop after this many rounds (0 = until convergence)")
	fl.StringVar(&f.strip, "strip", def.Post.StripPattern, "leading label regexp ignored when deduplicating (empty disables)")
	fl.StringVar(&f.prober, "prober", string(def.Probe.Kind), "liveness prober: exec, builtin or none")
	fl.BoolVar(&f.allowEmptySeed, "allow-empty-seed", false, "finish normally when the seed enumeration finds nothing")
	fl.BoolVar(&f.tui, "tui", false, "show the interactive dashboard")
	fl.BoolVar(&f.noColor, "no-color", false, "disable colored output")

	pf := cmd.PersistentFlags()
	pf.StringVar(&f.config, "config", "", "path to subconverge.yaml (default: searched upward from the working directory)")
	pf.StringVarP(&f.out, "out", "o", def.Output.Dir, "output directory")
	pf.BoolVar(&f.debug, "debug", false, "enable verbose logging to <out>/.subconverge/logs/subconverge.log")

	cmd.AddCommand(initCmd(&f))
	cmd.AddCommand(versionCmd())
	return cmd
}
