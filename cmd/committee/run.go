package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alpinequant/committee/pkg/analyst"
	"github.com/alpinequant/committee/pkg/committee"
	"github.com/alpinequant/committee/pkg/config"
	"github.com/alpinequant/committee/pkg/logger"
	"github.com/alpinequant/committee/pkg/market"
	"github.com/alpinequant/committee/pkg/portfolio"
	"github.com/alpinequant/committee/pkg/report"
	"github.com/alpinequant/committee/pkg/reviewer"
)

type runFlags struct {
	configPath   string
	filter       string
	provider     string
	output       string
	maxAnalysts  int
	maxRevisions int
	deadline     time.Duration
	verbose      bool
}

func runCmd() *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one committee evaluation over the configured universe",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommittee(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "committee.yaml", "Path to the run configuration")
	cmd.Flags().StringVarP(&flags.filter, "filter", "f", "", "Glob pattern selecting instruments from the universe (e.g. '*.SW')")
	cmd.Flags().StringVar(&flags.provider, "provider", "", "Market data provider: mock or stooq (overrides config)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "allocation.json", "Report output path")
	cmd.Flags().IntVar(&flags.maxAnalysts, "max-analysts", 0, "Max concurrent analyst invocations (overrides config)")
	cmd.Flags().IntVar(&flags.maxRevisions, "max-revisions", -1, "Review budget per signal (overrides config)")
	cmd.Flags().DurationVar(&flags.deadline, "deadline", 0, "Run deadline (overrides config)")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "Debug logging")

	return cmd
}

func runCommittee(cmd *cobra.Command, flags *runFlags) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	applyOverrides(cfg, flags)

	if err := cfg.Validate(); err != nil {
		return err
	}

	logLevel := cfg.Log.Level
	if flags.verbose {
		logLevel = "debug"
	}
	log, err := logger.New(logger.Config{Level: logLevel, Format: cfg.Log.Format})
	if err != nil {
		return err
	}

	universe, err := cfg.FilterUniverse(flags.filter)
	if err != nil {
		return err
	}
	if len(universe) == 0 {
		return fmt.Errorf("filter %q matched no instruments", flags.filter)
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		return err
	}
	defer provider.Close()

	analysts := make([]analyst.Analyst, 0, len(cfg.Analysts))
	weights := make(map[string]float64, len(cfg.Analysts))
	for _, ac := range cfg.Analysts {
		a, err := analyst.New(ac.Kind, analyst.Config{MaxVolatility: cfg.MaxVolatility})
		if err != nil {
			return err
		}
		analysts = append(analysts, a)
		weights[ac.Kind] = ac.Weight
	}

	comCfg := &committee.Config{
		MaxRevisions: cfg.MaxRevisions,
		MaxAnalysts:  cfg.MaxAnalysts,
		MaxReviewers: cfg.MaxReviewers,
		Weights:      weights,
		Period:       cfg.Data.Period,
		Interval:     cfg.Data.Interval,
		Deadline:     time.Duration(cfg.Deadline),
	}

	com, err := committee.New(comCfg, provider, analysts, reviewer.NewRuleReviewer(), log)
	if err != nil {
		return err
	}
	com.OnProgress(func(ev committee.ProgressEvent) {
		log.Debug().
			Str("symbol", ev.Symbol).
			Str("state", string(ev.State)).
			Str("analyst", ev.AnalystKind).
			Int("revision", ev.Revision).
			Msg("progress")
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := com.Run(ctx, universe)
	if err != nil {
		return err
	}

	manager := portfolio.NewManager(cfg.EligibleSet())
	alloc, err := manager.Allocate(result.Recommendations, nil)
	if err != nil {
		return err
	}

	rep := report.Build(result, alloc)
	if err := rep.WriteJSON(flags.output); err != nil {
		return err
	}

	log.Info().Str("path", flags.output).Float64("total_weight", rep.TotalWeight).Msg("report written")
	printSummary(rep)
	return nil
}

func applyOverrides(cfg *config.Config, flags *runFlags) {
	if flags.provider != "" {
		cfg.Data.Provider = flags.provider
	}
	if flags.maxAnalysts > 0 {
		cfg.MaxAnalysts = flags.maxAnalysts
	}
	if flags.maxRevisions >= 0 {
		cfg.MaxRevisions = flags.maxRevisions
	}
	if flags.deadline > 0 {
		cfg.Deadline = config.Duration(flags.deadline)
	}
}

func buildProvider(cfg *config.Config) (market.Provider, error) {
	var inner market.Provider
	switch cfg.Data.Provider {
	case "", "mock":
		inner = market.NewMockProvider()
	case "stooq":
		inner = market.NewStooqProvider()
	default:
		return nil, fmt.Errorf("unknown data provider %q", cfg.Data.Provider)
	}
	return market.NewCachingProvider(inner, 0), nil
}

func printSummary(rep *report.Report) {
	fmt.Printf("\nRun %s: %d instruments\n", rep.RunID, len(rep.Entries))
	for _, e := range rep.Entries {
		switch e.Outcome {
		case "accepted":
			fmt.Printf("  %-10s %-8s conf %.2f weight %.1f%%\n",
				e.Symbol, e.Recommendation, e.Confidence, e.Weight*100)
		default:
			fmt.Printf("  %-10s FAILED   %s\n", e.Symbol, e.Reason)
		}
	}
	fmt.Fprintln(os.Stdout)
}
