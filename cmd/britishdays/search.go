package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/japaniel/britishdays/pkg/config"
	"github.com/japaniel/britishdays/pkg/db"
	"github.com/japaniel/britishdays/pkg/ingest"
	"github.com/japaniel/britishdays/pkg/search"
	"github.com/japaniel/britishdays/pkg/slang"
	"github.com/japaniel/britishdays/pkg/source"
)

// buildOrchestrator wires fetchers, ledger, cache and store for the configured sources.
func (a *app) buildOrchestrator(ctx context.Context) (*search.Orchestrator, error) {
	opts := a.cfg.FetcherOptions()
	if file := a.cfg.Sources.Mock.File; file != "" {
		terms, err := ingest.LoadTerms(ctx, file)
		if err != nil {
			return nil, fmt.Errorf("load mock terms: %w", err)
		}
		opts.MockTerms = terms
		a.logger.Info("Loaded mock terms", zap.String("file", file), zap.Int("count", len(terms)))
	}

	active, err := a.cfg.ActiveSources()
	if err != nil {
		return nil, err
	}
	fetchers := make([]source.Fetcher, 0, len(active))
	for _, st := range active {
		f, err := source.New(st, opts, a.logger.Named(string(st)))
		if err != nil {
			return nil, err
		}
		fetchers = append(fetchers, f)
	}

	ledger, err := db.NewLedger(a.conn, a.cfg.Search.LedgerCacheSize)
	if err != nil {
		return nil, err
	}
	sc, err := a.cfg.SearchConfig()
	if err != nil {
		return nil, err
	}
	return search.New(sc, fetchers, ledger, db.NewCache(a.conn), db.NewStore(a.conn), a.logger.Named("search"))
}

func newSearchCmd(a *app) *cobra.Command {
	var (
		once     bool
		mock     bool
		schedule string
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search the configured sources for new terms",
		Long: `Runs search cycles until the failure threshold is reached or the process is interrupted.
With --once a single cycle runs. With --schedule (or search.schedule) runs repeat on a cron schedule.`,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			if mock {
				a.cfg.Search.Mode = config.ModeMock
			}
			if schedule == "" {
				schedule = a.cfg.Search.Schedule
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			orch, err := a.buildOrchestrator(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			switch {
			case once:
				report, err := orch.SearchOnce(ctx)
				printCycle(out, report)
				return err
			case schedule != "":
				return a.runScheduled(ctx, orch, schedule, out)
			default:
				run, err := orch.SearchUntilStopped(ctx)
				printRun(out, run)
				return err
			}
		}),
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single search cycle")
	cmd.Flags().BoolVar(&mock, "mock", false, "only use the built-in term list")
	cmd.Flags().StringVar(&schedule, "schedule", "", `cron schedule for repeated runs, e.g. "@every 1h"`)
	return cmd
}

// runScheduled starts a run on every tick of schedule until ctx is done. Runs never overlap;
// each one starts from a fresh rotation and relies on the ledger to skip visited locations.
func (a *app) runScheduled(ctx context.Context, orch *search.Orchestrator, schedule string, out io.Writer) error {
	runErr := make(chan error, 1)
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(schedule, func() {
		orch.Reset()
		run, err := orch.SearchUntilStopped(ctx)
		printRun(out, run)
		if err != nil {
			select {
			case runErr <- err:
			default:
			}
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	a.logger.Info("Scheduled search started", zap.String("schedule", schedule))
	c.Start()
	defer func() { <-c.Stop().Done() }()

	select {
	case <-ctx.Done():
		a.logger.Info("Scheduled search stopping")
		return nil
	case err := <-runErr:
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
}

func printCycle(w io.Writer, r search.CycleReport) {
	if r.Stopped && r.Source == "" {
		fmt.Fprintf(w, "Search stopped after %d consecutive failures\n", r.Failures)
		return
	}
	fmt.Fprintf(w, "Cycle %s: source=%s outcome=%s new=%d failures=%d\n",
		r.RunID, r.Source, r.Outcome, r.NewTerms, r.Failures)
	if r.FetchErr != nil {
		fmt.Fprintf(w, "  fetch error: %v\n", r.FetchErr)
	}
}

func printRun(w io.Writer, r search.RunReport) {
	fmt.Fprintf(w, "Search finished (%s): %d cycles, %d new terms, %d fetch errors\n",
		r.Reason, r.Cycles, r.NewTerms, r.FetchErrs)
	for _, st := range slang.SourceTypes {
		if n, ok := r.BySource[st]; ok {
			fmt.Fprintf(w, "  %-10s %d\n", st, n)
		}
	}
}
