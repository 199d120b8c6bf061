package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/japaniel/britishdays/pkg/db"
	"github.com/japaniel/britishdays/pkg/ingest"
	"github.com/japaniel/britishdays/pkg/slang"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func newListCmd(a *app) *cobra.Command {
	var (
		filter db.TermFilter
		src    string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored terms, newest first",
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			if src != "" {
				st, err := slang.ParseSourceType(src)
				if err != nil {
					return err
				}
				filter.Source = st
			}
			terms, err := db.ListTerms(a.conn, filter)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(terms) == 0 {
				fmt.Fprintln(out, "No terms found")
				return nil
			}

			t := newTable(out)
			t.AppendHeader(table.Row{"Term", "Definition", "Category", "Translation", "Source", "Added"})
			for _, st := range terms {
				t.AppendRow(table.Row{
					st.Text,
					slang.Truncate(st.Definition, 60),
					st.Category,
					st.Translation,
					st.SourceType,
					st.DateAdded.Format("2006-01-02"),
				})
			}
			t.AppendFooter(table.Row{"", "", "", "", "Total", len(terms)})
			t.Render()
			return nil
		}),
	}
	cmd.Flags().StringVarP(&filter.Query, "query", "q", "", "match term or definition")
	cmd.Flags().StringVar(&filter.Category, "category", "", "only this category")
	cmd.Flags().StringVar(&src, "source", "", "only terms from this source (wikipedia, wiktionary, mock)")
	cmd.Flags().IntVarP(&filter.Limit, "limit", "n", 20, "maximum rows, 0 for all")
	return cmd
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			s, err := db.GetStats(a.conn)
			if err != nil {
				return err
			}
			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Statistic", "Value"})
			t.AppendRows([]table.Row{
				{"Total terms", s.TotalTerms},
				{"Searches", s.TotalSearches},
				{"Visited locations", s.VisitedLocations},
				{"Cache backlog", s.CacheBacklog},
				{"Database", a.cfg.Database.Path},
			})
			t.Render()
			return nil
		}),
	}
}

func newBacklogCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "backlog",
		Short: "Print the number of cached terms not yet committed",
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			orch, err := a.buildOrchestrator(cmd.Context())
			if err != nil {
				return err
			}
			n, err := orch.CacheBacklog()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		}),
	}
}

func newBackfillCmd(a *app) *cobra.Command {
	var batch int
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Commit every uncommitted cached term to the store",
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			imp := ingest.NewImporter(a.conn)
			imp.Logger = a.logger.Named("backfill")
			imp.BatchSize = batch
			res, err := imp.Backfill(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backfill complete: %d added, %d already stored\n", res.Added, res.Duplicates)
			return nil
		}),
	}
	cmd.Flags().IntVar(&batch, "batch", 50, "terms per transaction")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	var (
		src     string
		workers int
		batch   int
	)
	cmd := &cobra.Command{
		Use:   "import <file.json|url>",
		Short: "Import terms from a JSON file or URL",
		Long:  `Imports a JSON array of terms, or an object with a "terms" array. Names ending in .gz are decompressed.`,
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			st, err := slang.ParseSourceType(src)
			if err != nil {
				return err
			}
			terms, err := ingest.LoadTerms(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to load terms: %w", err)
			}
			a.logger.Info("Loaded terms", zap.String("location", args[0]), zap.Int("count", len(terms)))

			imp := ingest.NewImporter(a.conn)
			imp.Logger = a.logger.Named("import")
			imp.Workers = workers
			imp.BatchSize = batch
			imp.OnProgress = func(current, total int) {
				a.logger.Debug("Import progress", zap.Int("current", current), zap.Int("total", total))
			}
			res, err := imp.Import(cmd.Context(), terms, st)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Import complete: %d added, %d duplicates, %d invalid\n",
				res.Added, res.Duplicates, res.Invalid)
			return nil
		}),
	}
	cmd.Flags().StringVar(&src, "source", "mock", "source type for records without one")
	cmd.Flags().IntVar(&workers, "workers", 4, "concurrent normalizers")
	cmd.Flags().IntVar(&batch, "batch", 50, "terms per transaction")
	return cmd
}
