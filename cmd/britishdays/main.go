// Command britishdays collects British slang terms from Wikipedia, Wiktionary and a
// built-in list into a local SQLite database.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/japaniel/britishdays/pkg/config"
	"github.com/japaniel/britishdays/pkg/db"
	"github.com/japaniel/britishdays/pkg/slang"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app holds what every subcommand shares. It is filled in by the root command's
// PersistentPreRunE.
type app struct {
	cfgFile string
	dbPath  string

	cfg    *config.Config
	logger *zap.Logger
	conn   *sql.DB
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "britishdays",
		Short:         "Collect British slang terms",
		Long:          `Searches Wikipedia, Wiktionary and a built-in list for British slang and stores new terms in SQLite.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations["skipSetup"] == "true" {
				return nil
			}
			return a.setup()
		},
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ./config.yaml or ~/.britishdays/config.yaml)")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "path to SQLite database (overrides database.path)")

	root.AddCommand(
		newSearchCmd(a),
		newListCmd(a),
		newStatsCmd(a),
		newBacklogCmd(a),
		newBackfillCmd(a),
		newImportCmd(a),
		&cobra.Command{
			Use:         "version",
			Short:       "Print the version number",
			Annotations: map[string]string{"skipSetup": "true"},
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "britishdays version %s\n", slang.Version())
			},
		},
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.Database.Path = a.dbPath
	}
	a.cfg = cfg

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	a.logger = logger

	conn, err := db.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database %s: %w", cfg.Database.Path, err)
	}
	a.conn = conn
	logger.Debug("Database ready", zap.String("path", cfg.Database.Path))
	return nil
}

// run wraps a subcommand body so the database and logger are released on every path.
func (a *app) run(fn func(cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := fn(cmd, args)
		if cerr := a.close(); err == nil {
			err = cerr
		}
		return err
	}
}

func (a *app) close() error {
	var err error
	if a.conn != nil {
		err = a.conn.Close()
		a.conn = nil
	}
	if a.logger != nil {
		// Sync fails on terminals; nothing useful to report.
		_ = a.logger.Sync()
	}
	return err
}
