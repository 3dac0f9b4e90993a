package cli

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"catalog-importer/internal/config"
	"catalog-importer/internal/db"
	"catalog-importer/internal/importer"
	"catalog-importer/internal/logging"
	"catalog-importer/internal/service/imports"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Request imports.Request
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Import a catalog file",
		Long: `Import a delimited catalog file into the product store.

Rows are processed in batches, one transaction per batch. A checkpoint is
saved after every committed batch; a rerun of an interrupted import resumes
after the last committed row unless --no-resume is given.

Exit status is 0 when the run completed without errors, 1 when it completed
with errors or was interrupted, and 2 when it aborted.

Example:
  importer run --file ./feeds/catalog.csv
  importer run --file ./feeds/catalog.csv --batch-size 2000 --key-index per_batch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Request.File, "file", "f", "", "catalog file to import (required)")
	cmd.Flags().IntVar(&opts.Request.BatchSize, "batch-size", 0, "rows per batch (defaults to import.batch_size)")
	cmd.Flags().StringVar(&opts.Request.KeyIndex, "key-index", "", "key index strategy: preload, per_batch or auto")
	cmd.Flags().BoolVar(&opts.Request.NoResume, "no-resume", false, "discard any saved checkpoint and start from the first row")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runImport(cmd *cobra.Command, opts *RunOptions) error {
	cfg := opts.cfg
	if k := opts.Request.KeyIndex; k != "" && k != config.KeyIndexPreload && k != config.KeyIndexPerBatch && k != config.KeyIndexAuto {
		return NewExitError(ExitFatal, "unknown key index strategy "+k)
	}
	if cfg.Log.File == "" && cfg.Log.Dir != "" {
		cfg.Log.File = logging.RunLogPath(cfg.Log.Dir, time.Now())
	}
	logger, flush, err := logging.New(cfg.Env, cfg.Log)
	if err != nil {
		return WrapExitError(ExitFatal, "init logger", err)
	}
	defer flush()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.DBConnString,
		db.WithApplicationName("catalog-importer"),
		db.WithMaxConns(cfg.Media.Concurrency+2),
	)
	if err != nil {
		return WrapExitError(ExitFatal, "connect db", err)
	}
	defer pool.Close()

	deps, closeDeps, err := imports.NewDeps(ctx, cfg, pool, logger)
	if err != nil {
		return WrapExitError(ExitFatal, "init import", err)
	}
	defer closeDeps()

	stats, runErr := imports.New(cfg, deps, logger).Run(ctx, opts.Request)

	if n, err := logging.PruneOld(cfg.Log.Dir, cfg.Log.Retention, time.Now()); err != nil {
		logger.Warn("prune old logs", zap.Error(err))
	} else if n > 0 {
		logger.Info("pruned old logs", zap.Int("removed", n))
	}

	printStats(cmd, opts.JSON, stats)
	return runResult(stats, runErr)
}

func printStats(cmd *cobra.Command, asJSON bool, s importer.Stats) {
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		_ = enc.Encode(struct {
			importer.Stats
			Status  string `json:"status"`
			Errors  int    `json:"errors"`
			Elapsed string `json:"elapsed"`
		}{s, s.Status(), s.Errors(), s.Elapsed.Truncate(time.Millisecond).String()})
		return
	}
	printf(cmd, "Import %s: %d created, %d updated, %d skipped, %d errors, %d rows in %s (peak memory %s)\n",
		s.Status(), s.Created, s.Updated, s.Skipped, s.Errors(), s.RowsRead,
		s.Elapsed.Truncate(time.Millisecond), humanize.IBytes(s.PeakMemory))
	if s.FatalError != "" {
		printf(cmd, "Fatal: %s\n", s.FatalError)
	}
}
