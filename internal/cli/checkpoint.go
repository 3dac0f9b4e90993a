package cli

import (
	"context"
	"database/sql"

	"github.com/spf13/cobra"

	"catalog-importer/internal/checkpoint"
	"catalog-importer/internal/config"
)

// NewCheckpointCommand creates the checkpoint command group.
func NewCheckpointCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Inspect or reset the resume checkpoint of a catalog file",
	}
	cmd.AddCommand(newCheckpointShowCommand(rootOpts))
	cmd.AddCommand(newCheckpointClearCommand(rootOpts))
	return cmd
}

func newCheckpointShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <file>",
		Short: "Print the number of rows already imported from file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCheckpointStore(cmd.Context(), opts.cfg, args[0], func(s checkpoint.Store) error {
				offset, ok, err := s.Load(cmd.Context())
				if err != nil {
					return WrapExitError(ExitFatal, "load checkpoint", err)
				}
				key := checkpoint.JobKey(opts.cfg.Checkpoint, args[0])
				if !ok {
					printf(cmd, "%s: no checkpoint\n", key)
					return nil
				}
				printf(cmd, "%s: %d rows processed\n", key, offset)
				return nil
			})
		},
	}
}

func newCheckpointClearCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <file>",
		Short: "Discard the checkpoint so the next run starts from the first row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCheckpointStore(cmd.Context(), opts.cfg, args[0], func(s checkpoint.Store) error {
				if err := s.Clear(cmd.Context()); err != nil {
					return WrapExitError(ExitFatal, "clear checkpoint", err)
				}
				printf(cmd, "%s: checkpoint cleared\n", checkpoint.JobKey(opts.cfg.Checkpoint, args[0]))
				return nil
			})
		},
	}
}

func withCheckpointStore(ctx context.Context, cfg config.Config, file string, fn func(checkpoint.Store) error) error {
	var sqlDB *sql.DB
	if cfg.Checkpoint.Backend == "sql" {
		db, err := checkpoint.OpenSQL(cfg.DBConnString)
		if err != nil {
			return WrapExitError(ExitFatal, "open checkpoint db", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return WrapExitError(ExitFatal, "ping checkpoint db", err)
		}
		sqlDB = db
	}
	s, err := checkpoint.Open(cfg.Checkpoint, sqlDB, file)
	if err != nil {
		return WrapExitError(ExitFatal, "open checkpoint", err)
	}
	return fn(s)
}
