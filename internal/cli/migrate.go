package cli

import (
	"github.com/spf13/cobra"

	"catalog-importer/internal/db"
	"catalog-importer/internal/migrate"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	var down int

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the catalog schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := db.Connect(ctx, rootOpts.cfg.DBConnString)
			if err != nil {
				return WrapExitError(ExitFatal, "connect db", err)
			}
			defer pool.Close()

			if down > 0 {
				if err := migrate.Rollback(ctx, pool, down); err != nil {
					return WrapExitError(ExitFatal, "rollback migrations", err)
				}
			} else if err := migrate.Apply(ctx, pool); err != nil {
				return WrapExitError(ExitFatal, "apply migrations", err)
			}

			version, dirty, err := migrate.Version(ctx, pool)
			if err != nil {
				return WrapExitError(ExitFatal, "read schema version", err)
			}
			printf(cmd, "schema version %d (dirty=%t)\n", version, dirty)
			return nil
		},
	}

	cmd.Flags().IntVar(&down, "down", 0, "roll back this many migrations instead of applying")

	return cmd
}
