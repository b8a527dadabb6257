package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/johnquangdev/lesson-attribution/internal/infrastructure/database"
	"github.com/johnquangdev/lesson-attribution/pkg/config"
)

func newMigrateCommand(_ *commandContext) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadUnchecked()
			if err != nil {
				return err
			}

			db, err := database.NewPostgresDB(cfg)
			if err != nil {
				return err
			}
			defer database.CloseDB(db)

			n, err := database.Migrate(db, dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migrations\n", n)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", database.MigrationsDir, "Migrations directory")
	return cmd
}
