package cmd

import (
	"context"
	"database/sql"

	"github.com/vibast-solutions/ms-go-course/migrations"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

func migrationCommand(use, short string, run func(ctx context.Context, db *sql.DB) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			_, db, err := loadRuntime()
			if err != nil {
				return err
			}
			defer db.Close()

			if err = run(context.Background(), db); err != nil {
				return err
			}
			logrus.WithField("command", use).Info("Migration command finished")
			return nil
		},
	}
}

func init() {
	migrateCmd.AddCommand(migrationCommand("up", "Apply all pending migrations", migrations.Up))
	migrateCmd.AddCommand(migrationCommand("down", "Roll back the most recent migration", migrations.Down))
	migrateCmd.AddCommand(migrationCommand("status", "Print the state of every migration", migrations.Status))
	rootCmd.AddCommand(migrateCmd)
}
