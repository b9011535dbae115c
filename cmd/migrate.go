package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

// migrateCmd creates or updates the article tables.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the article tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, l, err := bootstrap()
		if err != nil {
			return err
		}
		defer func() { _ = l.Sync() }()

		if err := svc.Migrate(context.Background()); err != nil {
			return err
		}
		l.Info("Schema migrated")
		return nil
	},
}

func init() {
	RootCmd.AddCommand(migrateCmd)
}
