package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

// checkCmd verifies that the database holds every column the article feature writes.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the article tables against the declared models",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, l, err := bootstrap()
		if err != nil {
			return err
		}
		defer func() { _ = l.Sync() }()

		if err := svc.CheckSchema(context.Background()); err != nil {
			return err
		}
		l.Info("Schema matches the article models")
		return nil
	},
}

func init() {
	RootCmd.AddCommand(checkCmd)
}
