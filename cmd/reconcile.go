package main

import (
	"fmt"

	"github.com/bilgisen/newstrust/internal/logger"
	"github.com/spf13/cobra"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Recount comment and source counters from stored documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.close(ctx)

		res, err := a.svc.ReconcileAll(ctx)
		if err != nil {
			return fmt.Errorf("reconcile failed: %w", err)
		}
		logger.Get().Info().
			Int("comments_fixed", res.CommentsFixed).
			Int("sources_fixed", res.SourcesFixed).
			Msg("Reconciliation complete")
		fmt.Fprintf(cmd.OutOrStdout(), "comments fixed: %d, sources fixed: %d\n", res.CommentsFixed, res.SourcesFixed)
		return nil
	},
}
