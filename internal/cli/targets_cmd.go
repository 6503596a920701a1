package cli

import (
	"fmt"

	"github.com/JourneyJu/dsg-sub008/internal/apiclient"
	"github.com/JourneyJu/dsg-sub008/internal/cli/formatter"
	"github.com/JourneyJu/dsg-sub008/internal/domain"
	"github.com/spf13/cobra"
)

func newTargetsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "targets",
		Short: "Browse assessment targets",
	}
	cmd.AddCommand(newTargetsListCmd(app))
	return cmd
}

func newTargetsListCmd(app *App) *cobra.Command {
	var q apiclient.TargetQuery
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List assessment targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if status != "" {
				if !domain.ValidTargetStatuses[status] {
					return fmt.Errorf("invalid status %q (use pending, evaluating or completed)", status)
				}
				q.Status = domain.TargetStatus(status)
			}

			page, err := app.Eval.ListTargets(cmd.Context(), q)
			if err != nil {
				return err
			}
			if len(page.Entries) == 0 {
				printf(cmd.OutOrStdout(), "No targets found.\n")
				return nil
			}
			printf(cmd.OutOrStdout(), "%s\n", formatter.FormatTargetList(page.Entries, page.TotalCount))
			return nil
		},
	}

	cmd.Flags().StringVar(&q.Keyword, "keyword", "", "Match target name or department")
	cmd.Flags().StringVar(&status, "status", "", "Only targets with this status")
	cmd.Flags().IntVar(&q.Offset, "offset", 0, "Skip this many targets")
	cmd.Flags().IntVar(&q.Limit, "limit", 20, "Maximum targets to list")
	return cmd
}
