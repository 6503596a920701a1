package cli

import (
	"fmt"

	"github.com/JourneyJu/dsg-sub008/internal/cli/formatter"
	"github.com/JourneyJu/dsg-sub008/internal/domain"
	"github.com/spf13/cobra"
)

func newPlanCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Manage assessment plans",
	}
	cmd.AddCommand(newPlanUpdateCmd(app))
	return cmd
}

func newPlanUpdateCmd(app *App) *cobra.Command {
	var targetID string
	var meta domain.PlanMeta

	cmd := &cobra.Command{
		Use:   "update PLAN_ID",
		Short: "Update a plan's owner, name or description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if meta == (domain.PlanMeta{}) {
				return fmt.Errorf("nothing to update: pass --owner, --name or --description")
			}
			ws, err := app.Eval.Open(cmd.Context(), targetID)
			if err != nil {
				return err
			}
			if err := app.Eval.UpdatePlan(cmd.Context(), ws, args[0], meta); err != nil {
				return err
			}

			pt, _ := ws.PlanTypeOf(args[0])
			eng, _ := ws.Engine(pt)
			p, _ := eng.Row(args[0])
			printf(cmd.OutOrStdout(), "%s Updated %s %s\n",
				formatter.StyleGreen.Render("✔"), formatter.Bold(p.PlanName), formatter.Dim("owner "+p.Owner))
			return nil
		},
	}

	cmd.Flags().StringVar(&targetID, "target", "", "Target the plan belongs to")
	cmd.Flags().StringVar(&meta.Owner, "owner", "", "New owner")
	cmd.Flags().StringVar(&meta.PlanName, "name", "", "New plan name")
	cmd.Flags().StringVar(&meta.Description, "description", "", "New description")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}
