package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/JourneyJu/dsg-sub008/internal/cli/formatter"
	"github.com/JourneyJu/dsg-sub008/internal/domain"
	"github.com/JourneyJu/dsg-sub008/internal/importer"
	"github.com/JourneyJu/dsg-sub008/internal/service"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

func newEvalCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Review and record evaluation actuals for a target",
	}
	cmd.AddCommand(
		newEvalShowCmd(app),
		newEvalSetCmd(app),
		newEvalSummaryCmd(app),
		newEvalTUICmd(app),
	)
	return cmd
}

func newEvalShowCmd(app *App) *cobra.Command {
	var filters filterFlag
	var planType string
	var page int

	cmd := &cobra.Command{
		Use:   "show TARGET_ID",
		Short: "Show a target's plans with targets and actuals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			types, err := parsePlanTypes(planType)
			if err != nil {
				return err
			}
			ws, err := app.Eval.Open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := applyFilters(ws, filters); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printf(out, "%s\n", formatter.FormatTargetCard(ws.Target()))
			for _, pt := range ws.PlanTypes() {
				if types != nil && !types[pt] {
					continue
				}
				eng, _ := ws.Engine(pt)
				eng.SetPage(page)
				printf(out, "\n%s\n", formatter.FormatPlanTable(planTableData(eng)))
			}
			return nil
		},
	}

	cmd.Flags().Var(&filters, "filter", "Column filter [plan_type.]field=all|unfilled|filled|anomalous (repeatable)")
	cmd.Flags().StringVar(&planType, "type", "", "Only show these plan types (comma separated)")
	cmd.Flags().IntVar(&page, "page", 1, "Page of each section to show")
	return cmd
}

func newEvalSetCmd(app *App) *cobra.Command {
	var sets setFlag
	var file string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "set TARGET_ID [--file FILE] [--set PLAN_ID[:FIELD]=VALUE ...]",
		Short: "Enter actual values and submit the evaluation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if file != "" {
				fromFile, err := loadActuals(file, args[0])
				if err != nil {
					return err
				}
				// Flags given explicitly win over the file.
				sets = append(fromFile, sets...)
			}
			if len(sets) == 0 {
				return fmt.Errorf("at least one --set or a --file is required")
			}
			ws, err := app.Eval.Open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := applySets(ws, sets); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if dryRun {
				if _, err := ws.CollectFormData(); err != nil {
					return reportSubmitError(out, err)
				}
				printf(out, "%s\n", formatter.StyleGreen.Render("All values are valid."))
				return nil
			}
			return submit(cmd.Context(), out, app.Eval, ws)
		},
	}

	cmd.Flags().Var(&sets, "set", "Actual value PLAN_ID[:FIELD]=VALUE (repeatable)")
	cmd.Flags().StringVar(&file, "file", "", "YAML or JSON file of actual values")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate without submitting")
	return cmd
}

func newEvalSummaryCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "summary TARGET_ID",
		Short: "Show completion figures per plan type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := app.Eval.Open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%s\n", formatter.FormatSummaries(ws.Summaries()))
			return nil
		},
	}
}

func newEvalTUICmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "tui TARGET_ID",
		Short: "Edit an evaluation interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !app.interactive() {
				return fmt.Errorf("eval tui needs an interactive terminal")
			}
			ws, err := app.Eval.Open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			p := tea.NewProgram(newEvalModel(cmd.Context(), app.Eval, ws), tea.WithAltScreen())
			_, err = p.Run()
			return err
		},
	}
}

func submit(ctx context.Context, out io.Writer, svc service.EvaluationService, ws *service.Workspace) error {
	res, err := svc.Submit(ctx, ws)
	if err != nil {
		if res != nil && len(res.Batches) > 0 {
			printf(out, "%s\n", formatter.FormatSubmitResult(res))
		}
		return reportSubmitError(out, err)
	}
	printf(out, "%s\n", formatter.FormatSubmitResult(res))
	return nil
}

// errSubmissionBlocked is returned after validation failures were printed.
var errSubmissionBlocked = errors.New("submission blocked by invalid values")

func reportSubmitError(out io.Writer, err error) error {
	var subErr *service.SubmissionError
	if errors.As(err, &subErr) {
		printf(out, "%s\n", formatter.FormatSubmissionError(subErr))
		return errSubmissionBlocked
	}
	return err
}

func applyFilters(ws *service.Workspace, filters filterFlag) error {
	for _, f := range filters {
		matched := false
		for _, pt := range ws.PlanTypes() {
			eng, _ := ws.Engine(pt)
			d, ok := f.appliesTo(eng.Config())
			if !ok {
				continue
			}
			matched = true
			if err := ws.ApplyFilter(pt, f.Status, d.ActualField, d.TargetField); err != nil {
				return err
			}
		}
		if !matched {
			return fmt.Errorf("no plan type in this evaluation has column %q", f.ActualField)
		}
	}
	return nil
}

func applySets(ws *service.Workspace, sets setFlag) error {
	for _, s := range sets {
		pt, ok := ws.PlanTypeOf(s.PlanID)
		if !ok {
			return fmt.Errorf("plan %q: %w", s.PlanID, service.ErrUnknownPlan)
		}
		eng, _ := ws.Engine(pt)
		field := s.Field
		if field == "" {
			field = eng.Config().Dimensions[0].ActualField
		}
		if _, err := ws.SetActual(pt, s.PlanID, field, s.Value); err != nil {
			return fmt.Errorf("plan %s field %s: %w", s.PlanID, field, err)
		}
	}
	return nil
}

// loadActuals reads an actuals file for targetID and turns it into
// assignments.
func loadActuals(path, targetID string) (setFlag, error) {
	f, err := importer.LoadActualsFile(path)
	if err != nil {
		return nil, err
	}
	if errs := importer.ValidateActualsFile(f); len(errs) > 0 {
		return nil, fmt.Errorf("%s: %w", path, errors.Join(errs...))
	}
	if f.TargetID != "" && f.TargetID != targetID {
		return nil, fmt.Errorf("%s is for target %s, not %s", path, f.TargetID, targetID)
	}

	var out setFlag
	for _, a := range f.Assignments() {
		out = append(out, setSpec{PlanID: a.PlanID, Field: a.Field, Value: a.Value})
	}
	return out, nil
}

func parsePlanTypes(s string) (map[domain.PlanType]bool, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	out := make(map[domain.PlanType]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if !domain.ValidPlanTypes[part] {
			return nil, fmt.Errorf("unknown plan type %q", part)
		}
		out[domain.PlanType(part)] = true
	}
	return out, nil
}
