package formatter

import (
	"fmt"
	"strings"

	"github.com/JourneyJu/dsg-sub008/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// FormatTargetList renders one page of targets inside a bordered box.
func FormatTargetList(targets []domain.Target, total int) string {
	headers := []string{"ID", "NAME", "DEPARTMENT", "STATUS", "PERIOD"}
	rows := make([][]string, 0, len(targets))
	for i := range targets {
		t := &targets[i]
		dept := t.Department
		if strings.TrimSpace(dept) == "" {
			dept = Dim("--")
		}
		rows = append(rows, []string{
			TruncID(t.ID),
			Bold(t.Name),
			dept,
			TargetStatusPill(t.Status),
			Dim(DateRange(t.StartDate, t.EndDate)),
		})
	}

	body := RenderTable(headers, rows)
	body += "\n" + Dim(fmt.Sprintf("%d of %d target(s)", len(targets), total))
	return RenderBox("Assessment Targets", body)
}

// FormatTargetCard renders the header of an evaluation: the target's
// metadata next to its plan counts.
func FormatTargetCard(t domain.Target) string {
	var left strings.Builder
	left.WriteString(StyleBold.Render(t.Name) + "\n")
	left.WriteString(fmt.Sprintf("%s  %s\n", StyleDim.Render("STATUS"), TargetStatusPill(t.Status)))
	left.WriteString(fmt.Sprintf("%s  %s\n", StyleDim.Render("ID    "), t.ID))
	if t.Department != "" {
		left.WriteString(fmt.Sprintf("%s  %s\n", StyleDim.Render("DEPT  "), t.Department))
	}
	left.WriteString(fmt.Sprintf("%s  %s", StyleDim.Render("PERIOD"), DateRange(t.StartDate, t.EndDate)))

	byType := t.PlansByType()
	var right strings.Builder
	right.WriteString(StyleHeader.Render("PLANS") + "\n")
	for _, pt := range domain.PlanTypes {
		cfg, _ := domain.ConfigFor(pt)
		right.WriteString(fmt.Sprintf("%-26s %s\n", cfg.Label, StyleFg.Render(fmt.Sprint(len(byType[pt])))))
	}

	return RenderBox("", lipgloss.JoinHorizontal(lipgloss.Top, left.String(), "    ", strings.TrimRight(right.String(), "\n")))
}
