package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/perfdash/perfdash/internal/doctor"
	"github.com/perfdash/perfdash/internal/ui"
	"github.com/perfdash/perfdash/internal/util"
)

// DoctorOutput represents the JSON output for doctor command.
type DoctorOutput struct {
	Categories []CategoryOutput `json:"categories"`
	Summary    SummaryOutput    `json:"summary"`
}

// CategoryOutput represents a category of check results.
type CategoryOutput struct {
	Name    string               `json:"name"`
	Results []doctor.CheckResult `json:"results"`
}

// SummaryOutput summarizes the check results.
type SummaryOutput struct {
	Pass     int  `json:"pass"`
	Warn     int  `json:"warn"`
	Fail     int  `json:"fail"`
	Fixable  int  `json:"fixable"`
	Fixed    int  `json:"fixed,omitempty"`
	AllClear bool `json:"all_clear"`
}

// doctorCommand implements the doctor command logic.
func doctorCommand(ctx context.Context, out io.Writer, fix, asJSON bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// A broken config still gets the file and schema checks, which explain it.
	cfg, err := loadConfig()
	if err != nil {
		cfg = nil
	}

	checks := doctor.NewConfigChecks(cfgFile, cfg)
	if cfg != nil {
		checks = append(checks, doctor.NewAgentChecks(cfg)...)
	}

	results := doctor.RunAllParallel(ctx, checks)

	fixed := 0
	if fix {
		results, fixed = doctor.FixAll(ctx, checks, results)
	}

	if asJSON {
		return outputDoctorJSON(out, checks, results, fixed)
	}
	outputDoctorText(out, checks, results, fix, fixed)
	return nil
}

// groupResults pairs results with their check's category in report order.
func groupResults(checks []doctor.Check, results []doctor.CheckResult) []CategoryOutput {
	grouped := make(map[string][]doctor.CheckResult)
	for i, check := range checks {
		grouped[check.Category()] = append(grouped[check.Category()], results[i])
	}

	categories := make([]CategoryOutput, 0, len(grouped))
	for _, cat := range doctor.CategoryOrder {
		if rs, ok := grouped[cat]; ok {
			categories = append(categories, CategoryOutput{Name: cat, Results: rs})
		}
	}
	return categories
}

func outputDoctorJSON(out io.Writer, checks []doctor.Check, results []doctor.CheckResult, fixed int) error {
	counts := doctor.CountByStatus(results)
	output := DoctorOutput{
		Categories: groupResults(checks, results),
		Summary: SummaryOutput{
			Pass:     counts[doctor.StatusPass],
			Warn:     counts[doctor.StatusWarn],
			Fail:     counts[doctor.StatusFail],
			Fixable:  doctor.FixableCount(results),
			Fixed:    fixed,
			AllClear: !doctor.HasIssues(results),
		},
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}

func outputDoctorText(out io.Writer, checks []doctor.Check, results []doctor.CheckResult, fix bool, fixed int) {
	successStyle := lipgloss.NewStyle().Foreground(ui.ColorSuccess)
	errorStyle := lipgloss.NewStyle().Foreground(ui.ColorError)
	mutedStyle := lipgloss.NewStyle().Foreground(ui.ColorMuted)
	headerStyle := lipgloss.NewStyle().Bold(true)

	fmt.Fprintln(out)
	fmt.Fprintln(out, headerStyle.Render(versionString()+" diagnostic report"))
	fmt.Fprintln(out)

	var rows []ui.CheckRow
	for _, cat := range groupResults(checks, results) {
		for _, r := range cat.Results {
			rows = append(rows, ui.CheckRow{
				Status:     r.Status.String(),
				Category:   cat.Name,
				Message:    r.Message,
				Suggestion: r.Suggestion,
			})
		}
	}
	fmt.Fprint(out, ui.RenderCheckTable(rows))

	fmt.Fprintln(out, strings.Repeat("━", 60))
	fmt.Fprintln(out)

	if fixed > 0 {
		fmt.Fprintf(out, "%s Fixed %d %s\n", successStyle.Render(ui.SymbolSuccess), fixed, util.Pluralize(fixed, "issue", "issues"))
	}

	if !doctor.HasIssues(results) {
		fmt.Fprintf(out, "%s %s\n", successStyle.Render(ui.SymbolSuccess), doctor.Summary(results))
		fmt.Fprintln(out)
		return
	}

	fmt.Fprintf(out, "%s %s\n", errorStyle.Render(ui.SymbolFail), doctor.Summary(results))
	if doctor.FixableCount(results) > 0 && !fix {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "  Run with %s to attempt automatic fixes where possible.\n", mutedStyle.Render("--fix"))
	}
	fmt.Fprintln(out)
}
