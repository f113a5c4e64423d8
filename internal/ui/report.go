package ui

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"

	"github.com/tectonic-db/tectonic/analyze"
)

// SeverityStyle maps an analyzer severity to its terminal style.
func SeverityStyle(s analyze.Severity) func(...string) string {
	switch s {
	case analyze.Critical:
		return CriticalStyle.Render
	case analyze.Error:
		return ErrorStyle.Render
	case analyze.Warning:
		return WarningStyle.Render
	default:
		return InfoStyle.Render
	}
}

// PrintAnalysis renders one migration's analysis report. Auto-fix snippets
// are rendered as markdown SQL blocks.
func PrintAnalysis(r *analyze.Result) {
	if len(r.Issues) == 0 {
		PrintSuccess("%s: no issues", r.Migration)
		return
	}

	PrintSection(fmt.Sprintf("%s: %s", r.Migration, r.Summary()))
	for _, issue := range r.Issues {
		render := SeverityStyle(issue.Severity)
		fmt.Printf("  %s %s %s\n",
			render(issue.Severity.String()),
			SecondaryStyle.Render("["+issue.Code+"]"),
			issue.Message)
		if issue.Suggestion != "" {
			fmt.Printf("    %s\n", SecondaryStyle.Render("hint: "+issue.Suggestion))
		}
		if issue.AutoFix != "" {
			if err := PrintMarkdown("```sql\n" + issue.AutoFix + "\n```"); err != nil {
				fmt.Println(issue.AutoFix)
			}
		}
	}
}

// PrintAnalysisReports renders the full pre-apply report.
func PrintAnalysisReports(results []*analyze.Result) {
	for _, r := range results {
		PrintAnalysis(r)
	}
}

// ConfirmWarnings asks the user whether to proceed past WARNING-only
// analysis results.
func ConfirmWarnings(results []*analyze.Result) (bool, error) {
	PrintAnalysisReports(results)

	proceed := false
	prompt := &survey.Confirm{
		Message: "Analysis produced warnings. Apply anyway?",
		Default: false,
	}
	if err := survey.AskOne(prompt, &proceed); err != nil {
		return false, err
	}
	return proceed, nil
}
