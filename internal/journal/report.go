package journal

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Report is a per-kind summary over a period.
type Report struct {
	Period    Period
	Summaries []Summary
}

// PeriodFor returns the calendar window of periodType containing now.
// Weeks start on Monday.
func PeriodFor(periodType string, now time.Time) (Period, error) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	var start, end time.Time

	switch periodType {
	case "day", "today":
		start = day
		end = start.AddDate(0, 0, 1)
	case "week":
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		start = day.AddDate(0, 0, -(weekday - 1))
		end = start.AddDate(0, 0, 7)
	case "month":
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 1, 0)
	default:
		return Period{}, fmt.Errorf("invalid period type: %s (valid: day, week, month)", periodType)
	}

	return Period{Start: start, End: end, Type: periodType}, nil
}

// BuildReport summarizes the entries recorded during period.
func BuildReport(repo *Repository, period Period) (*Report, error) {
	summaries, err := repo.SummaryBetween(period.Start, period.End)
	if err != nil {
		return nil, err
	}
	return &Report{Period: period, Summaries: summaries}, nil
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7FB685"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	countStyle = lipgloss.NewStyle().Bold(true).Width(6).Align(lipgloss.Right)
	emptyStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#888888"))
)

var kindLabels = map[Kind]string{
	KindBreakDue:        "Breaks due",
	KindBreakStarted:    "Breaks started",
	KindBreakCompleted:  "Breaks completed",
	KindSnoozed:         "Snoozes",
	KindDismissed:       "Dismissed",
	KindSessionLocked:   "Session locks",
	KindSessionUnlocked: "Session unlocks",
}

// Count returns the number of entries of kind.
func (report *Report) Count(kind Kind) int64 {
	for _, summary := range report.Summaries {
		if summary.Kind == kind {
			return summary.Count
		}
	}
	return 0
}

// BreakTime is the total scheduled length of started breaks.
func (report *Report) BreakTime() time.Duration {
	for _, summary := range report.Summaries {
		if summary.Kind == KindBreakStarted {
			return time.Duration(summary.TotalSeconds) * time.Second
		}
	}
	return 0
}

// Render formats the report for a terminal.
func (report *Report) Render() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Break history - %s", report.Period.Type)))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render(fmt.Sprintf("%s to %s",
		report.Period.Start.Format("2006-01-02 15:04"),
		report.Period.End.Format("2006-01-02 15:04"))))
	b.WriteString("\n\n")

	if len(report.Summaries) == 0 {
		b.WriteString(emptyStyle.Render("No breaks recorded for this period."))
		b.WriteString("\n")
		return b.String()
	}

	for _, kind := range Kinds {
		b.WriteString(fmt.Sprintf("%-18s %s\n", kindLabels[kind], countStyle.Render(fmt.Sprint(report.Count(kind)))))
	}
	b.WriteString("\n")
	b.WriteString(labelStyle.Render(fmt.Sprintf("Time on break: %s", report.BreakTime().Round(time.Second))))
	b.WriteString("\n")
	return b.String()
}
