package cli

import (
	"errdash/dashboard"
	"errdash/models"
	"fmt"
	"io"
	"strings"
)

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// applyFilterArgs applies "filter <field> <value...>" or "filter clear"
func applyFilterArgs(current dashboard.Filters, args []string) (dashboard.Filters, error) {
	if len(args) == 0 {
		return current, fmt.Errorf("missing filter field")
	}
	field := strings.ToLower(args[0])
	if field == "clear" || field == "reset" {
		return dashboard.Filters{}, nil
	}
	if len(args) < 2 {
		return current, fmt.Errorf("missing value for %s", field)
	}
	value := strings.Join(args[1:], " ")

	switch field {
	case "severity", "sev":
		value = strings.ToLower(value)
		if value != dashboard.FilterAll && !models.ValidSeverity(value) {
			return current, fmt.Errorf("invalid severity %q", value)
		}
		current.Severity = value
	case "component", "comp":
		current.Component = value
	case "search", "type":
		current.Search = value
	case "source", "src":
		current.Source = value
	default:
		return current, fmt.Errorf("unknown filter field %q", field)
	}
	return current, nil
}

func describeFilters(f dashboard.Filters) string {
	parts := []string{}
	if f.Severity != "" && f.Severity != dashboard.FilterAll {
		parts = append(parts, "severity="+f.Severity)
	}
	if f.Component != "" {
		parts = append(parts, "component~"+f.Component)
	}
	if f.Search != "" {
		parts = append(parts, "type~"+f.Search)
	}
	if f.Source != "" && f.Source != dashboard.FilterAll {
		parts = append(parts, "source="+f.Source)
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

func printCards(w io.Writer, status string, cards []dashboard.Card) {
	visible := dashboard.CountVisible(cards)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-6s %-8s %-9s %-10s %-28s %-20s %-19s\n", "ID", "Severity", "Status", "Source", "Type", "Component", "Time")
	fmt.Fprintln(w, strings.Repeat("-", 106))
	for _, card := range cards {
		if !card.Visible {
			continue
		}
		rec := card.Record
		ts := dashboard.FormatTimestamp(rec.Timestamp)
		fmt.Fprintf(w, "%-6d %-8s %-9s %-10s %-28s %-20s %-19s\n",
			rec.ID,
			rec.Severity,
			rec.Status,
			truncate(rec.Source, 10),
			truncate(rec.ErrorType, 28),
			truncate(rec.AffectedComponent, 20),
			ts,
		)
	}
	fmt.Fprintf(w, "\n%d of %d shown (%s). Use 'show <id>' to view details\n", visible, len(cards), status)
}

func printDetail(w io.Writer, detail dashboard.Detail) {
	rec := detail.Record
	fmt.Fprintln(w)
	header := fmt.Sprintf("#%d %s [%s]", rec.ID, rec.ErrorType, rec.Status)
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("=", len(header)))
	if rec.AffectedComponent != "" {
		fmt.Fprintf(w, "Component:   %s\n", rec.AffectedComponent)
	}
	fmt.Fprintf(w, "Source:      %s\n", rec.Source)
	if rec.InwiseID != "" {
		fmt.Fprintf(w, "INWise ID:   %s\n", rec.InwiseID)
	}
	fmt.Fprintf(w, "Severity:    %s\n", rec.Severity)
	fmt.Fprintf(w, "Environment: %s\n", rec.Environment)
	fmt.Fprintf(w, "Impact:      %s\n", orDefault(rec.Impact, dashboard.NoImpact))
	if ts := dashboard.FormatTimestamp(rec.Timestamp); ts != "" {
		fmt.Fprintf(w, "Timestamp:   %s\n", ts)
	}
	fmt.Fprintf(w, "\nMessage:\n  %s\n", rec.Message)
	fmt.Fprintf(w, "\nStack trace:\n%s\n", orDefault(rec.StackTrace, dashboard.NoStackTrace))

	if rec.HasResolution() {
		fmt.Fprintf(w, "\nResolution:\n  %s\n", rec.Resolution)
		if rec.ResolutionTime != nil {
			if ts := dashboard.FormatTimestamp(*rec.ResolutionTime); ts != "" {
				fmt.Fprintf(w, "  Resolved at: %s\n", ts)
			}
		}
	}
	if detail.ShowResolve {
		fmt.Fprintln(w, "\nUse 'resolve' to mark this error as resolved")
	}
}

func printStats(w io.Writer, stats *models.ErrorStats) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total errors:      %d\n", stats.TotalErrors)
	fmt.Fprintf(w, "Open high:         %d\n", stats.HighSeverityOpen)
	fmt.Fprintf(w, "Open medium:       %d\n", stats.MediumSeverityOpen)
	fmt.Fprintf(w, "Open low:          %d\n", stats.LowSeverityOpen)
	fmt.Fprintf(w, "Resolution rate:   %.2f%%\n", stats.ResolutionRate)
	fmt.Fprintf(w, "From INWise:       %d\n", stats.InwiseErrors)
	fmt.Fprintf(w, "Manually logged:   %d\n", stats.ManualErrors)
}

func printDiagnostics(w io.Writer, entries []*models.DiagnosticLog) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No diagnostics recorded.")
		return
	}
	fmt.Fprintf(w, "%-5s %-8s %-6s %-10s %s\n", "ID", "Time", "Level", "Source", "Message")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, e := range entries {
		msg := e.Message
		if e.Detail != "" {
			msg += ": " + e.Detail
		}
		fmt.Fprintf(w, "%-5d %-8s %-6s %-10s %s\n", e.ID, e.Timestamp.Format("15:04:05"), e.Level, e.Source, truncate(msg, 60))
	}
}

func printDiagnostic(w io.Writer, e *models.DiagnosticLog) {
	fmt.Fprintf(w, "#%d %s [%s] %s\n", e.ID, e.Timestamp.Format("2006-01-02 15:04:05"), e.Level, e.Source)
	fmt.Fprintf(w, "Message: %s\n", e.Message)
	if e.Detail != "" {
		fmt.Fprintf(w, "Detail:  %s\n", e.Detail)
	}
	if e.Context != "" {
		fmt.Fprintf(w, "Context: %s\n", e.Context)
	}
	if e.Stack != "" {
		fmt.Fprintf(w, "Stack:\n%s", e.Stack)
	}
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
