package managercalc

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"github.com/veb86/GristWidgets-sub001/internal/classify"
)

// Report summarizes one classification run
type Report struct {
	RunID    string             `json:"run_id"`
	Table    string             `json:"table"`
	State    State              `json:"state"`
	DryRun   bool               `json:"dry_run"`
	Devices  int                `json:"devices"`
	Indexed  int                `json:"indexed"`
	Warnings []classify.Warning `json:"warnings,omitempty"`
	Planned  int                `json:"planned"`
	Updates  []classify.Update  `json:"updates,omitempty"`
	Applied  int                `json:"applied"`
	Batches  int                `json:"batches"`
	Duration time.Duration      `json:"duration_ns"`
	Error    string             `json:"error,omitempty"`
}

// PrintJSON outputs the report as JSON
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrintSummary outputs the report for a terminal
func PrintSummary(w io.Writer, r *Report, showUpdates bool) {
	fmt.Fprintf(w, "Run:        %s\n", r.RunID)
	fmt.Fprintf(w, "Table:      %s\n", r.Table)
	fmt.Fprintf(w, "Devices:    %s (%s indexed)\n", humanize.Comma(int64(r.Devices)), humanize.Comma(int64(r.Indexed)))
	fmt.Fprintf(w, "Warnings:   %s\n", humanize.Comma(int64(len(r.Warnings))))
	fmt.Fprintf(w, "Changes:    %s\n", english.Plural(r.Planned, "row", ""))
	if !r.DryRun {
		fmt.Fprintf(w, "Applied:    %s in %s\n", english.Plural(r.Applied, "row", ""), english.Plural(r.Batches, "batch", "batches"))
	}
	fmt.Fprintf(w, "Duration:   %s\n", r.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "State:      %s\n", strings.ToUpper(string(r.State)))
	if r.Error != "" {
		fmt.Fprintf(w, "Error:      %s\n", r.Error)
	}

	if showUpdates && len(r.Updates) > 0 {
		fmt.Fprintln(w)
		PrintUpdates(w, r.Updates)
	}
}

// PrintUpdates outputs planned updates as a table
func PrintUpdates(w io.Writer, updates []classify.Update) {
	fmt.Fprintf(w, "%-8s %-20s %-20s %-20s\n", "ROW", "LEVEL1", "LEVEL2", "LEVEL3")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	for _, u := range updates {
		fmt.Fprintf(w, "%-8d %-20s %-20s %-20s\n", u.RowID, dash(u.Level1), dash(u.Level2), dash(u.Level3))
	}
}

// PrintWarnings outputs validation warnings as a table
func PrintWarnings(w io.Writer, warnings []classify.Warning) {
	if len(warnings) == 0 {
		fmt.Fprintln(w, "No warnings")
		return
	}
	fmt.Fprintf(w, "%-8s %-22s %s\n", "ROW", "KIND", "MESSAGE")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	for _, wr := range warnings {
		fmt.Fprintf(w, "%-8d %-22s %s\n", wr.RowID, wr.Kind, wr.Message)
	}
}

// PrintTrace outputs a resolver trace
func PrintTrace(w io.Writer, t classify.Trace) {
	fmt.Fprintf(w, "Device:     %s\n", t.Device)
	if len(t.Path) > 0 {
		fmt.Fprintf(w, "Path:       %s\n", strings.Join(t.Path, " > "))
	} else {
		fmt.Fprintf(w, "Path:       -\n")
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%-4s %-20s %-10s %-20s %s\n", "HOP", "CURSOR", "RULE", "LABEL", "SLOT")
	fmt.Fprintln(w, strings.Repeat("-", 62))
	for _, s := range t.Steps {
		slot := "-"
		if s.Slot > 0 {
			slot = fmt.Sprintf("level%d", s.Slot)
		}
		fmt.Fprintf(w, "%-4d %-20s %-10s %-20s %s\n", s.Hop, dash(s.Cursor), s.Rule, dash(s.Label), slot)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "level1:     %s\n", dash(t.Levels.Level1))
	fmt.Fprintf(w, "level2:     %s\n", dash(t.Levels.Level2))
	fmt.Fprintf(w, "level3:     %s\n", dash(t.Levels.Level3))
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
