package framework

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
)

var (
	passColor     = color.New(color.FgGreen)
	failColor     = color.New(color.FgRed)
	errorColor    = color.New(color.FgYellow)
	securityColor = color.New(color.FgRed, color.Bold)
)

// PrintResults renders the human-readable suite report: an outcome summary
// table followed by every failure with enough context to reproduce it.
func PrintResults(w io.Writer, results Results) {
	pass := results.Count(OutcomePass)
	fail := results.Count(OutcomeFail)
	errs := results.Count(OutcomeError)
	security := len(results.SecurityRegressions())

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Outcome", "Count"})
	tw.AppendRows([]table.Row{
		{"pass", pass},
		{"fail", fail},
		{"error", errs},
	})
	if security > 0 {
		tw.AppendRow(table.Row{"security regressions", security})
	}
	tw.AppendFooter(table.Row{"total", len(results.Records)})
	tw.Render()

	if !results.EndTime.IsZero() && !results.StartTime.IsZero() {
		fmt.Fprintf(w, "Elapsed: %s\n", results.EndTime.Sub(results.StartTime).Round(time.Millisecond))
	}

	failures := results.Failures()
	if len(failures) == 0 {
		passColor.Fprintf(w, "All tests passed\n")
		return
	}

	fmt.Fprintf(w, "\nFailures (%d):\n", len(failures))
	for _, rec := range failures {
		printFailure(w, rec)
	}
}

func printFailure(w io.Writer, rec ResultRecord) {
	marker := failColor
	label := "FAILED"
	if rec.Outcome == OutcomeError {
		marker = errorColor
		label = "ERROR"
	}
	if rec.Severity == SeveritySecurity {
		marker = securityColor
		label = "SECURITY REGRESSION"
	}
	marker.Fprintf(w, "\n%s: %s\n", label, rec.ID())
	if rec.Detail == nil {
		return
	}
	if rec.Detail.Request != nil {
		fmt.Fprintf(w, "  request:  %s %s\n", rec.Detail.Request.Method, rec.Detail.Request.URL)
		if rec.Detail.Request.Body != "" {
			fmt.Fprintf(w, "  body:     %s\n", rec.Detail.Request.Body)
		}
	}
	if rec.Detail.Expected != "" {
		fmt.Fprintf(w, "  expected: %s\n", rec.Detail.Expected)
	}
	if rec.Detail.Actual != "" {
		fmt.Fprintf(w, "  actual:   %s\n", rec.Detail.Actual)
	}
	for _, m := range rec.Detail.Messages {
		fmt.Fprintf(w, "  %s\n", m)
	}
	if rec.Detail.Repro != "" {
		fmt.Fprintf(w, "  repro:    %s\n", rec.Detail.Repro)
	}
}

// PrintFilterDescription explains up front which tests will be skipped, so a
// filtered run is never mistaken for a full one.
func PrintFilterDescription(w io.Writer, filters RegexFilters) {
	if !filters.IsDefined() {
		return
	}
	fmt.Fprintln(w, "Some tests will be skipped based on the filter criteria for this test run:")
	if filters.MustMatch.IsDefined() {
		fmt.Fprintf(w, "  skip any not matching %s\n", filters.MustMatch)
	}
	if filters.MustNotMatch.IsDefined() {
		fmt.Fprintf(w, "  skip any matching %s\n", filters.MustNotMatch)
	}
	fmt.Fprintln(w)
}

// SuiteReport is the machine-parseable rendering of a run's results.
type SuiteReport struct {
	StartedAt           time.Time      `json:"startedAt"`
	FinishedAt          time.Time      `json:"finishedAt"`
	Pass                int            `json:"pass"`
	Fail                int            `json:"fail"`
	Error               int            `json:"error"`
	SecurityRegressions int            `json:"securityRegressions"`
	Records             []ResultRecord `json:"records"`
	Failures            []ResultRecord `json:"failures,omitempty"`
}

// NewSuiteReport summarizes results into the structured report form.
func NewSuiteReport(results Results) SuiteReport {
	return SuiteReport{
		StartedAt:           results.StartTime,
		FinishedAt:          results.EndTime,
		Pass:                results.Count(OutcomePass),
		Fail:                results.Count(OutcomeFail),
		Error:               results.Count(OutcomeError),
		SecurityRegressions: len(results.SecurityRegressions()),
		Records:             results.Records,
		Failures:            results.Failures(),
	}
}

// WriteJSONReport writes the structured report to a file.
func WriteJSONReport(path string, results Results) error {
	data, err := json.MarshalIndent(NewSuiteReport(results), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
