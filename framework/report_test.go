package framework

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResults() Results {
	start := time.Now().Add(-3 * time.Second)
	return Results{
		StartTime: start,
		EndTime:   start.Add(3 * time.Second),
		Records: []ResultRecord{
			{URI: "/api/v1/a", Method: "GET", Phase: PhasePrivilege, Case: "accept with declared privileges",
				Outcome: OutcomePass, Severity: SeverityNormal},
			{URI: "/api/v1/a", Method: "GET", Phase: PhaseFunctional, Case: "read",
				Outcome: OutcomeFail, Severity: SeverityNormal,
				Detail: &Detail{Expected: "HTTP 200", Actual: "HTTP 500", Messages: []string{"expected HTTP 200, got HTTP 500"}}},
			{URI: "/api/v1/b", Method: "POST", Phase: PhasePrivilege, Case: "deny without privileges",
				Outcome: OutcomeFail, Severity: SeveritySecurity,
				Detail: &Detail{Messages: []string{"unauthorized identity was accepted"}}},
			{URI: "/api/v1/c", Method: "DELETE", Phase: PhaseFunctional, Case: "stop",
				Outcome: OutcomeError, Severity: SeverityNormal,
				Detail: &Detail{Messages: []string{"connection refused"}}},
		},
	}
}

func TestNewSuiteReportCounts(t *testing.T) {
	report := NewSuiteReport(sampleResults())
	assert.Equal(t, 1, report.Pass)
	assert.Equal(t, 2, report.Fail)
	assert.Equal(t, 1, report.Error)
	assert.Equal(t, 1, report.SecurityRegressions)
	assert.Len(t, report.Records, 4)
	assert.Len(t, report.Failures, 3)
}

func TestWriteJSONReportRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, WriteJSONReport(path, sampleResults()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var report SuiteReport
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, 2, report.Fail)
	require.Len(t, report.Records, 4)
	assert.Equal(t, "/api/v1/a", report.Records[0].URI)
	assert.Equal(t, Phase("privilege-check"), report.Records[0].Phase)
}

func TestPrintResultsListsFailuresWithContext(t *testing.T) {
	var buf bytes.Buffer
	PrintResults(&buf, sampleResults())
	out := buf.String()

	assert.Contains(t, out, "SECURITY REGRESSION: /api/v1/b/POST/privilege-check/deny without privileges")
	assert.Contains(t, out, "FAILED: /api/v1/a/GET/functional/read")
	assert.Contains(t, out, "ERROR: /api/v1/c/DELETE/functional/stop")
	assert.Contains(t, out, "expected: HTTP 200")
	assert.Contains(t, out, "actual:   HTTP 500")
	assert.NotContains(t, out, "All tests passed")
}

func TestPrintResultsAllPassing(t *testing.T) {
	var buf bytes.Buffer
	PrintResults(&buf, Results{Records: []ResultRecord{
		{URI: "/api/v1/a", Method: "GET", Phase: PhaseFunctional, Case: "read", Outcome: OutcomePass},
	}})
	assert.Contains(t, buf.String(), "All tests passed")
}

func TestPrintFilterDescription(t *testing.T) {
	var buf bytes.Buffer
	var filters RegexFilters
	PrintFilterDescription(&buf, filters)
	assert.Empty(t, buf.String())

	require.NoError(t, filters.MustMatch.Set("arp"))
	PrintFilterDescription(&buf, filters)
	assert.Contains(t, buf.String(), `skip any not matching "arp"`)
}
