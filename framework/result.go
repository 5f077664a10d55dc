package framework

import (
	"strings"
	"time"
)

// Phase identifies which stage of endpoint verification produced a record.
type Phase string

const (
	// PhasePrivilege is the authorization-boundary verification stage.
	PhasePrivilege Phase = "privilege-check"
	// PhaseFunctional is the ordered functional test case stage.
	PhaseFunctional Phase = "functional"
)

// Outcome is the verdict for a single privilege check or functional case.
type Outcome string

const (
	OutcomePass Outcome = "pass"
	OutcomeFail Outcome = "fail"
	// OutcomeError means the check could not be evaluated at all (transport
	// failure, malformed response, timeout), as opposed to a failed assertion.
	OutcomeError Outcome = "error"
)

// Severity distinguishes ordinary assertion failures from security regressions.
type Severity string

const (
	SeverityNormal Severity = "normal"
	// SeveritySecurity marks a failure where an unauthorized identity succeeded
	// where denial was expected. These are never suppressed or batched away.
	SeveritySecurity Severity = "security"
)

// Scope describes where in the suite a piece of test logic runs. Fields are
// filled in progressively as contexts nest: endpoint URI, then HTTP method,
// then phase and case name.
type Scope struct {
	URI    string `json:"uri,omitempty"`
	Method string `json:"method,omitempty"`
	Phase  Phase  `json:"phase,omitempty"`
	Case   string `json:"case,omitempty"`
}

func (s Scope) merge(child Scope) Scope {
	out := s
	if child.URI != "" {
		out.URI = child.URI
	}
	if child.Method != "" {
		out.Method = child.Method
	}
	if child.Phase != "" {
		out.Phase = child.Phase
	}
	if child.Case != "" {
		out.Case = child.Case
	}
	return out
}

// ID returns the scope as a path-style test identifier, used for logging and
// for matching against the -run/-skip filters.
func (s Scope) ID() TestID {
	var path []string
	for _, p := range []string{s.URI, s.Method, string(s.Phase), s.Case} {
		if p != "" {
			path = append(path, p)
		}
	}
	return TestID{Path: path}
}

// TestID identifies a test scope as a path of names.
type TestID struct {
	Path []string
}

func (t TestID) String() string {
	return strings.Join(t.Path, "/")
}

// RequestInfo is a snapshot of the HTTP request a record was produced for.
type RequestInfo struct {
	Method string `json:"method"`
	URL    string `json:"url"`
	Body   string `json:"body,omitempty"`
}

// Detail carries enough diagnostic context to reproduce a failure without
// re-running the suite.
type Detail struct {
	Request  *RequestInfo `json:"request,omitempty"`
	Expected string       `json:"expected,omitempty"`
	Actual   string       `json:"actual,omitempty"`
	Repro    string       `json:"repro,omitempty"`
	Messages []string     `json:"messages,omitempty"`
}

// ResultRecord is one outcome unit: a single privilege check or functional case.
type ResultRecord struct {
	URI        string   `json:"uri"`
	Method     string   `json:"method"`
	Phase      Phase    `json:"phase"`
	Case       string   `json:"case,omitempty"`
	Outcome    Outcome  `json:"outcome"`
	Severity   Severity `json:"severity"`
	DurationMS int64    `json:"durationMs"`
	Detail     *Detail  `json:"detail,omitempty"`
}

// ID reconstructs the scope identifier for the record.
func (r ResultRecord) ID() TestID {
	return Scope{URI: r.URI, Method: r.Method, Phase: r.Phase, Case: r.Case}.ID()
}

// Results accumulates the records of one run or one worker. A Results value is
// not safe for concurrent use; concurrent workers each own a buffer and the
// orchestrator merges them under its own lock.
type Results struct {
	StartTime time.Time
	EndTime   time.Time
	Records   []ResultRecord
}

func (r *Results) Append(rec ResultRecord) {
	r.Records = append(r.Records, rec)
}

// Merge folds another worker's buffer into this one, extending the time range.
func (r *Results) Merge(other Results) {
	r.Records = append(r.Records, other.Records...)
	if r.StartTime.IsZero() || (!other.StartTime.IsZero() && other.StartTime.Before(r.StartTime)) {
		r.StartTime = other.StartTime
	}
	if other.EndTime.After(r.EndTime) {
		r.EndTime = other.EndTime
	}
}

// OK reports whether every record passed.
func (r Results) OK() bool {
	for _, rec := range r.Records {
		if rec.Outcome != OutcomePass {
			return false
		}
	}
	return true
}

func (r Results) Count(o Outcome) int {
	n := 0
	for _, rec := range r.Records {
		if rec.Outcome == o {
			n++
		}
	}
	return n
}

// Failures returns every record that did not pass, in recording order.
func (r Results) Failures() []ResultRecord {
	var out []ResultRecord
	for _, rec := range r.Records {
		if rec.Outcome != OutcomePass {
			out = append(out, rec)
		}
	}
	return out
}

// SecurityRegressions returns the failures where an authorization boundary did
// not hold.
func (r Results) SecurityRegressions() []ResultRecord {
	var out []ResultRecord
	for _, rec := range r.Records {
		if rec.Outcome != OutcomePass && rec.Severity == SeveritySecurity {
			out = append(out, rec)
		}
	}
	return out
}
