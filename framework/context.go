package framework

import (
	"errors"
	"fmt"
	"runtime/debug"
	"time"
)

type environment struct {
	results    Results
	testLogger TestLogger
	filter     Filter
}

// Context is passed to every piece of test logic, analogous to Go's *testing.T.
// Assertion failures accumulate on it; FailNow, Abortf, and Skip unwind the
// current scope with a panic that is recovered by the framework.
type Context struct {
	env         *environment
	scope       Scope
	debugLogger CapturingLogger
	started     time.Time
	failed      bool
	errored     bool
	security    bool
	skipped     bool
	skipReason  string
	errors      []error
	detail      Detail
}

// Run executes a top-level test action and returns the accumulated results.
// Each concurrent worker calls Run once, so every worker owns its buffer.
func Run(filter Filter, testLogger TestLogger, action func(*Context)) Results {
	if testLogger == nil {
		testLogger = nullTestLogger{}
	}
	env := &environment{
		filter:     filter,
		testLogger: testLogger,
	}
	env.results.StartTime = time.Now()
	c := &Context{env: env, started: time.Now()}
	c.run(action)
	env.results.EndTime = time.Now()
	return env.results
}

func (c *Context) run(action func(*Context)) {
	defer func() {
		if r := recover(); r != nil {
			if c.skipped {
				return
			}
			if _, ok := r.(*Context); ok {
				if !c.failed && !c.errored {
					c.failed = true
					err := errors.New("test failed with no failure message")
					c.errors = append(c.errors, err)
					c.env.testLogger.TestError(c.scope.ID(), err)
				}
			} else {
				c.errored = true
				err := fmt.Errorf("unexpected panic in test: %+v\n%s", r, string(debug.Stack()))
				c.errors = append(c.errors, err)
				c.env.testLogger.TestError(c.scope.ID(), err)
			}
		}
		c.record()
	}()

	action(c)
}

// record appends a ResultRecord for leaf scopes. Scopes without a phase are
// structural (endpoint, method) and produce no record of their own.
func (c *Context) record() {
	if c.skipped || c.scope.Phase == "" {
		return
	}
	rec := ResultRecord{
		URI:        c.scope.URI,
		Method:     c.scope.Method,
		Phase:      c.scope.Phase,
		Case:       c.scope.Case,
		Outcome:    c.outcome(),
		Severity:   SeverityNormal,
		DurationMS: time.Since(c.started).Milliseconds(),
	}
	if c.security {
		rec.Severity = SeveritySecurity
	}
	if rec.Outcome != OutcomePass {
		d := c.detail
		for _, e := range c.errors {
			d.Messages = append(d.Messages, e.Error())
		}
		rec.Detail = &d
	}
	c.env.results.Append(rec)
}

func (c *Context) outcome() Outcome {
	switch {
	case c.errored:
		return OutcomeError
	case c.failed:
		return OutcomeFail
	default:
		return OutcomePass
	}
}

// Scope returns the context's current scope.
func (c *Context) Scope() Scope {
	return c.scope
}

// ID returns the context's test identifier.
func (c *Context) ID() TestID {
	return c.scope.ID()
}

// Run executes a child scope. The child inherits any scope fields it does not
// set itself. It returns the child's outcome so callers can short-circuit
// sequences on precondition failures; filtered-out and skipped scopes report
// OutcomePass.
func (c *Context) Run(scope Scope, action func(*Context)) Outcome {
	merged := c.scope.merge(scope)
	id := merged.ID()

	c.env.testLogger.TestStarted(id)
	if c.env.filter != nil && !c.env.filter(id) {
		c.env.testLogger.TestSkipped(id, "excluded by filter parameters")
		return OutcomePass
	}
	c1 := &Context{
		env:     c.env,
		scope:   merged,
		started: time.Now(),
	}
	c1.run(action)
	if c1.skipped {
		c.env.testLogger.TestSkipped(id, c1.skipReason)
		return OutcomePass
	}
	outcome := c1.outcome()
	severity := SeverityNormal
	if c1.security {
		severity = SeveritySecurity
	}
	c.env.testLogger.TestFinished(id, outcome, severity, c1.debugLogger.Output())
	return outcome
}

// Errorf records an assertion failure and keeps running the current scope.
func (c *Context) Errorf(format string, args ...interface{}) {
	c.failed = true
	err := fmt.Errorf(format, args...)
	c.errors = append(c.errors, err)
	c.env.testLogger.TestError(c.scope.ID(), err)
}

// SecurityErrorf records an assertion failure at security severity: an
// unauthorized identity succeeded where denial was expected.
func (c *Context) SecurityErrorf(format string, args ...interface{}) {
	c.security = true
	c.Errorf(format, args...)
}

// Abortf records that the scope could not be evaluated at all and stops it.
// The resulting record has OutcomeError rather than OutcomeFail.
func (c *Context) Abortf(format string, args ...interface{}) {
	c.errored = true
	err := fmt.Errorf(format, args...)
	c.errors = append(c.errors, err)
	c.env.testLogger.TestError(c.scope.ID(), err)
	panic(c)
}

// FailNow stops the current scope immediately. If no failure message was
// recorded beforehand, a generic one is added.
func (c *Context) FailNow() {
	panic(c)
}

func (c *Context) Skip() {
	c.skipped = true
	panic(c)
}

func (c *Context) SkipWithReason(reason string) {
	c.skipReason = reason
	c.Skip()
}

// SetRequest attaches a snapshot of the request under evaluation, included in
// the record's detail if the scope does not pass.
func (c *Context) SetRequest(info RequestInfo) {
	c.detail.Request = &info
}

// SetComparison attaches the expected-versus-actual descriptions.
func (c *Context) SetComparison(expected, actual string) {
	c.detail.Expected = expected
	c.detail.Actual = actual
}

// SetRepro attaches a shell command that reproduces the request.
func (c *Context) SetRepro(command string) {
	c.detail.Repro = command
}

// Debug writes to the context's captured debug log, which the test logger may
// dump for failed (or all) scopes.
func (c *Context) Debug(message string, args ...interface{}) {
	c.debugLogger.Printf(message, args...)
}

// DebugLogger returns a Logger that writes to the captured debug output.
func (c *Context) DebugLogger() Logger {
	return &c.debugLogger
}
