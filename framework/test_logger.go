package framework

// TestLogger receives progress callbacks during a run. Implementations must be
// safe for concurrent use, since workers for different endpoints report
// interleaved.
type TestLogger interface {
	TestStarted(id TestID)
	TestError(id TestID, err error)
	TestFinished(id TestID, outcome Outcome, severity Severity, debugOutput CapturedOutput)
	TestSkipped(id TestID, reason string)
}

type nullTestLogger struct{}

func (n nullTestLogger) TestStarted(TestID)                                     {}
func (n nullTestLogger) TestError(TestID, error)                                {}
func (n nullTestLogger) TestFinished(TestID, Outcome, Severity, CapturedOutput) {}
func (n nullTestLogger) TestSkipped(TestID, string)                             {}
