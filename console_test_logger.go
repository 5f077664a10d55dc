package main

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/pfrest/api-contract-tests/framework"
)

var (
	consoleFailColor     = color.New(color.FgRed)
	consoleErrorColor    = color.New(color.FgYellow)
	consoleSecurityColor = color.New(color.FgRed, color.Bold)
)

// ConsoleTestLogger prints per-test progress. Workers for different endpoints
// report concurrently, so output is serialized under a lock.
type ConsoleTestLogger struct {
	DebugOutputOnFailure bool
	DebugOutputOnSuccess bool

	lock sync.Mutex
}

func (c *ConsoleTestLogger) TestStarted(id framework.TestID) {
	c.lock.Lock()
	defer c.lock.Unlock()
	fmt.Printf("[%s]\n", id)
}

func (c *ConsoleTestLogger) TestError(id framework.TestID, err error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	for _, line := range strings.Split(err.Error(), "\n") {
		fmt.Printf("  %s\n", line)
	}
}

func (c *ConsoleTestLogger) TestFinished(id framework.TestID, outcome framework.Outcome, severity framework.Severity, debugOutput framework.CapturedOutput) {
	c.lock.Lock()
	defer c.lock.Unlock()
	switch {
	case severity == framework.SeveritySecurity && outcome != framework.OutcomePass:
		consoleSecurityColor.Printf("  SECURITY REGRESSION: %s\n", id)
	case outcome == framework.OutcomeFail:
		consoleFailColor.Printf("  FAILED: %s\n", id)
	case outcome == framework.OutcomeError:
		consoleErrorColor.Printf("  ERROR: %s\n", id)
	}
	failed := outcome != framework.OutcomePass
	if len(debugOutput) > 0 &&
		((failed && c.DebugOutputOnFailure) || (!failed && c.DebugOutputOnSuccess)) {
		debugOutput.Dump(os.Stdout, "    DEBUG ")
	}
}

func (c *ConsoleTestLogger) TestSkipped(id framework.TestID, reason string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if reason == "" {
		fmt.Printf("  SKIPPED: %s\n", id)
	} else {
		fmt.Printf("  SKIPPED: %s (%s)\n", id, reason)
	}
}
