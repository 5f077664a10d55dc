// Command api-contract-tests runs declarative end-to-end contract tests
// against a privilege-gated REST API. It discovers per-endpoint descriptors,
// verifies each declared method's authorization boundary, then executes the
// descriptor's ordered functional cases, and reports the aggregate outcome.
//
// Exit status: 0 when every check passed, 1 on any test failure or error,
// 2 on a configuration problem (bad flags, invalid or duplicate descriptors).
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/pfrest/api-contract-tests/apitests"
	"github.com/pfrest/api-contract-tests/descriptor"
	"github.com/pfrest/api-contract-tests/framework"
	"github.com/pfrest/api-contract-tests/harness"
)

const (
	exitFailure = 1
	exitConfig  = 2

	startupProbeTimeout = 10 * time.Second
)

func main() {
	var params commandParams
	if !params.Read(os.Args) {
		os.Exit(exitConfig)
	}

	mainDebugLogger := framework.NullLogger()
	if params.debugAll {
		mainDebugLogger = log.New(os.Stdout, "", log.LstdFlags)
	}

	registry, err := descriptor.LoadDir(params.descriptorDir, mainDebugLogger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitConfig)
	}
	if registry.Len() == 0 {
		fmt.Fprintf(os.Stderr, "no descriptors found under %s\n", params.descriptorDir)
		os.Exit(exitConfig)
	}

	if params.listOnly {
		printDescriptorList(registry)
		return
	}

	harnessConfig := harness.Config{
		BaseURL:        params.targetURL,
		ClientID:       params.clientID,
		ClientToken:    params.clientToken,
		LocalAuth:      params.localAuth,
		TLSSkipVerify:  params.insecure,
		RequestTimeout: params.requestTimeout,
		RetryMax:       params.retries,
		Logger:         mainDebugLogger,
	}
	if err := harnessConfig.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitConfig)
	}

	fmt.Println()
	framework.PrintFilterDescription(os.Stdout, params.filters)

	if err := harness.WaitReachable(harnessConfig, startupProbeTimeout, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Target system error: %s\n", err)
		os.Exit(exitFailure)
	}

	fmt.Println("Running test suite")
	testLogger := &ConsoleTestLogger{
		DebugOutputOnFailure: params.debug || params.debugAll,
		DebugOutputOnSuccess: params.debugAll,
	}

	suiteConfig := apitests.SuiteConfig{
		Harness:         harnessConfig,
		Parallel:        params.parallel,
		RunTimeout:      params.runTimeout,
		DecoyPrivileges: params.decoyPrivileges,
	}
	results := apitests.RunTestSuite(context.Background(), suiteConfig, registry, params.filters.AsFilter, testLogger)

	fmt.Println()
	framework.PrintResults(os.Stdout, results)

	if params.reportPath != "" {
		if err := framework.WriteJSONReport(params.reportPath, results); err != nil {
			fmt.Fprintf(os.Stderr, "Cannot write report: %s\n", err)
			os.Exit(exitFailure)
		}
		fmt.Printf("Report written to %s\n", params.reportPath)
	}

	if !results.OK() {
		os.Exit(exitFailure)
	}
}

func printDescriptorList(registry *descriptor.Registry) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"URI", "Methods", "Cases", "Serial Group"})
	for _, d := range registry.Descriptors() {
		var methods []string
		cases := 0
		for _, m := range d.Methods() {
			methods = append(methods, string(m))
			cases += len(d.MethodTests(m))
		}
		tw.AppendRow(table.Row{d.URI, strings.Join(methods, ", "), cases, d.SerialGroup})
	}
	tw.Render()
}
