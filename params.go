package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pfrest/api-contract-tests/framework"
)

const (
	defaultParallel       = 4
	defaultRequestTimeout = 30 * time.Second
	defaultRetries        = 3
)

type commandParams struct {
	targetURL       string
	descriptorDir   string
	clientID        string
	clientToken     string
	localAuth       bool
	insecure        bool
	parallel        int
	runTimeout      time.Duration
	requestTimeout  time.Duration
	retries         int
	reportPath      string
	listOnly        bool
	decoyPrivileges stringList
	filters         framework.RegexFilters
	debug           bool
	debugAll        bool
}

func (c *commandParams) Read(args []string) bool {
	fs := flag.NewFlagSet("", flag.ContinueOnError)
	fs.StringVar(&c.targetURL, "url", "", "base URL of the target system")
	fs.StringVar(&c.descriptorDir, "descriptors", "", "directory containing endpoint descriptor declarations")
	fs.StringVar(&c.clientID, "client-id", os.Getenv("PFAPI_CLIENT_ID"), "administrative client ID (or $PFAPI_CLIENT_ID)")
	fs.StringVar(&c.clientToken, "client-token", os.Getenv("PFAPI_CLIENT_TOKEN"), "administrative client token (or $PFAPI_CLIENT_TOKEN)")
	fs.BoolVar(&c.localAuth, "local-auth", false, "use HTTP basic authentication instead of token exchange")
	fs.BoolVar(&c.insecure, "insecure", false, "skip TLS certificate verification")
	fs.IntVar(&c.parallel, "parallel", defaultParallel, "maximum number of endpoints tested concurrently")
	fs.DurationVar(&c.runTimeout, "run-timeout", 0, "overall run timeout (0 means none)")
	fs.DurationVar(&c.requestTimeout, "request-timeout", defaultRequestTimeout, "per-request timeout")
	fs.IntVar(&c.retries, "retries", defaultRetries, "retry bound for transient transport failures")
	fs.StringVar(&c.reportPath, "report", "", "write a JSON suite report to this file")
	fs.BoolVar(&c.listOnly, "list", false, "list discovered descriptors without issuing any request")
	fs.Var(&c.decoyPrivileges, "decoy-privilege", "privilege(s) to use for the near-miss denial check")
	fs.Var(&c.filters.MustMatch, "run", "regex pattern(s) to select tests to run")
	fs.Var(&c.filters.MustNotMatch, "skip", "regex pattern(s) to select tests not to run")
	fs.BoolVar(&c.debug, "debug", false, "enable debug logging for failed tests")
	fs.BoolVar(&c.debugAll, "debug-all", false, "enable debug logging for all tests")

	if err := fs.Parse(args[1:]); err != nil {
		return false
	}
	if c.descriptorDir == "" {
		fmt.Fprintln(os.Stderr, "-descriptors is required")
		fs.Usage()
		return false
	}
	if !c.listOnly {
		if c.targetURL == "" {
			fmt.Fprintln(os.Stderr, "-url is required")
			fs.Usage()
			return false
		}
		if c.clientID == "" || c.clientToken == "" {
			fmt.Fprintln(os.Stderr, "administrative credentials are required (-client-id/-client-token or PFAPI_CLIENT_ID/PFAPI_CLIENT_TOKEN)")
			fs.Usage()
			return false
		}
	}
	return true
}

type stringList []string

func (s stringList) String() string {
	return strings.Join(s, ", ")
}

func (s *stringList) Set(value string) error {
	if value == "" {
		return fmt.Errorf("empty value")
	}
	*s = append(*s, value)
	return nil
}
