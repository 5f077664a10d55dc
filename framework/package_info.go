// Package framework contains the low-level test harness infrastructure that is not
// specific to any particular API under test.
//
// The general model is:
//
// 1. There is a notion of a test context which is similar to Go's *testing.T,
// allowing pieces of test logic to be associated with a scope (endpoint, method,
// phase, case) and to accumulate success/failure results.
//
// 2. Each leaf scope that has a phase produces one ResultRecord. Records from
// concurrently running workers are kept in per-worker Results buffers and merged
// when the workers complete.
//
// 3. The final Results can be rendered as a console report and as a structured
// JSON report, and determine the process exit status.
//
// The domain-specific code that knows what is being tested (descriptor loading,
// authentication, privilege checks) lives in the other packages.
package framework
