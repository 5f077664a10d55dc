// Package apitests drives the endpoint contract tests themselves: the
// privilege matrix and the ordered functional sequences declared by each
// descriptor.
//
// Harness infrastructure that is not specific to this domain, such as result
// accumulation and filtering, is in the lower-level framework package; talking
// to the target system lives in the harness package.
package apitests
