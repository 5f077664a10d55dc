package apitests

import (
	"fmt"
	"strings"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"github.com/pfrest/api-contract-tests/descriptor"
	"github.com/pfrest/api-contract-tests/framework"
	"github.com/pfrest/api-contract-tests/harness"
)

// evaluateExpectation checks a functional response against a case's declared
// expectation. A nil expectation defaults to success: a 2xx status, plus a
// zero API return code when the body carries the standard envelope.
func evaluateExpectation(c *framework.Context, exp *descriptor.Expect, resp *harness.Response) {
	if exp == nil {
		exp = &descriptor.Expect{StatusClass: descriptor.ClassSuccess}
	}
	c.SetComparison(describeExpect(exp), resp.Summary())

	switch {
	case exp.Status != 0:
		if resp.Status != exp.Status {
			c.Errorf("expected HTTP %d, got %s", exp.Status, resp.Summary())
		}
	case exp.StatusClass == descriptor.ClassFailure:
		if resp.Success() {
			c.Errorf("expected a failure response, got %s", resp.Summary())
		}
	default:
		if !resp.Success() {
			c.Errorf("expected a success response, got %s", resp.Summary())
		} else if resp.Envelope != nil && resp.Envelope.Return != 0 {
			c.Errorf("expected API return code 0, got %s", resp.Summary())
		}
	}

	for _, want := range exp.BodyContains {
		if !strings.Contains(string(resp.Body), want) {
			c.Errorf("response body does not contain %q", want)
		}
	}

	if len(exp.Data) > 0 {
		if resp.Envelope == nil {
			c.Errorf("expected a data fragment but the response carried no envelope")
			return
		}
		expected := ldvalue.CopyArbitraryValue(exp.Data)
		actual := ldvalue.Parse(resp.Envelope.Data)
		if !fragmentMatch(expected, actual) {
			c.Errorf("response data %s does not contain the expected fragment %s",
				actual.JSONString(), expected.JSONString())
		}
	}
}

// fragmentMatch reports whether expected is a recursive subset of actual:
// every key in an expected object must be present in the actual object and
// match; non-object values must be equal.
func fragmentMatch(expected, actual ldvalue.Value) bool {
	if expected.Type() == ldvalue.ObjectType && actual.Type() == ldvalue.ObjectType {
		for _, key := range expected.Keys() {
			if !fragmentMatch(expected.GetByKey(key), actual.GetByKey(key)) {
				return false
			}
		}
		return true
	}
	return expected.Equal(actual)
}

func describeExpect(exp *descriptor.Expect) string {
	var parts []string
	switch {
	case exp.Status != 0:
		parts = append(parts, fmt.Sprintf("HTTP %d", exp.Status))
	case exp.StatusClass == descriptor.ClassFailure:
		parts = append(parts, "a failure response (non-2xx)")
	default:
		parts = append(parts, "a success response (2xx, return 0)")
	}
	for _, s := range exp.BodyContains {
		parts = append(parts, fmt.Sprintf("body containing %q", s))
	}
	if len(exp.Data) > 0 {
		parts = append(parts, fmt.Sprintf("data fragment %s", ldvalue.CopyArbitraryValue(exp.Data).JSONString()))
	}
	return strings.Join(parts, ", and ")
}
