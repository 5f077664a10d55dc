package apitests

import (
	"context"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"github.com/pfrest/api-contract-tests/descriptor"
	"github.com/pfrest/api-contract-tests/framework"
)

// runFunctionalSequence executes a method's functional cases strictly in
// declaration order, on the same session under the correctly privileged
// identity. Later cases may depend on state mutated by earlier ones, so the
// order is part of the contract. A failing case does not stop the sequence
// unless it is marked as a precondition, in which case the remainder of this
// method's sequence is skipped; other methods and descriptors are unaffected.
func (w *worker) runFunctionalSequence(ctx context.Context, c *framework.Context, d *descriptor.Descriptor, m descriptor.Method) {
	cases := d.MethodTests(m)
	if len(cases) == 0 {
		return
	}
	privileges, _ := d.MethodPrivileges(m)

	preconditionFailed := false
	for _, tc := range cases {
		tc := tc
		scope := framework.Scope{Phase: framework.PhaseFunctional, Case: tc.Name}

		if preconditionFailed {
			c.Run(scope, func(c *framework.Context) {
				c.SkipWithReason("a precondition case failed earlier in this sequence")
			})
			continue
		}

		outcome := w.runCheck(ctx, c, scope, func(c *framework.Context) {
			if len(privileges) == 0 {
				w.sess.Logout()
			} else {
				w.loginWithPrivileges(ctx, c, privileges)
			}
			resp := w.issue(ctx, c, m, d.URI, caseParams(tc))
			evaluateExpectation(c, tc.Expect, resp)
		})
		if tc.Precondition && outcome != framework.OutcomePass {
			preconditionFailed = true
		}
	}
}

func caseParams(tc descriptor.TestCase) ldvalue.Value {
	if tc.Params == nil {
		return ldvalue.Null()
	}
	return ldvalue.CopyArbitraryValue(tc.Params)
}
