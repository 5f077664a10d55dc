package apitests

import (
	"context"
	"fmt"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"github.com/pfrest/api-contract-tests/descriptor"
	"github.com/pfrest/api-contract-tests/framework"
)

// runPrivilegeMatrix proves that the authorization boundary for a method is
// exactly its declared privilege set: denied with no privileges, denied with
// an insufficient privilege, accepted with the declared set. The matrix uses
// a minimal request (no parameters) and judges only the authorization layer;
// functional behavior under the accepted identity is the sequencer's job.
func (w *worker) runPrivilegeMatrix(ctx context.Context, c *framework.Context, d *descriptor.Descriptor, m descriptor.Method) {
	privileges, _ := d.MethodPrivileges(m)

	if len(privileges) == 0 {
		// Publicly accessible: the deny steps do not apply, and acceptance is
		// verified without any identity at all.
		w.runCheck(ctx, c, framework.Scope{Phase: framework.PhasePrivilege, Case: "accept unauthenticated (public)"}, func(c *framework.Context) {
			w.sess.Logout()
			resp := w.issue(ctx, c, m, d.URI, ldvalue.Null())
			c.SetComparison("not denied at the authorization layer", resp.Summary())
			if resp.Denied() {
				c.Errorf("publicly declared endpoint denied an unauthenticated request: %s", resp.Summary())
			}
		})
		return
	}

	w.runCheck(ctx, c, framework.Scope{Phase: framework.PhasePrivilege, Case: "deny without privileges"}, func(c *framework.Context) {
		w.loginWithPrivileges(ctx, c, nil)
		resp := w.issue(ctx, c, m, d.URI, ldvalue.Null())
		c.SetComparison("HTTP 401 or 403", resp.Summary())
		if resp.Denied() {
			return
		}
		if resp.Success() {
			c.SecurityErrorf("identity with no privileges was accepted: %s", resp.Summary())
			return
		}
		c.Errorf("expected an authorization denial for an identity with no privileges, got %s", resp.Summary())
	})

	if decoy := w.decoyFor(privileges); decoy != "" {
		caseName := fmt.Sprintf("deny with insufficient privilege %q", decoy)
		w.runCheck(ctx, c, framework.Scope{Phase: framework.PhasePrivilege, Case: caseName}, func(c *framework.Context) {
			w.loginWithPrivileges(ctx, c, []string{decoy})
			resp := w.issue(ctx, c, m, d.URI, ldvalue.Null())
			c.SetComparison("HTTP 401 or 403", resp.Summary())
			if resp.Denied() {
				return
			}
			if resp.Success() {
				c.SecurityErrorf("identity holding only %q was accepted: %s", decoy, resp.Summary())
				return
			}
			c.Errorf("expected an authorization denial for privilege %q, got %s", decoy, resp.Summary())
		})
	}

	w.runCheck(ctx, c, framework.Scope{Phase: framework.PhasePrivilege, Case: "accept with declared privileges"}, func(c *framework.Context) {
		w.loginWithPrivileges(ctx, c, privileges)
		resp := w.issue(ctx, c, m, d.URI, ldvalue.Null())
		c.SetComparison("not denied at the authorization layer", resp.Summary())
		if resp.Denied() {
			c.Errorf("identity holding exactly %v was denied at the authorization layer: %s", privileges, resp.Summary())
		}
	})
}
