package apitests

import (
	"context"
	"time"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"github.com/pfrest/api-contract-tests/descriptor"
	"github.com/pfrest/api-contract-tests/framework"
	"github.com/pfrest/api-contract-tests/harness"
)

const cleanupTimeout = 30 * time.Second

// worker drives everything for one descriptor (or one serial group of
// descriptors). It owns two sessions: the administrative one, which stays
// bound to the admin identity and backs identity provisioning, and the test
// session, which is re-authenticated per privilege check.
type worker struct {
	cfg      SuiteConfig
	admin    *harness.Session
	sess     *harness.Session
	ids      *harness.UserProvisioner
	ready    bool
	setupErr error
}

func newWorker(cfg SuiteConfig) *worker {
	return &worker{cfg: cfg}
}

func (w *worker) ensure(ctx context.Context) error {
	if w.ready {
		return nil
	}
	if w.setupErr != nil {
		return w.setupErr
	}
	w.setupErr = w.setup(ctx)
	if w.setupErr == nil {
		w.ready = true
	}
	return w.setupErr
}

func (w *worker) setup(ctx context.Context) error {
	admin, err := harness.NewSession(w.cfg.Harness)
	if err != nil {
		return err
	}
	adminCreds := harness.Credentials{
		Username: w.cfg.Harness.ClientID,
		Password: w.cfg.Harness.ClientToken,
	}
	if err := admin.Login(ctx, adminCreds); err != nil {
		return err
	}
	sess, err := harness.NewSession(w.cfg.Harness)
	if err != nil {
		return err
	}
	w.admin = admin
	w.sess = sess
	w.ids = harness.NewUserProvisioner(admin, w.cfg.Harness.Logger)
	return nil
}

func (w *worker) close() {
	if w.ids == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	if err := w.ids.Close(ctx); err != nil && w.cfg.Harness.Logger != nil {
		w.cfg.Harness.Logger.Printf("Identity cleanup left residue: %s", err)
	}
}

// runDescriptor exercises one endpoint: for each declared method, the
// privilege matrix first, then the functional sequence.
func (w *worker) runDescriptor(ctx context.Context, c *framework.Context, d *descriptor.Descriptor) {
	c.Run(framework.Scope{URI: d.URI}, func(c *framework.Context) {
		if err := w.ensure(ctx); err != nil {
			// Fatal for this descriptor only; sibling workers keep running.
			c.Run(framework.Scope{Phase: framework.PhasePrivilege, Case: "session setup"}, func(c *framework.Context) {
				c.Abortf("cannot establish a session with the target: %s", err)
			})
			return
		}
		for _, m := range d.Methods() {
			c.Run(framework.Scope{Method: string(m)}, func(c *framework.Context) {
				w.runPrivilegeMatrix(ctx, c, d, m)
				w.runFunctionalSequence(ctx, c, d, m)
			})
		}
	})
}

// runCheck wraps a leaf check, converting run-timeout expiry into an error
// record instead of silently dropping the remaining work.
func (w *worker) runCheck(ctx context.Context, c *framework.Context, scope framework.Scope, action func(*framework.Context)) framework.Outcome {
	return c.Run(scope, func(c *framework.Context) {
		if ctx.Err() != nil {
			c.Abortf("run timeout exceeded before this check could execute: %s", ctx.Err())
		}
		action(c)
	})
}

// issue sends one request on the test session, attaching the request snapshot
// and repro command to the context up front so they survive into any failure
// record. Transport failures abort the current check with an error outcome.
func (w *worker) issue(ctx context.Context, c *framework.Context, m descriptor.Method, uri string, params ldvalue.Value) *harness.Response {
	c.SetRequest(w.sess.RequestInfo(string(m), uri, params))
	c.SetRepro(w.sess.ReproCommand(string(m), uri, params))
	c.Debug("request: %s %s params=%s", m, uri, params.JSONString())
	resp, err := w.sess.Request(ctx, string(m), uri, params)
	if err != nil {
		c.Abortf("%s", err)
	}
	c.Debug("response: %s", resp.Summary())
	return resp
}

// loginWithPrivileges re-authenticates the test session as an identity holding
// exactly the given privilege set. A nil set means a real identity with zero
// privileges; use Logout for the unauthenticated state instead.
func (w *worker) loginWithPrivileges(ctx context.Context, c *framework.Context, privileges []string) {
	creds, err := w.ids.Identity(ctx, privileges)
	if err != nil {
		c.Abortf("%s", err)
	}
	if err := w.sess.Login(ctx, creds); err != nil {
		c.Abortf("%s", err)
	}
}

func (w *worker) decoyFor(privileges []string) string {
	for _, candidate := range w.cfg.DecoyPrivileges {
		if !containsString(privileges, candidate) {
			return candidate
		}
	}
	return ""
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
