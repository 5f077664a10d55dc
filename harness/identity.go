package harness

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"github.com/pfrest/api-contract-tests/framework"
)

const userURI = "/api/v1/user"

// IdentityProvider yields credentials for an identity holding exactly the
// requested privilege set. Exactness matters: an identity with extra privileges
// cannot prove that a narrower grant is insufficient.
type IdentityProvider interface {
	Identity(ctx context.Context, privileges []string) (Credentials, error)
	Close(ctx context.Context) error
}

// UserProvisioner implements IdentityProvider by creating ephemeral users
// through the target's own user management endpoint, using an administrative
// session. Identities are cached per privilege-set signature and removed again
// on Close.
type UserProvisioner struct {
	admin   *Session
	logger  framework.Logger
	cache   map[string]Credentials
	created []string
}

// NewUserProvisioner wraps an already-authenticated administrative session.
// The session stays bound to the admin identity for the provisioner's whole
// lifetime; workers use a separate session for the identities under test.
func NewUserProvisioner(admin *Session, logger framework.Logger) *UserProvisioner {
	if logger == nil {
		logger = framework.NullLogger()
	}
	return &UserProvisioner{
		admin:  admin,
		logger: logger,
		cache:  make(map[string]Credentials),
	}
}

// Identity returns credentials for a user holding exactly the given
// privileges. An empty set provisions a user with no privileges at all, which
// is distinct from an unauthenticated request.
func (p *UserProvisioner) Identity(ctx context.Context, privileges []string) (Credentials, error) {
	sig := strings.Join(privileges, ",")
	if creds, ok := p.cache[sig]; ok {
		return creds, nil
	}

	username := "e2e-" + uuid.NewString()[:8]
	password := uuid.NewString()
	params := map[string]interface{}{
		"username": username,
		"password": password,
		"descr":    "contract test identity (auto-provisioned)",
		"priv":     privileges,
	}
	if privileges == nil {
		params["priv"] = []string{}
	}

	p.logger.Printf("Provisioning identity %q with privileges %v", username, privileges)
	resp, err := p.admin.Request(ctx, http.MethodPost, userURI, ldvalue.CopyArbitraryValue(params))
	if err != nil {
		return Credentials{}, &AuthError{Identity: username, Err: err}
	}
	if !resp.Success() {
		return Credentials{}, &AuthError{
			Identity: username,
			Err:      fmt.Errorf("user creation rejected: %s", resp.Summary()),
		}
	}

	creds := Credentials{Username: username, Password: password}
	p.cache[sig] = creds
	p.created = append(p.created, username)
	return creds, nil
}

// Close removes every user this provisioner created. Failures are collected
// rather than short-circuiting, so one stubborn user does not leak the rest.
func (p *UserProvisioner) Close(ctx context.Context) error {
	var errs []error
	for _, username := range p.created {
		p.logger.Printf("Removing identity %q", username)
		params := ldvalue.CopyArbitraryValue(map[string]interface{}{"username": username})
		resp, err := p.admin.Request(ctx, http.MethodDelete, userURI, params)
		if err != nil {
			errs = append(errs, fmt.Errorf("removing %q: %w", username, err))
			continue
		}
		if !resp.Success() {
			errs = append(errs, fmt.Errorf("removing %q: %s", username, resp.Summary()))
		}
	}
	p.created = nil
	p.cache = make(map[string]Credentials)
	return errors.Join(errs...)
}
