package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfrest/api-contract-tests/framework"
)

func makeTestID(name string) framework.TestID {
	return framework.TestID{Path: []string{name}}
}

func TestReadCommandParams(t *testing.T) {
	var p commandParams
	ok := p.Read([]string{"api-contract-tests",
		"-url", "https://172.16.209.129",
		"-descriptors", "./descriptors",
		"-client-id", "admin",
		"-client-token", "pfsense",
		"-parallel", "8",
		"-run-timeout", "5m",
		"-decoy-privilege", "page-dashboard-all",
		"-decoy-privilege", "page-system-usermanager",
		"-run", "syslogd",
		"-skip", "DELETE",
	})
	require.True(t, ok)
	assert.Equal(t, "https://172.16.209.129", p.targetURL)
	assert.Equal(t, "./descriptors", p.descriptorDir)
	assert.Equal(t, 8, p.parallel)
	assert.Equal(t, 5*time.Minute, p.runTimeout)
	assert.Equal(t, stringList{"page-dashboard-all", "page-system-usermanager"}, p.decoyPrivileges)
	assert.True(t, p.filters.IsDefined())
	assert.True(t, p.filters.AsFilter(makeTestID("/api/v1/services/syslogd/stop/POST/functional/stop")))
	assert.False(t, p.filters.AsFilter(makeTestID("/api/v1/user/DELETE/privilege-check/deny without privileges")))
}

func TestReadRequiresDescriptorDirectory(t *testing.T) {
	var p commandParams
	assert.False(t, p.Read([]string{"api-contract-tests", "-url", "http://10.0.0.1"}))
}

func TestReadRequiresTargetAndCredentialsUnlessListing(t *testing.T) {
	t.Setenv("PFAPI_CLIENT_ID", "")
	t.Setenv("PFAPI_CLIENT_TOKEN", "")

	var p commandParams
	assert.False(t, p.Read([]string{"api-contract-tests", "-descriptors", "./descriptors"}))

	var listOnly commandParams
	assert.True(t, listOnly.Read([]string{"api-contract-tests", "-descriptors", "./descriptors", "-list"}))
}

func TestCredentialsFallBackToEnvironment(t *testing.T) {
	t.Setenv("PFAPI_CLIENT_ID", "envadmin")
	t.Setenv("PFAPI_CLIENT_TOKEN", "envtoken")

	var p commandParams
	ok := p.Read([]string{"api-contract-tests",
		"-url", "http://10.0.0.1",
		"-descriptors", "./descriptors",
	})
	require.True(t, ok)
	assert.Equal(t, "envadmin", p.clientID)
	assert.Equal(t, "envtoken", p.clientToken)
}
