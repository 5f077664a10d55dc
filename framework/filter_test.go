package framework

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeID(parts ...string) TestID {
	return TestID{Path: parts}
}

func TestFiltersWithNoPatternsRunEverything(t *testing.T) {
	var f RegexFilters
	assert.False(t, f.IsDefined())
	assert.True(t, f.AsFilter(makeID("/api/v1/system/arp", "GET", "privilege-check")))
}

func TestMustMatchSelectsSubset(t *testing.T) {
	var f RegexFilters
	require.NoError(t, f.MustMatch.Set("arp"))

	assert.True(t, f.AsFilter(makeID("/api/v1/system/arp", "GET")))
	assert.False(t, f.AsFilter(makeID("/api/v1/firewall/rule", "POST")))
}

func TestMustNotMatchExcludesSubset(t *testing.T) {
	var f RegexFilters
	require.NoError(t, f.MustNotMatch.Set("DELETE"))

	assert.True(t, f.AsFilter(makeID("/api/v1/user", "POST")))
	assert.False(t, f.AsFilter(makeID("/api/v1/user", "DELETE")))
}

func TestMustMatchAndMustNotMatchCompose(t *testing.T) {
	var f RegexFilters
	require.NoError(t, f.MustMatch.Set("user"))
	require.NoError(t, f.MustNotMatch.Set("privilege-check"))

	assert.True(t, f.AsFilter(makeID("/api/v1/user", "POST", "functional", "create")))
	assert.False(t, f.AsFilter(makeID("/api/v1/user", "POST", "privilege-check", "deny without privileges")))
	assert.False(t, f.AsFilter(makeID("/api/v1/system/arp", "GET", "functional", "read")))
}

func TestInvalidPatternIsRejected(t *testing.T) {
	var list RegexList
	err := list.Set("(unclosed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid regex")
}
