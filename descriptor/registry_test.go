package descriptor

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const syslogdDescriptorYAML = `
uri: /api/v1/services/syslogd/stop
privileges:
  POST: [page-all, page-status-services]
tests:
  POST:
    - name: stop the syslog daemon
    - name: stopping an already stopped daemon still succeeds
      expect:
        status_class: success
serial_group: syslogd
`

const arpDescriptorYAML = `
uri: /api/v1/system/arp
privileges:
  GET: [page-diagnostics-arptable]
  DELETE: [page-diagnostics-arptable]
tests:
  GET:
    - name: read the arp table
      expect:
        data:
          arp_enabled: true
`

func writeDescriptorFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDirDiscoversYAMLFiles(t *testing.T) {
	dir := t.TempDir()
	writeDescriptorFile(t, dir, "syslogd.yaml", syslogdDescriptorYAML)
	writeDescriptorFile(t, dir, "arp.yml", arpDescriptorYAML)
	writeDescriptorFile(t, dir, "notes.txt", "not a descriptor")

	registry, err := LoadDir(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, registry.Len())

	var uris []string
	for _, d := range registry.Descriptors() {
		uris = append(uris, d.URI)
	}
	assert.ElementsMatch(t, []string{"/api/v1/services/syslogd/stop", "/api/v1/system/arp"}, uris)
}

func TestLoadDirWalksSubdirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "services")
	require.NoError(t, os.Mkdir(sub, 0o755))
	writeDescriptorFile(t, sub, "syslogd.yaml", syslogdDescriptorYAML)

	registry, err := LoadDir(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, registry.Len())
}

func TestLoadDirRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	writeDescriptorFile(t, dir, "typo.yaml", `
uri: /api/v1/system/arp
privileges:
  GET: [page-all]
test:
  GET:
    - name: misnamed key
`)

	_, err := LoadDir(dir, nil)
	require.Error(t, err)
	var configErr *ConfigurationError
	require.True(t, errors.As(err, &configErr))
	assert.Contains(t, configErr.Error(), "malformed YAML")
	assert.Contains(t, configErr.Path, "typo.yaml")
}

func TestLoadDirRejectsInvalidDescriptor(t *testing.T) {
	dir := t.TempDir()
	writeDescriptorFile(t, dir, "bad.yaml", `
uri: relative/path
privileges:
  GET: [page-all]
`)

	_, err := LoadDir(dir, nil)
	var configErr *ConfigurationError
	require.True(t, errors.As(err, &configErr))
	assert.Contains(t, configErr.Error(), "must begin with a slash")
}

func TestLoadDirRejectsDuplicateURIMethod(t *testing.T) {
	dir := t.TempDir()
	writeDescriptorFile(t, dir, "a.yaml", `
uri: /api/v1/system/arp
privileges:
  GET: [page-all]
`)
	writeDescriptorFile(t, dir, "b.yaml", `
uri: /api/v1/system/arp
privileges:
  GET: [page-diagnostics-arptable]
`)

	_, err := LoadDir(dir, nil)
	var configErr *ConfigurationError
	require.True(t, errors.As(err, &configErr))
	assert.Contains(t, configErr.Error(), "duplicate declaration for GET /api/v1/system/arp")
}

func TestSameURIDifferentMethodsIsNotADuplicate(t *testing.T) {
	registry, err := NewRegistry([]*Descriptor{
		{URI: "/api/v1/user", Privileges: map[string][]string{"POST": {"page-all"}}},
		{URI: "/api/v1/user", Privileges: map[string][]string{"DELETE": {"page-all"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, registry.Len())
}

func TestLoadDirMissingDirectory(t *testing.T) {
	_, err := LoadDir(filepath.Join(t.TempDir(), "missing"), nil)
	var configErr *ConfigurationError
	require.True(t, errors.As(err, &configErr))
}

func TestSerialGroupsPartition(t *testing.T) {
	registry, err := NewRegistry([]*Descriptor{
		{URI: "/api/v1/a", Privileges: map[string][]string{"GET": {"page-all"}}, SerialGroup: "dns"},
		{URI: "/api/v1/b", Privileges: map[string][]string{"GET": {"page-all"}}},
		{URI: "/api/v1/c", Privileges: map[string][]string{"GET": {"page-all"}}, SerialGroup: "dns"},
		{URI: "/api/v1/d", Privileges: map[string][]string{"GET": {"page-all"}}, SerialGroup: "auth"},
	})
	require.NoError(t, err)

	groups, independent := registry.SerialGroups()
	require.Len(t, independent, 1)
	assert.Equal(t, "/api/v1/b", independent[0].URI)
	require.Len(t, groups["dns"], 2)
	assert.Equal(t, "/api/v1/a", groups["dns"][0].URI, "group members keep discovery order")
	assert.Equal(t, []string{"auth", "dns"}, registry.GroupNames())
}

func TestRegistryParsesExpectationsFromYAML(t *testing.T) {
	dir := t.TempDir()
	writeDescriptorFile(t, dir, "arp.yaml", arpDescriptorYAML)

	registry, err := LoadDir(dir, nil)
	require.NoError(t, err)
	d := registry.Descriptors()[0]

	cases := d.MethodTests(GET)
	require.Len(t, cases, 1)
	require.NotNil(t, cases[0].Expect)
	assert.Equal(t, map[string]interface{}{"arp_enabled": true}, cases[0].Expect.Data)

	privs, ok := d.MethodPrivileges(DELETE)
	require.True(t, ok)
	assert.Equal(t, []string{"page-diagnostics-arptable"}, privs)
}
