package descriptor

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pfrest/api-contract-tests/framework"
)

// ConfigurationError reports a bad or conflicting descriptor declaration. It is
// the only run-fatal error category: the orchestrator refuses to send any
// request when discovery fails.
type ConfigurationError struct {
	Path string
	Err  error
}

func (e *ConfigurationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("configuration error: %s", e.Err)
	}
	return fmt.Sprintf("configuration error in %s: %s", e.Path, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Registry holds every descriptor discovered for a run, validated and checked
// for the (URI, method) uniqueness invariant.
type Registry struct {
	descriptors []*Descriptor
}

// Descriptors returns the registry contents in discovery order.
func (r *Registry) Descriptors() []*Descriptor {
	return r.descriptors
}

func (r *Registry) Len() int { return len(r.descriptors) }

// SerialGroups partitions the registry into named serialized groups and the
// remaining independent descriptors. Group members keep discovery order.
func (r *Registry) SerialGroups() (groups map[string][]*Descriptor, independent []*Descriptor) {
	groups = make(map[string][]*Descriptor)
	for _, d := range r.descriptors {
		if d.SerialGroup == "" {
			independent = append(independent, d)
		} else {
			groups[d.SerialGroup] = append(groups[d.SerialGroup], d)
		}
	}
	return groups, independent
}

// GroupNames returns the serial group names in stable order.
func (r *Registry) GroupNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, d := range r.descriptors {
		if d.SerialGroup != "" && !seen[d.SerialGroup] {
			seen[d.SerialGroup] = true
			names = append(names, d.SerialGroup)
		}
	}
	sort.Strings(names)
	return names
}

// NewRegistry builds a registry from already-constructed descriptors, applying
// the same validation as LoadDir. Used by tests and embedded suites.
func NewRegistry(descriptors []*Descriptor) (*Registry, error) {
	r := &Registry{}
	for _, d := range descriptors {
		if err := r.add(d, ""); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// LoadDir discovers descriptor declarations below a directory, one YAML
// document per file. Discovery happens exactly once per run; any invalid or
// duplicate declaration fails the whole run before a single request is sent.
func LoadDir(path string, logger framework.Logger) (*Registry, error) {
	if logger == nil {
		logger = framework.NullLogger()
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, &ConfigurationError{Path: path, Err: err}
	}
	if !info.IsDir() {
		return nil, &ConfigurationError{Path: path, Err: fmt.Errorf("not a directory")}
	}

	r := &Registry{}
	err = filepath.WalkDir(path, func(file string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isYAMLFile(file) {
			return nil
		}
		logger.Printf("Loading descriptor file %s", file)
		desc, err := loadFile(file)
		if err != nil {
			return err
		}
		return r.add(desc, file)
	})
	if err != nil {
		if _, ok := err.(*ConfigurationError); ok {
			return nil, err
		}
		return nil, &ConfigurationError{Path: path, Err: err}
	}
	logger.Printf("Discovered %d descriptors", r.Len())
	return r, nil
}

func (r *Registry) add(d *Descriptor, file string) error {
	if err := d.Validate(); err != nil {
		return &ConfigurationError{Path: file, Err: err}
	}
	for _, existing := range r.descriptors {
		for _, m := range existing.Methods() {
			if existing.URI != d.URI {
				continue
			}
			for _, dm := range d.Methods() {
				if m == dm {
					return &ConfigurationError{
						Path: file,
						Err:  fmt.Errorf("duplicate declaration for %s %s", m, d.URI),
					}
				}
			}
		}
	}
	r.descriptors = append(r.descriptors, d)
	return nil
}

func loadFile(file string) (*Descriptor, error) {
	content, err := os.ReadFile(file)
	if err != nil {
		return nil, &ConfigurationError{Path: file, Err: err}
	}
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	var d Descriptor
	if err := dec.Decode(&d); err != nil {
		return nil, &ConfigurationError{Path: file, Err: fmt.Errorf("malformed YAML: %w", err)}
	}
	return &d, nil
}

func isYAMLFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
