// Package descriptor defines the declarative per-endpoint test descriptions and
// the registry that discovers them. A descriptor is constructed once at
// discovery time and never mutated during execution; defining one has no side
// effect until the orchestrator is explicitly asked to run the registry.
package descriptor

import (
	"fmt"
	"sort"
	"strings"
)

// Method is an HTTP method a descriptor may declare.
type Method string

const (
	GET    Method = "GET"
	POST   Method = "POST"
	PUT    Method = "PUT"
	DELETE Method = "DELETE"
	PATCH  Method = "PATCH"
)

// methodOrder is the order in which an endpoint's declared methods are
// exercised. It is fixed so reruns are comparable.
var methodOrder = []Method{GET, POST, PUT, DELETE, PATCH}

// ParseMethod normalizes and validates a method name from a declaration.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range methodOrder {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unsupported HTTP method %q", s)
}

// StatusClass is a coarse expectation on the response status.
type StatusClass string

const (
	ClassSuccess StatusClass = "success"
	ClassFailure StatusClass = "failure"
)

// Expect declares the outcome a functional test case requires. An absent
// expectation defaults to ClassSuccess (a 2xx response, and a zero API return
// code when the response carries the standard envelope).
type Expect struct {
	// Status is an exact status code. Mutually exclusive with StatusClass.
	Status int `yaml:"status,omitempty" json:"status,omitempty"`
	// StatusClass is "success" (2xx) or "failure" (non-2xx).
	StatusClass StatusClass `yaml:"status_class,omitempty" json:"status_class,omitempty"`
	// BodyContains lists substrings the raw response body must contain.
	BodyContains []string `yaml:"body_contains,omitempty" json:"body_contains,omitempty"`
	// Data is a JSON fragment that must be a subset of the response envelope's
	// data field.
	Data map[string]interface{} `yaml:"data,omitempty" json:"data,omitempty"`
}

func (e Expect) validate() error {
	if e.Status != 0 && (e.Status < 100 || e.Status > 599) {
		return fmt.Errorf("expect.status %d is not a valid HTTP status code", e.Status)
	}
	if e.Status != 0 && e.StatusClass != "" {
		return fmt.Errorf("expect.status and expect.status_class are mutually exclusive")
	}
	switch e.StatusClass {
	case "", ClassSuccess, ClassFailure:
	default:
		return fmt.Errorf("expect.status_class must be %q or %q, got %q", ClassSuccess, ClassFailure, e.StatusClass)
	}
	return nil
}

// TestCase is one entry in a method's ordered functional sequence.
type TestCase struct {
	// Name is a human-readable label used for reporting. It need not be unique.
	Name string `yaml:"name" json:"name"`
	// Params is the request payload, field name to value.
	Params map[string]interface{} `yaml:"params,omitempty" json:"params,omitempty"`
	// Expect is the expected outcome; nil defaults to success.
	Expect *Expect `yaml:"expect,omitempty" json:"expect,omitempty"`
	// Precondition marks a case whose failure short-circuits the remainder of
	// this method's sequence (and only this method's sequence).
	Precondition bool `yaml:"precondition,omitempty" json:"precondition,omitempty"`
}

// Descriptor is the immutable declaration of one endpoint's URI, required
// privileges, and ordered test cases.
type Descriptor struct {
	// URI is the endpoint path, e.g. "/api/v1/services/syslogd/stop".
	URI string `yaml:"uri" json:"uri"`
	// Privileges maps an HTTP method to the privilege identifiers that grant
	// access to it. A method missing here is not exercised at all; an empty
	// list declares the method publicly accessible.
	Privileges map[string][]string `yaml:"privileges" json:"privileges"`
	// Tests maps an HTTP method to its ordered functional cases. Methods listed
	// in Privileges but not here are still privilege-checked.
	Tests map[string][]TestCase `yaml:"tests,omitempty" json:"tests,omitempty"`
	// SerialGroup names a set of descriptors that mutate overlapping system
	// state and must run serialized relative to each other.
	SerialGroup string `yaml:"serial_group,omitempty" json:"serial_group,omitempty"`
}

// Validate checks the declaration's internal consistency.
func (d *Descriptor) Validate() error {
	if d.URI == "" {
		return fmt.Errorf("descriptor is missing a uri")
	}
	if !strings.HasPrefix(d.URI, "/") {
		return fmt.Errorf("uri %q must begin with a slash", d.URI)
	}
	if len(d.Privileges) == 0 {
		return fmt.Errorf("descriptor %s declares no methods", d.URI)
	}
	for m := range d.Privileges {
		if _, err := ParseMethod(m); err != nil {
			return fmt.Errorf("descriptor %s: %w", d.URI, err)
		}
	}
	for m, cases := range d.Tests {
		method, err := ParseMethod(m)
		if err != nil {
			return fmt.Errorf("descriptor %s: %w", d.URI, err)
		}
		if _, declared := d.methodPrivileges(method); !declared {
			return fmt.Errorf("descriptor %s declares tests for %s but no privilege entry; add %s to privileges (an empty list means public)", d.URI, method, method)
		}
		if len(cases) == 0 {
			return fmt.Errorf("descriptor %s declares an empty test list for %s", d.URI, method)
		}
		for i, tc := range cases {
			if tc.Name == "" {
				return fmt.Errorf("descriptor %s: %s case %d has no name", d.URI, method, i+1)
			}
			if tc.Expect != nil {
				if err := tc.Expect.validate(); err != nil {
					return fmt.Errorf("descriptor %s: %s case %q: %w", d.URI, method, tc.Name, err)
				}
			}
		}
	}
	return nil
}

func (d *Descriptor) methodPrivileges(m Method) ([]string, bool) {
	for key, privs := range d.Privileges {
		if parsed, err := ParseMethod(key); err == nil && parsed == m {
			return privs, true
		}
	}
	return nil, false
}

// Methods returns the declared methods in the fixed execution order.
func (d *Descriptor) Methods() []Method {
	var out []Method
	for _, m := range methodOrder {
		if _, ok := d.methodPrivileges(m); ok {
			out = append(out, m)
		}
	}
	return out
}

// MethodPrivileges returns the privilege set declared for a method, sorted for
// stable identity caching. The second result is false if the method is not
// declared.
func (d *Descriptor) MethodPrivileges(m Method) ([]string, bool) {
	privs, ok := d.methodPrivileges(m)
	if !ok {
		return nil, false
	}
	out := append([]string(nil), privs...)
	sort.Strings(out)
	return out, true
}

// MethodTests returns the ordered functional cases for a method, which may be
// empty for privilege-check-only methods.
func (d *Descriptor) MethodTests(m Method) []TestCase {
	for key, cases := range d.Tests {
		if parsed, err := ParseMethod(key); err == nil && parsed == m {
			return cases
		}
	}
	return nil
}
