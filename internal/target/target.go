package target

import (
	"errors"
	"fmt"
	"net/url"
)

var (
	ErrEmptyName     = errors.New("target: name cannot be empty")
	ErrEmptyURL      = errors.New("target: url cannot be empty")
	ErrInvalidURL    = errors.New("target: url must be an absolute http or https URL")
	ErrDuplicateName = errors.New("target: duplicate name")
)

// Target is a named downstream endpoint to health-check.
type Target struct {
	Name string
	URL  string
}

// Registry is an ordered, immutable set of targets keyed by name.
type Registry struct {
	targets []Target
}

// NewRegistry validates the targets and returns a registry preserving their
// order. Names must be unique and every URL must be an http(s) URL with a host.
func NewRegistry(targets []Target) (*Registry, error) {
	seen := make(map[string]struct{}, len(targets))
	list := make([]Target, 0, len(targets))

	for _, t := range targets {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[t.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, t.Name)
		}
		seen[t.Name] = struct{}{}
		list = append(list, t)
	}

	return &Registry{targets: list}, nil
}

// Validate reports whether the target can be probed.
func (t Target) Validate() error {
	if t.Name == "" {
		return ErrEmptyName
	}
	if t.URL == "" {
		return fmt.Errorf("%w (target %q)", ErrEmptyURL, t.Name)
	}

	u, err := url.Parse(t.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w (target %q: %s)", ErrInvalidURL, t.Name, t.URL)
	}

	return nil
}

// Targets returns a copy of the registered targets in registration order.
func (r *Registry) Targets() []Target {
	out := make([]Target, len(r.targets))
	copy(out, r.targets)
	return out
}

// Names returns the registered target names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.targets))
	for i, t := range r.targets {
		names[i] = t.Name
	}
	return names
}

// Len returns the number of registered targets.
func (r *Registry) Len() int {
	return len(r.targets)
}
