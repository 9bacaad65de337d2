// Package capability provides the registry of invokable tool capabilities.
//
// Capabilities are registered explicitly at startup, one descriptor per tool
// function, so the full capability surface is visible in the wiring code
// rather than discovered at runtime.
package capability

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aranea-sec/aranea/internal/domain"
)

// Domain groups capabilities that share an availability lifecycle: a domain
// whose backing service failed to initialize is registered but unavailable.
type Domain string

const (
	DomainRecon        Domain = "recon"
	DomainExploitation Domain = "exploitation"
	DomainOffense      Domain = "offense"
	DomainReporting    Domain = "reporting"
)

// InvokeFunc executes a capability with the supplied arguments (possibly nil)
// and returns its raw result.
type InvokeFunc func(ctx context.Context, args *domain.Args) (string, error)

// Descriptor describes one registered capability.
type Descriptor struct {
	Name   string
	Domain Domain
	Invoke InvokeFunc
}

// ErrNotFound is returned by Resolve for names no capability was registered
// under.
var ErrNotFound = errors.New("capability not found")

// DomainUnavailableError is returned by Resolve when the name is registered
// but its domain's backing service failed to initialize. It is distinct from
// ErrNotFound so callers can produce a specific user-facing message.
type DomainUnavailableError struct {
	Domain Domain
}

func (e *DomainUnavailableError) Error() string {
	return fmt.Sprintf("capability domain %q is unavailable: backing service failed to initialize", e.Domain)
}

// Registry maps capability names to descriptors. It is populated during
// startup and read-only afterwards; lookups are safe for concurrent use.
type Registry struct {
	caps        map[string]Descriptor
	unavailable map[Domain]bool
}

// NewRegistry returns an empty registry with all domains available.
func NewRegistry() *Registry {
	return &Registry{
		caps:        make(map[string]Descriptor),
		unavailable: make(map[Domain]bool),
	}
}

// Register adds a capability. Names are unique across all domains; a
// duplicate or empty name is a wiring bug and panics at startup.
func (r *Registry) Register(d Descriptor) {
	if d.Name == "" {
		panic("capability: descriptor missing name")
	}
	if d.Invoke == nil {
		panic(fmt.Sprintf("capability: %q has no invoke function", d.Name))
	}
	if existing, ok := r.caps[d.Name]; ok {
		panic(fmt.Sprintf("capability: duplicate name %q (domains %q and %q)", d.Name, existing.Domain, d.Domain))
	}
	r.caps[d.Name] = d
}

// SetDomainAvailable marks a whole domain available or unavailable. Called
// once during startup after probing the domain's backing service.
func (r *Registry) SetDomainAvailable(domain Domain, available bool) {
	r.unavailable[domain] = !available
}

// Resolve returns the descriptor registered under name. It returns
// ErrNotFound for unknown names and a *DomainUnavailableError when the name
// is known but its domain is down.
func (r *Registry) Resolve(name string) (Descriptor, error) {
	d, ok := r.caps[name]
	if !ok {
		return Descriptor{}, ErrNotFound
	}
	if r.unavailable[d.Domain] {
		return Descriptor{}, &DomainUnavailableError{Domain: d.Domain}
	}
	return d, nil
}

// Names returns the sorted capability names registered under domain.
func (r *Registry) Names(domain Domain) []string {
	var names []string
	for name, d := range r.caps {
		if d.Domain == domain {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered capabilities.
func (r *Registry) Len() int {
	return len(r.caps)
}
