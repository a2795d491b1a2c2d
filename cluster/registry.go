package cluster

import (
	"sort"

	"github.com/pkg/errors"
)

// ErrClusterNotFound is returned when a cluster name does not resolve to a
// Profile.
var ErrClusterNotFound = errors.New("cluster not found")

// Registry maps cluster names to Profiles. It is read-only after
// construction and safe for concurrent use.
type Registry struct {
	profiles map[string]Profile
	names    []string
}

// NewRegistry validates the profiles and returns a Registry. Duplicate names
// are rejected.
func NewRegistry(profiles ...Profile) (*Registry, error) {
	r := &Registry{profiles: make(map[string]Profile, len(profiles))}

	for _, p := range profiles {
		if err := p.Validate(); err != nil {
			return nil, err
		}

		if _, exists := r.profiles[p.Name]; exists {
			return nil, ErrInvalidProfile{Cluster: p.Name, Message: "duplicate cluster name"}
		}

		r.profiles[p.Name] = p
		r.names = append(r.names, p.Name)
	}

	sort.Strings(r.names)

	return r, nil
}

// Resolve returns the Profile registered under name. An empty name resolves
// to the default Profile if there is one.
func (r *Registry) Resolve(name string) (Profile, error) {
	if name == "" {
		if p, ok := r.Default(); ok {
			return p, nil
		}
		return Profile{}, errors.Wrapf(ErrClusterNotFound, "no cluster name given and %d clusters are configured", len(r.names))
	}

	p, ok := r.profiles[name]
	if !ok {
		return Profile{}, errors.Wrapf(ErrClusterNotFound, "%q", name)
	}

	return p, nil
}

// Names returns the sorted names of all registered clusters.
func (r *Registry) Names() []string {
	var names = make([]string, len(r.names))
	copy(names, r.names)
	return names
}

// Default returns the only registered Profile. ok is false unless exactly
// one Profile is registered.
func (r *Registry) Default() (p Profile, ok bool) {
	if len(r.names) != 1 {
		return Profile{}, false
	}
	return r.profiles[r.names[0]], true
}
