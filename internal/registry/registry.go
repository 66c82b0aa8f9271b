package registry

import (
	"errors"
	"fmt"
	"sort"

	"github.com/RassulYunussov/ezapi/config"
	"github.com/hashicorp/go-multierror"
)

var ErrNotFound = errors.New("endpoint not found")

// Registry maps endpoint ids to their descriptors. It is read-only after New.
type Registry struct {
	endpoints map[string]config.Endpoint
}

// New indexes endpoints, failing on empty or duplicate ids.
func New(endpoints []config.Endpoint) (*Registry, error) {
	var result *multierror.Error
	index := make(map[string]config.Endpoint, len(endpoints))
	for i, e := range endpoints {
		if e.ID == "" {
			result = multierror.Append(result, fmt.Errorf("%w: endpoint #%d has no id", config.ErrInvalid, i))
			continue
		}
		if _, ok := index[e.ID]; ok {
			result = multierror.Append(result, fmt.Errorf("%w: %q", config.ErrAmbiguous, e.ID))
			continue
		}
		index[e.ID] = e
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return &Registry{endpoints: index}, nil
}

func (r *Registry) Resolve(id string) (config.Endpoint, error) {
	e, ok := r.endpoints[id]
	if !ok {
		return config.Endpoint{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return e, nil
}

// IDs returns the registered ids in lexical order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.endpoints))
	for id := range r.endpoints {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
