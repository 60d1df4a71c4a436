package schema

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/kinship-api/kinship/jsonapi"
)

// Registry is the process-wide mapping from resource type name to schema.
// It is populated at startup and read-only afterwards; the lock only guards
// against registration racing an early request during boot.
type Registry struct {
	mu         sync.RWMutex
	byType     map[string]*Schema
	byResource map[reflect.Type]*Schema
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byType:     make(map[string]*Schema),
		byResource: make(map[reflect.Type]*Schema),
	}
}

// Register adds a schema under its type name. The prototype is an instance
// of the resource object the schema serves (for example (*Book)(nil)); it
// lets the registry find the owning schema of an arbitrary resource value
// during compound-document resolution.
func (r *Registry) Register(s *Schema, prototype interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.byType[s.Type()]; dup {
		return fmt.Errorf("registry: type %q is already registered", s.Type())
	}
	r.byType[s.Type()] = s

	if prototype != nil {
		t := reflect.TypeOf(prototype)
		if other, dup := r.byResource[t]; dup {
			return fmt.Errorf("registry: resource type %s is already bound to %q", t, other.Type())
		}
		r.byResource[t] = s
	}
	return nil
}

// Schema looks up a schema by resource type name.
func (r *Registry) Schema(typeName string) (*Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byType[typeName]
	return s, ok
}

// SchemaOf returns the schema owning a resource object, going by the
// object's Go type.
func (r *Registry) SchemaOf(resource interface{}) (*Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byResource[reflect.TypeOf(resource)]
	return s, ok
}

// EnsureIdentifier returns the identifier of a resource object via its
// owning schema.
func (r *Registry) EnsureIdentifier(resource interface{}) (jsonapi.ResourceIdentifier, error) {
	s, ok := r.SchemaOf(resource)
	if !ok {
		return jsonapi.ResourceIdentifier{}, fmt.Errorf("registry: no schema for resource of type %T", resource)
	}
	return s.Identifier(resource), nil
}

// Types returns the registered type names, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.byType))
	for name := range r.byType {
		types = append(types, name)
	}
	sort.Strings(types)
	return types
}
