package schema

import (
	"fmt"

	"github.com/kinship-api/kinship/jsonapi"
)

// Relationship declares a to-one or to-many relationship on a schema. The
// linkage getter returns resource identifiers; related resource objects are
// fetched through the controller, not through the getter, so one batched
// fetch can serve a whole collection.
type Relationship struct {
	name     string
	target   string
	toMany   bool
	linkage  Getter
	writable Event
}

// RelOption configures a relationship at declaration time.
type RelOption func(*Relationship)

// Linkage sets the getter returning the relationship's linkage for a
// resource object: a jsonapi.ResourceIdentifier (or nil) for to-one, a
// []jsonapi.ResourceIdentifier for to-many.
func Linkage(g Getter) RelOption {
	return func(r *Relationship) { r.linkage = g }
}

// RelReadOnly rejects the relationship in every write context.
func RelReadOnly() RelOption {
	return func(r *Relationship) { r.writable = Never }
}

// RelWritableOn restricts the write contexts accepting the relationship.
func RelWritableOn(e Event) RelOption {
	return func(r *Relationship) { r.writable = e }
}

// ToOne declares a to-one relationship pointing at the target type.
func ToOne(name, target string, opts ...RelOption) *Relationship {
	r := &Relationship{name: name, target: target, writable: Always}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ToMany declares a to-many relationship pointing at the target type.
func ToMany(name, target string, opts ...RelOption) *Relationship {
	r := &Relationship{name: name, target: target, toMany: true, writable: Always}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name returns the relationship's declared name.
func (r *Relationship) Name() string { return r.name }

// Target returns the related resource type.
func (r *Relationship) Target() string { return r.target }

// IsToMany reports whether the relationship holds a collection.
func (r *Relationship) IsToMany() bool { return r.toMany }

// Writable reports whether clients may set the relationship in the
// operation.
func (r *Relationship) Writable(op Operation) bool { return r.writable.Covers(op) }

// EncodeLinkage reads the relationship's linkage from a resource object.
// For to-one relationships the returned data is a *jsonapi.ResourceIdentifier
// or nil; for to-many it is a []jsonapi.ResourceIdentifier.
func (r *Relationship) EncodeLinkage(resource interface{}) (interface{}, error) {
	if r.linkage == nil {
		return nil, fmt.Errorf("relationship %q has no linkage getter", r.name)
	}
	value := r.linkage(resource)
	if value == nil {
		if r.toMany {
			return []jsonapi.ResourceIdentifier{}, nil
		}
		return nil, nil
	}

	if r.toMany {
		ids, ok := value.([]jsonapi.ResourceIdentifier)
		if !ok {
			return nil, fmt.Errorf("relationship %q: linkage getter returned %T, want []jsonapi.ResourceIdentifier", r.name, value)
		}
		return ids, nil
	}

	switch id := value.(type) {
	case jsonapi.ResourceIdentifier:
		return &id, nil
	case *jsonapi.ResourceIdentifier:
		return id, nil
	default:
		return nil, fmt.Errorf("relationship %q: linkage getter returned %T, want jsonapi.ResourceIdentifier", r.name, value)
	}
}

// ValidateLinkage checks incoming linkage against the relationship's
// cardinality and target type.
func (r *Relationship) ValidateLinkage(l jsonapi.Linkage) error {
	if r.toMany != l.ToMany {
		if r.toMany {
			return fmt.Errorf("relationship %q expects an array of resource identifiers", r.name)
		}
		return fmt.Errorf("relationship %q expects a single resource identifier or null", r.name)
	}

	check := func(rid jsonapi.ResourceIdentifier) error {
		if rid.Type == "" || rid.ID == "" {
			return fmt.Errorf("resource identifiers must contain a type and an id")
		}
		if r.target != "" && rid.Type != r.target {
			return fmt.Errorf("unexpected type %q, want %q", rid.Type, r.target)
		}
		return nil
	}

	if l.ToMany {
		for _, rid := range l.Many {
			if err := check(rid); err != nil {
				return err
			}
		}
		return nil
	}
	if l.One != nil {
		return check(*l.One)
	}
	return nil
}
