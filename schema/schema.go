package schema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/kinship-api/kinship/jsonapi"
	"github.com/kinship-api/kinship/query"
)

// memberNamePattern is the set of member names the JSON:API specification
// allows for types, fields and relationships.
var memberNamePattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9_-]*[a-zA-Z0-9])?$`)

// Namer converts declared member names into their wire spelling.
type Namer func(string) string

// Dasherize is the default Namer: snake_case and camelCase declarations
// become dash-separated wire names, the recommended JSON:API style.
func Dasherize(name string) string {
	return strcase.ToKebab(name)
}

// IDGetter extracts a resource object's id string.
type IDGetter func(resource interface{}) string

// Schema binds a resource type name to its fields, relationships and
// controller. Build one with New and register it in a Registry.
type Schema struct {
	typeName      string
	id            IDGetter
	controller    Controller
	pagination    query.PaginationFactory
	namer         Namer
	attributes    map[string]*Attribute
	attrOrder     []string
	relationships map[string]*Relationship
	relOrder      []string
	sortable      map[string]bool

	// buildErrs collects declaration problems found while options run;
	// New reports them all at once.
	buildErrs []error
}

// Option configures a schema at build time.
type Option func(*Schema)

// ID sets the resource id accessor. Mandatory.
func ID(g IDGetter) Option {
	return func(s *Schema) { s.id = g }
}

// Use sets the controller serving the resource type. Mandatory.
func Use(c Controller) Option {
	return func(s *Schema) { s.controller = c }
}

// Attributes declares the schema's attribute fields.
func Attributes(attrs ...*Attribute) Option {
	return func(s *Schema) {
		for _, a := range attrs {
			name := s.namer(a.name)
			a.name = name
			if _, dup := s.attributes[name]; dup {
				s.buildErrs = append(s.buildErrs, fmt.Errorf("duplicate field %q", name))
				continue
			}
			s.attributes[name] = a
			s.attrOrder = append(s.attrOrder, name)
		}
	}
}

// Relationships declares the schema's relationships.
func Relationships(rels ...*Relationship) Option {
	return func(s *Schema) {
		for _, r := range rels {
			name := s.namer(r.name)
			r.name = name
			if _, dup := s.relationships[name]; dup {
				s.buildErrs = append(s.buildErrs, fmt.Errorf("duplicate relationship %q", name))
				continue
			}
			if _, dup := s.attributes[name]; dup {
				s.buildErrs = append(s.buildErrs, fmt.Errorf("relationship %q collides with a field", name))
				continue
			}
			s.relationships[name] = r
			s.relOrder = append(s.relOrder, name)
		}
	}
}

// Paginate sets the pagination strategy for the type's collections.
func Paginate(f query.PaginationFactory) Option {
	return func(s *Schema) { s.pagination = f }
}

// Sortable whitelists the fields clients may sort the collection by.
func Sortable(fields ...string) Option {
	return func(s *Schema) {
		for _, f := range fields {
			s.sortable[s.namer(f)] = true
		}
	}
}

// WithNamer overrides the member-name inflection. Must come before
// Attributes and Relationships in the option list.
func WithNamer(n Namer) Option {
	return func(s *Schema) { s.namer = n }
}

// New builds a schema for the type name. Declaration problems (duplicate or
// illegal member names, missing id accessor or controller) are collected
// and reported together, the way the wider toolchain reports build errors.
func New(typeName string, opts ...Option) (*Schema, error) {
	s := &Schema{
		typeName:      typeName,
		namer:         Dasherize,
		attributes:    make(map[string]*Attribute),
		relationships: make(map[string]*Relationship),
		sortable:      make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}

	var errs []error
	errs = append(errs, s.buildErrs...)
	if !memberNamePattern.MatchString(typeName) {
		errs = append(errs, fmt.Errorf("type name %q is not allowed", typeName))
	}
	for name := range s.attributes {
		if !memberNamePattern.MatchString(name) {
			errs = append(errs, fmt.Errorf("field name %q is not allowed", name))
		}
	}
	for name := range s.relationships {
		if !memberNamePattern.MatchString(name) {
			errs = append(errs, fmt.Errorf("relationship name %q is not allowed", name))
		}
	}
	if s.id == nil {
		errs = append(errs, fmt.Errorf("schema %q has no id accessor", typeName))
	}
	if s.controller == nil {
		errs = append(errs, fmt.Errorf("schema %q has no controller", typeName))
	}

	if len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, err := range errs {
			msgs[i] = err.Error()
		}
		return nil, fmt.Errorf("schema %q: building failed with %d errors:\n%s",
			typeName, len(errs), strings.Join(msgs, "\n"))
	}
	return s, nil
}

// MustNew is New, panicking on declaration errors. Intended for package-level
// schema declarations where a broken declaration should fail at startup.
func MustNew(typeName string, opts ...Option) *Schema {
	s, err := New(typeName, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Type returns the schema's resource type name.
func (s *Schema) Type() string { return s.typeName }

// Controller returns the controller serving the type.
func (s *Schema) Controller() Controller { return s.controller }

// Pagination returns the type's pagination factory, or nil when collections
// of this type are not paginated.
func (s *Schema) Pagination() query.PaginationFactory { return s.pagination }

// ResourceID returns the id of a resource object of this type.
func (s *Schema) ResourceID(resource interface{}) string { return s.id(resource) }

// Identifier returns the resource's identifier object.
func (s *Schema) Identifier(resource interface{}) jsonapi.ResourceIdentifier {
	return jsonapi.ResourceIdentifier{Type: s.typeName, ID: s.id(resource)}
}

// Attribute looks up an attribute by wire name.
func (s *Schema) Attribute(name string) (*Attribute, bool) {
	a, ok := s.attributes[name]
	return a, ok
}

// Relationship looks up a relationship by wire name.
func (s *Schema) Relationship(name string) (*Relationship, bool) {
	r, ok := s.relationships[name]
	return r, ok
}

// Attributes returns the attributes in declaration order.
func (s *Schema) Attributes() []*Attribute {
	out := make([]*Attribute, len(s.attrOrder))
	for i, name := range s.attrOrder {
		out[i] = s.attributes[name]
	}
	return out
}

// Relationships returns the relationships in declaration order.
func (s *Schema) Relationships() []*Relationship {
	out := make([]*Relationship, len(s.relOrder))
	for i, name := range s.relOrder {
		out[i] = s.relationships[name]
	}
	return out
}

// IsSortable reports whether clients may sort by the field. A schema with
// no sortable whitelist accepts any declared attribute.
func (s *Schema) IsSortable(field string) bool {
	if len(s.sortable) > 0 {
		return s.sortable[field]
	}
	_, ok := s.attributes[field]
	return ok
}

// ValidateSorts checks every requested sort key against the schema.
func (s *Schema) ValidateSorts(sorts []query.Sort) error {
	for _, sort := range sorts {
		if !s.IsSortable(sort.Field) {
			return jsonapi.ErrUnsortableField(s.typeName, sort.Field)
		}
	}
	return nil
}
