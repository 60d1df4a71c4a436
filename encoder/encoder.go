// Package encoder renders resource objects and whole documents into the
// JSON:API wire shape, applying sparse fieldsets, relationship linkage and
// link construction.
package encoder

import (
	"fmt"
	"strings"

	"github.com/kinship-api/kinship/jsonapi"
	"github.com/kinship-api/kinship/query"
	"github.com/kinship-api/kinship/schema"
)

// Encoder renders resources registered in a Registry.
type Encoder struct {
	reg     *schema.Registry
	baseURL string
	info    *jsonapi.Info
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithBaseURL makes resource and relationship links absolute. Without it
// links are rendered relative to the mount point.
func WithBaseURL(base string) Option {
	return func(e *Encoder) { e.baseURL = strings.TrimRight(base, "/") }
}

// WithoutVersion drops the top-level jsonapi member from documents.
func WithoutVersion() Option {
	return func(e *Encoder) { e.info = nil }
}

// New returns an encoder over the registry.
func New(reg *schema.Registry, opts ...Option) *Encoder {
	e := &Encoder{reg: reg, info: &jsonapi.Info{Version: jsonapi.Version}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Resource renders one resource object, honouring the request's sparse
// fieldsets. The id and type members are always present; requested fields
// that are not declared on the type are silently ignored.
func (e *Encoder) Resource(resource interface{}, rq *query.Context) (*jsonapi.Resource, error) {
	sch, ok := e.reg.SchemaOf(resource)
	if !ok {
		return nil, fmt.Errorf("encoder: no schema registered for resource of type %T", resource)
	}

	allowed := func(string) bool { return true }
	if fields, restricted := rq.FieldsFor(sch.Type()); restricted {
		set := make(map[string]bool, len(fields))
		for _, f := range fields {
			set[f] = true
		}
		allowed = func(name string) bool { return set[name] }
	}

	out := &jsonapi.Resource{
		Type: sch.Type(),
		ID:   sch.ResourceID(resource),
	}

	for _, attr := range sch.Attributes() {
		if !allowed(attr.Name()) {
			continue
		}
		value, err := attr.Encode(resource)
		if err != nil {
			return nil, fmt.Errorf("encoder: %s.%s: %w", sch.Type(), attr.Name(), err)
		}
		if out.Attributes == nil {
			out.Attributes = make(map[string]interface{})
		}
		out.Attributes[attr.Name()] = value
	}

	for _, rel := range sch.Relationships() {
		if !allowed(rel.Name()) {
			continue
		}
		data, err := rel.EncodeLinkage(resource)
		if err != nil {
			return nil, fmt.Errorf("encoder: %s.%s: %w", sch.Type(), rel.Name(), err)
		}
		if out.Relationships == nil {
			out.Relationships = make(map[string]*jsonapi.RelationshipObject)
		}
		out.Relationships[rel.Name()] = &jsonapi.RelationshipObject{
			Data:    data,
			HasData: true,
			Links: jsonapi.Links{
				"self":    e.ResourceURL(sch.Type(), out.ID) + "/relationships/" + rel.Name(),
				"related": e.ResourceURL(sch.Type(), out.ID) + "/" + rel.Name(),
			},
		}
	}

	out.Links = jsonapi.Links{"self": e.ResourceURL(sch.Type(), out.ID)}
	return out, nil
}

// Collection renders a slice of resource objects.
func (e *Encoder) Collection(resources []interface{}, rq *query.Context) ([]*jsonapi.Resource, error) {
	out := make([]*jsonapi.Resource, len(resources))
	for i, r := range resources {
		encoded, err := e.Resource(r, rq)
		if err != nil {
			return nil, err
		}
		out[i] = encoded
	}
	return out, nil
}

// Document assembles a full document around primary data. primary may be a
// single resource object, a slice of resource objects, or nil (rendered as
// null). Included resources are only rendered when the request asked for
// compound documents.
func (e *Encoder) Document(primary interface{}, included []interface{}, rq *query.Context, pg query.Pagination) (*jsonapi.Document, error) {
	doc := &jsonapi.Document{
		Links: jsonapi.Links{"self": rq.URL.String()},
		Info:  e.info,
	}

	switch p := primary.(type) {
	case nil:
		doc.Data = nil
	case []interface{}:
		collection, err := e.Collection(p, rq)
		if err != nil {
			return nil, err
		}
		doc.Data = collection
	default:
		single, err := e.Resource(p, rq)
		if err != nil {
			return nil, err
		}
		doc.Data = single
	}

	if len(rq.Include) > 0 && len(included) > 0 {
		encoded, err := e.Collection(included, rq)
		if err != nil {
			return nil, err
		}
		doc.Included = encoded
	}

	if pg != nil {
		for name, link := range pg.Links(rq.URL) {
			doc.Links[name] = link
		}
		doc.Meta = pg.Meta()
	}

	return doc, nil
}

// LinkageDocument renders the document of a relationship endpoint: the
// relationship's linkage as primary data plus self and related links.
func (e *Encoder) LinkageDocument(sch *schema.Schema, rel *schema.Relationship, resource interface{}, rq *query.Context) (*jsonapi.Document, error) {
	data, err := rel.EncodeLinkage(resource)
	if err != nil {
		return nil, err
	}

	id := sch.ResourceID(resource)
	return &jsonapi.Document{
		Data: data,
		Links: jsonapi.Links{
			"self":    e.ResourceURL(sch.Type(), id) + "/relationships/" + rel.Name(),
			"related": e.ResourceURL(sch.Type(), id) + "/" + rel.Name(),
		},
		Info: e.info,
	}, nil
}

// ResourceURL builds the canonical URL of a resource.
func (e *Encoder) ResourceURL(typeName, id string) string {
	return e.baseURL + "/" + typeName + "/" + id
}

// CollectionURL builds the canonical URL of a type's collection.
func (e *Encoder) CollectionURL(typeName string) string {
	return e.baseURL + "/" + typeName
}
