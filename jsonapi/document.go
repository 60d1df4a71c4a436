// Package jsonapi defines the JSON:API document model: resources, resource
// identifiers, relationship objects, top-level documents and error objects.
//
// See https://jsonapi.org/format/ for the wire format this package renders.
package jsonapi

import (
	"fmt"

	json "github.com/goccy/go-json"
)

const (
	// MediaType is the official JSON:API media type.
	MediaType = "application/vnd.api+json"

	// Version is the highest version of the JSON:API specification this
	// package implements. It is advertised in the top-level jsonapi member.
	Version = "1.0"
)

// Meta holds non-standard meta-information about a document, resource,
// relationship or error.
type Meta map[string]interface{}

// Links maps link names (self, related, first, ...) to URLs.
type Links map[string]string

// Info is the top-level jsonapi member of a document.
type Info struct {
	Version string `json:"version"`
	Meta    Meta   `json:"meta,omitempty"`
}

// ResourceIdentifier uniquely identifies a resource across a document.
type ResourceIdentifier struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// String returns "type/id", mainly for log and error messages.
func (rid ResourceIdentifier) String() string {
	return rid.Type + "/" + rid.ID
}

// Resource is a single resource object: identifier plus attributes,
// relationship objects, links and meta.
type Resource struct {
	Type          string                         `json:"type"`
	ID            string                         `json:"id"`
	Attributes    map[string]interface{}         `json:"attributes,omitempty"`
	Relationships map[string]*RelationshipObject `json:"relationships,omitempty"`
	Links         Links                          `json:"links,omitempty"`
	Meta          Meta                           `json:"meta,omitempty"`
}

// Identifier returns the resource's identifier object.
func (r *Resource) Identifier() ResourceIdentifier {
	return ResourceIdentifier{Type: r.Type, ID: r.ID}
}

// RelationshipObject is the value of one entry in a resource's relationships
// object. Data distinguishes an absent linkage (HasData false) from an
// explicit null linkage (HasData true, Data nil): both are legal per the
// specification but mean different things.
type RelationshipObject struct {
	Data    interface{} // ResourceIdentifier, []ResourceIdentifier or nil
	HasData bool
	Links   Links
	Meta    Meta
}

// MarshalJSON emits the relationship object, including an explicit
// "data": null when the linkage is known to be empty.
func (ro *RelationshipObject) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, 3)
	if ro.HasData {
		out["data"] = ro.Data
	}
	if len(ro.Links) > 0 {
		out["links"] = ro.Links
	}
	if len(ro.Meta) > 0 {
		out["meta"] = ro.Meta
	}
	if len(out) == 0 {
		// A relationship object must contain at least one of data, links
		// or meta.
		return nil, fmt.Errorf("jsonapi: relationship object has no data, links or meta")
	}
	return json.Marshal(out)
}

// Linkage is the decoded data member of a relationship object in a request
// document. ToMany reports whether the wire value was an array; for to-one
// linkage a nil One means explicit null.
type Linkage struct {
	One    *ResourceIdentifier
	Many   []ResourceIdentifier
	ToMany bool
}

// UnmarshalJSON decodes null, a single resource identifier or an array of
// resource identifiers.
func (l *Linkage) UnmarshalJSON(raw []byte) error {
	switch {
	case len(raw) == 0 || string(raw) == "null":
		l.One, l.Many, l.ToMany = nil, nil, false
		return nil
	case raw[0] == '[':
		l.ToMany = true
		l.One = nil
		return json.Unmarshal(raw, &l.Many)
	case raw[0] == '{':
		l.ToMany = false
		l.One = new(ResourceIdentifier)
		return json.Unmarshal(raw, l.One)
	default:
		return fmt.Errorf("jsonapi: linkage must be null, an object or an array")
	}
}

// Document is a top-level JSON:API payload. A document carries either
// primary data (possibly nil, rendered as null) or errors, never both;
// MarshalJSON enforces the invariant.
type Document struct {
	Data     interface{} // *Resource, []*Resource, identifiers, or nil
	Included []*Resource
	Links    Links
	Meta     Meta
	Errors   []*Error
	Info     *Info
}

// MarshalJSON renders the document. A document with one or more errors is
// an error document and must not carry data or included resources.
func (d *Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, 5)
	if len(d.Errors) > 0 {
		if d.Data != nil || len(d.Included) > 0 {
			return nil, fmt.Errorf("jsonapi: document cannot contain both errors and data")
		}
		out["errors"] = d.Errors
	} else {
		out["data"] = d.Data
		if len(d.Included) > 0 {
			out["included"] = d.Included
		}
	}
	if len(d.Links) > 0 {
		out["links"] = d.Links
	}
	if len(d.Meta) > 0 {
		out["meta"] = d.Meta
	}
	if d.Info != nil {
		out["jsonapi"] = d.Info
	}
	return json.Marshal(out)
}

// RawDocument is the loosely-typed shape request bodies are decoded into
// before schema-level validation takes over.
type RawDocument struct {
	Data json.RawMessage `json:"data"`
	Meta Meta            `json:"meta,omitempty"`
}

// RawResource is the shape of a resource object in a request document.
// Attribute values stay raw so field codecs can decode them one by one.
type RawResource struct {
	Type          string                     `json:"type"`
	ID            string                     `json:"id,omitempty"`
	Attributes    map[string]json.RawMessage `json:"attributes,omitempty"`
	Relationships map[string]RawRelationship `json:"relationships,omitempty"`
	Meta          Meta                       `json:"meta,omitempty"`
}

// RawRelationship is a relationship object in a request document.
type RawRelationship struct {
	Data json.RawMessage `json:"data"`
	Meta Meta            `json:"meta,omitempty"`
}
