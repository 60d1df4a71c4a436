package schema

import (
	json "github.com/goccy/go-json"

	"github.com/kinship-api/kinship/jsonapi"
)

// DecodeResource validates and decodes the data member of a request
// document against the schema. All field-level problems are collected into
// one error list so the client sees every invalid field at once.
func (s *Schema) DecodeResource(raw json.RawMessage, op Operation) (*ResourceInput, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, jsonapi.ErrValidation("The document must contain a data object.", "/data")
	}

	var res jsonapi.RawResource
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, jsonapi.ErrValidation("The data member must be a resource object.", "/data")
	}

	if res.Type != s.typeName {
		return nil, jsonapi.ErrConflict(
			"The document's type \"" + res.Type + "\" does not match the endpoint type \"" + s.typeName + "\".")
	}

	errs := &jsonapi.ErrorList{}
	in := &ResourceInput{
		ID:            res.ID,
		Attributes:    make(map[string]interface{}),
		Relationships: make(map[string]jsonapi.Linkage),
		Meta:          res.Meta,
	}

	for name, rawValue := range res.Attributes {
		attr, ok := s.attributes[name]
		if !ok {
			errs.Append(jsonapi.ErrValidation(
				"The field \""+name+"\" is not declared on \""+s.typeName+"\".",
				jsonapi.AttributePointer(name)))
			continue
		}
		if !attr.Writable(op) {
			errs.Append(jsonapi.ErrValidation(
				"The field \""+name+"\" is read-only.",
				jsonapi.AttributePointer(name)))
			continue
		}
		value, err := attr.Decode(rawValue)
		if err != nil {
			e := jsonapi.ErrValidation(err.Error(), jsonapi.AttributePointer(name))
			errs.Append(e)
			continue
		}
		in.Attributes[name] = value
	}

	for name, rawRel := range res.Relationships {
		rel, ok := s.relationships[name]
		if !ok {
			errs.Append(jsonapi.ErrValidation(
				"The relationship \""+name+"\" is not declared on \""+s.typeName+"\".",
				jsonapi.RelationshipPointer(name)))
			continue
		}
		if !rel.Writable(op) {
			errs.Append(jsonapi.ErrValidation(
				"The relationship \""+name+"\" is read-only.",
				jsonapi.RelationshipPointer(name)))
			continue
		}
		if rawRel.Data == nil {
			errs.Append(jsonapi.ErrValidation(
				"The relationship object must contain a data member.",
				jsonapi.RelationshipPointer(name)))
			continue
		}
		var linkage jsonapi.Linkage
		if err := json.Unmarshal(rawRel.Data, &linkage); err != nil {
			errs.Append(jsonapi.ErrValidation(
				"The data member must be null, a resource identifier or an array of resource identifiers.",
				jsonapi.RelationshipPointer(name)+"/data"))
			continue
		}
		if err := rel.ValidateLinkage(linkage); err != nil {
			errs.Append(jsonapi.ErrValidation(err.Error(),
				jsonapi.RelationshipPointer(name)+"/data"))
			continue
		}
		in.Relationships[name] = linkage
	}

	// Required gating: a field demanded by this operation must be present.
	for _, name := range s.attrOrder {
		attr := s.attributes[name]
		if !attr.Required(op) {
			continue
		}
		if _, present := res.Attributes[name]; !present {
			errs.Append(jsonapi.ErrValidation(
				"The field \""+s.typeName+"."+name+"\" is required.",
				jsonapi.AttributePointer(name)))
		}
	}

	if errs.HasErrors() {
		return nil, errs
	}
	return in, nil
}

// DecodeLinkage validates and decodes the body of a relationship endpoint
// request against the named relationship.
func (s *Schema) DecodeLinkage(relation string, raw json.RawMessage) (jsonapi.Linkage, error) {
	rel, ok := s.relationships[relation]
	if !ok {
		return jsonapi.Linkage{}, jsonapi.ErrRelationNotFound(s.typeName, relation)
	}

	var linkage jsonapi.Linkage
	if err := json.Unmarshal(raw, &linkage); err != nil {
		return jsonapi.Linkage{}, jsonapi.ErrValidation(
			"The data member must be null, a resource identifier or an array of resource identifiers.", "/data")
	}
	if err := rel.ValidateLinkage(linkage); err != nil {
		return jsonapi.Linkage{}, jsonapi.ErrValidation(err.Error(), "/data")
	}
	return linkage, nil
}
