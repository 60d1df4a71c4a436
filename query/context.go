// Package query parses JSON:API query parameters (sparse fieldsets, include
// paths, sort keys, filters, pagination) into an immutable per-request
// context, and provides the built-in pagination strategies.
package query

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/kinship-api/kinship/jsonapi"
)

var (
	// fieldsPattern matches query parameters like fields[typename].
	fieldsPattern = regexp.MustCompile(`^fields\[([^\]]+)\]$`)

	// filterPattern matches query parameters like filter[key].
	filterPattern = regexp.MustCompile(`^filter\[([^\]]+)\]$`)

	// filterValuePattern matches filter values like "eq:42" where the part
	// after the colon is a JSON value.
	filterValuePattern = regexp.MustCompile(`^([a-z]+):(.*)$`)

	// pagePattern matches query parameters like page[limit].
	pagePattern = regexp.MustCompile(`^page\[([^\]]+)\]$`)
)

// Sort is one sort key requested by the client.
type Sort struct {
	Field string
	Desc  bool
}

// Filter is one filter rule requested by the client. The rule syntax is
// filter[field]=op:value where value is a JSON literal; this is an
// implementation choice, not mandated by the JSON:API specification.
type Filter struct {
	Field string
	Op    string
	Value interface{}
}

// Context is the normalized form of a request's JSON:API query parameters.
// It is built once per request and not mutated afterwards.
type Context struct {
	// Type is the resource type addressed by the request URL.
	Type string

	// Fields maps resource types to the sparse fieldsets requested for them.
	Fields map[string][]string

	// Include holds the requested include paths, each split on dots.
	Include [][]string

	// Sorts holds the requested sort keys in order.
	Sorts []Sort

	// Filters holds the requested filter rules.
	Filters []Filter

	// Page holds the raw page[...] parameters for the pagination strategy.
	Page map[string]string

	// URL is the full request URL, used for self and pagination links.
	URL *url.URL
}

// Parse reads the JSON:API query parameters of the request. Malformed
// parameters yield a client error naming the offending parameter.
func Parse(r *http.Request, typeName string) (*Context, error) {
	rq := &Context{
		Type:   typeName,
		Fields: make(map[string][]string),
		Page:   make(map[string]string),
		URL:    r.URL,
	}

	for key, values := range r.URL.Query() {
		if len(values) == 0 {
			continue
		}
		switch {
		case key == "include":
			rq.Include = parseInclude(values[0])
		case key == "sort":
			rq.Sorts = parseSort(values[0])
		default:
			if m := fieldsPattern.FindStringSubmatch(key); m != nil {
				rq.Fields[m[1]] = splitCSV(values[0])
				continue
			}
			if m := pagePattern.FindStringSubmatch(key); m != nil {
				rq.Page[m[1]] = values[0]
				continue
			}
			if m := filterPattern.FindStringSubmatch(key); m != nil {
				filter, err := parseFilter(m[1], values[0], key)
				if err != nil {
					return nil, err
				}
				rq.Filters = append(rq.Filters, filter)
			}
		}
	}

	return rq, nil
}

// FieldsFor returns the sparse fieldset requested for a type. The second
// return value reports whether the type is restricted at all; an empty
// restricted fieldset is legal and means "no fields".
func (rq *Context) FieldsFor(typeName string) ([]string, bool) {
	fields, ok := rq.Fields[typeName]
	return fields, ok
}

// HasFilter reports whether the given filter op was applied to the field.
func (rq *Context) HasFilter(field, op string) bool {
	for _, f := range rq.Filters {
		if f.Field == field && f.Op == op {
			return true
		}
	}
	return false
}

// GetFilter returns the rule of the filter op applied to the field, or the
// fallback when the filter is absent.
func (rq *Context) GetFilter(field, op string, fallback interface{}) interface{} {
	for _, f := range rq.Filters {
		if f.Field == field && f.Op == op {
			return f.Value
		}
	}
	return fallback
}

func parseInclude(raw string) [][]string {
	var paths [][]string
	for _, path := range strings.Split(raw, ",") {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		paths = append(paths, strings.Split(path, "."))
	}
	return paths
}

func parseSort(raw string) []Sort {
	var sorts []Sort
	for _, key := range strings.Split(raw, ",") {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		s := Sort{Field: key}
		switch key[0] {
		case '-':
			s.Desc = true
			s.Field = key[1:]
		case '+':
			s.Field = key[1:]
		}
		sorts = append(sorts, s)
	}
	return sorts
}

func parseFilter(field, raw, param string) (Filter, error) {
	m := filterValuePattern.FindStringSubmatch(raw)
	if m == nil {
		return Filter{}, jsonapi.ErrInvalidQueryParameter(param,
			"The filter "+field+" is not correctly applied; expected op:value.")
	}

	var value interface{}
	if err := json.Unmarshal([]byte(m[2]), &value); err != nil {
		return Filter{}, jsonapi.ErrInvalidQueryParameter(param,
			"The filter rule "+m[2]+" is not valid JSON.")
	}

	return Filter{Field: field, Op: m[1], Value: value}, nil
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
