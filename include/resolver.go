// Package include resolves JSON:API include paths into the set of resources
// a compound document carries under its included member.
package include

import (
	"context"
	"strings"

	"github.com/kinship-api/kinship/jsonapi"
	"github.com/kinship-api/kinship/query"
	"github.com/kinship-api/kinship/schema"
)

// Resolve walks the request's include paths starting from the primary
// resources and returns the related resources in first-seen order,
// deduplicated by (type, id). Primary resources never reappear in the
// result, so a back-reference cannot duplicate them in the document.
//
// Each path is processed in a flat loop, one relation level at a time; a
// level already resolved for a given owning type is skipped, so overlapping
// paths such as "author" and "author.books" fetch the shared prefix once.
// An include path naming an undefined relationship is a client error.
func Resolve(ctx context.Context, reg *schema.Registry, primary []interface{}, rq *query.Context) ([]interface{}, error) {
	if len(rq.Include) == 0 || len(primary) == 0 {
		return nil, nil
	}

	seen := make(map[jsonapi.ResourceIdentifier]bool, len(primary))
	for _, resource := range primary {
		rid, err := reg.EnsureIdentifier(resource)
		if err != nil {
			return nil, err
		}
		seen[rid] = true
	}

	// resolved tracks which (owning type, remaining path) pairs have been
	// walked already; re-encountering one means the whole remaining chain
	// is in the result, so the path can stop there.
	type levelKey struct {
		typeName string
		rest     string
	}
	resolved := make(map[levelKey]bool)

	var included []interface{}

	for _, path := range rq.Include {
		rest := path
		level := primary

		for len(rest) > 0 && len(level) > 0 {
			sch, ok := reg.SchemaOf(level[0])
			if !ok {
				return nil, jsonapi.ErrUnresolvableIncludePath(path)
			}

			key := levelKey{typeName: sch.Type(), rest: strings.Join(rest, ".")}
			if resolved[key] {
				break
			}

			if _, ok := sch.Relationship(rest[0]); !ok {
				return nil, jsonapi.ErrUnresolvableIncludePath(path)
			}

			next, err := sch.Controller().FetchRelated(ctx, rest[0], level, rq)
			if err != nil {
				return nil, err
			}

			for _, relative := range next {
				rid, err := reg.EnsureIdentifier(relative)
				if err != nil {
					return nil, err
				}
				if !seen[rid] {
					seen[rid] = true
					included = append(included, relative)
				}
			}

			resolved[key] = true
			level = next
			rest = rest[1:]
		}
	}

	return included, nil
}
