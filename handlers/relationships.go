package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kinship-api/kinship/include"
	"github.com/kinship-api/kinship/jsonapi"
	"github.com/kinship-api/kinship/query"
	"github.com/kinship-api/kinship/schema"
)

// lookupRelationship resolves the {type} and {relation} URL parameters.
func (a *API) lookupRelationship(r *http.Request) (*schema.Schema, *schema.Relationship, error) {
	sch, err := a.lookupSchema(r)
	if err != nil {
		return nil, nil, err
	}
	rel, ok := sch.Relationship(chi.URLParam(r, "relation"))
	if !ok {
		return nil, nil, jsonapi.ErrRelationNotFound(sch.Type(), chi.URLParam(r, "relation"))
	}
	return sch, rel, nil
}

// getRelationship serves GET /{type}/{id}/relationships/{relation} with the
// relationship's linkage as primary data.
func (a *API) getRelationship(w http.ResponseWriter, r *http.Request) error {
	sch, rel, err := a.lookupRelationship(r)
	if err != nil {
		return err
	}

	rq, err := query.Parse(r, sch.Type())
	if err != nil {
		return err
	}

	resource, err := fetchResource(r, sch, chi.URLParam(r, "id"), rq)
	if err != nil {
		return err
	}

	doc, err := a.enc.LinkageDocument(sch, rel, resource, rq)
	if err != nil {
		return err
	}
	return jsonapi.Write(w, http.StatusOK, doc)
}

// mutateRelationship runs one relationship mutation and answers with the
// updated linkage document.
func (a *API) mutateRelationship(
	w http.ResponseWriter, r *http.Request,
	mutate func(up schema.RelationshipUpdater, ctx context.Context, id string, linkage jsonapi.Linkage) (interface{}, error),
) error {
	sch, rel, err := a.lookupRelationship(r)
	if err != nil {
		return err
	}
	id := chi.URLParam(r, "id")

	up, ok := sch.Controller().(schema.RelationshipUpdater)
	if !ok {
		return jsonapi.ErrForbidden(
			"The relationship \"" + rel.Name() + "\" on \"" + sch.Type() + "\" can not be modified.")
	}

	rq, err := query.Parse(r, sch.Type())
	if err != nil {
		return err
	}

	raw, err := a.readDocument(w, r)
	if err != nil {
		return err
	}
	linkage, err := sch.DecodeLinkage(rel.Name(), raw.Data)
	if err != nil {
		return err
	}

	updated, err := mutate(up, r.Context(), id, linkage)
	if err != nil {
		return err
	}
	if updated == nil {
		return jsonapi.ErrResourceNotFound(sch.Type(), id)
	}

	doc, err := a.enc.LinkageDocument(sch, rel, updated, rq)
	if err != nil {
		return err
	}
	return jsonapi.Write(w, http.StatusOK, doc)
}

// postRelationship serves POST /{type}/{id}/relationships/{relation},
// appending linkage to a to-many relationship.
func (a *API) postRelationship(w http.ResponseWriter, r *http.Request) error {
	_, rel, err := a.lookupRelationship(r)
	if err != nil {
		return err
	}
	if !rel.IsToMany() {
		return jsonapi.ErrForbidden("Linkage can only be added to to-many relationships.")
	}
	return a.mutateRelationship(w, r,
		func(up schema.RelationshipUpdater, ctx context.Context, id string, linkage jsonapi.Linkage) (interface{}, error) {
			return up.AddToRelationship(ctx, id, rel.Name(), linkage)
		})
}

// patchRelationship serves PATCH /{type}/{id}/relationships/{relation},
// replacing the relationship's linkage entirely.
func (a *API) patchRelationship(w http.ResponseWriter, r *http.Request) error {
	_, rel, err := a.lookupRelationship(r)
	if err != nil {
		return err
	}
	return a.mutateRelationship(w, r,
		func(up schema.RelationshipUpdater, ctx context.Context, id string, linkage jsonapi.Linkage) (interface{}, error) {
			return up.ReplaceRelationship(ctx, id, rel.Name(), linkage)
		})
}

// deleteRelationship serves DELETE /{type}/{id}/relationships/{relation},
// removing linkage from a to-many relationship. Answers 204.
func (a *API) deleteRelationship(w http.ResponseWriter, r *http.Request) error {
	sch, rel, err := a.lookupRelationship(r)
	if err != nil {
		return err
	}
	if !rel.IsToMany() {
		return jsonapi.ErrForbidden("Linkage can only be removed from to-many relationships.")
	}

	up, ok := sch.Controller().(schema.RelationshipUpdater)
	if !ok {
		return jsonapi.ErrForbidden(
			"The relationship \"" + rel.Name() + "\" on \"" + sch.Type() + "\" can not be modified.")
	}

	raw, err := a.readDocument(w, r)
	if err != nil {
		return err
	}
	linkage, err := sch.DecodeLinkage(rel.Name(), raw.Data)
	if err != nil {
		return err
	}

	updated, err := up.RemoveFromRelationship(r.Context(), chi.URLParam(r, "id"), rel.Name(), linkage)
	if err != nil {
		return err
	}
	if updated == nil {
		return jsonapi.ErrResourceNotFound(sch.Type(), chi.URLParam(r, "id"))
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

// getRelated serves GET /{type}/{id}/{relation}, returning the related
// resources themselves instead of their linkage. To-many relationships are
// paginated with the target type's strategy.
func (a *API) getRelated(w http.ResponseWriter, r *http.Request) error {
	sch, rel, err := a.lookupRelationship(r)
	if err != nil {
		return err
	}

	rq, err := query.Parse(r, rel.Target())
	if err != nil {
		return err
	}

	resource, err := fetchResource(r, sch, chi.URLParam(r, "id"), rq)
	if err != nil {
		return err
	}

	related, err := sch.Controller().FetchRelated(r.Context(), rel.Name(), []interface{}{resource}, rq)
	if err != nil {
		return err
	}

	if !rel.IsToMany() {
		var primary interface{}
		if len(related) > 0 {
			primary = related[0]
		}
		var included []interface{}
		if primary != nil {
			included, err = include.Resolve(r.Context(), a.reg, []interface{}{primary}, rq)
			if err != nil {
				return err
			}
		}
		doc, err := a.enc.Document(primary, included, rq, nil)
		if err != nil {
			return err
		}
		return jsonapi.Write(w, http.StatusOK, doc)
	}

	var pg query.Pagination
	if target, ok := a.reg.Schema(rel.Target()); ok {
		if factory := target.Pagination(); factory != nil {
			pg, err = factory(rq, len(related))
			if err != nil {
				return err
			}
		}
	}

	included, err := include.Resolve(r.Context(), a.reg, related, rq)
	if err != nil {
		return err
	}

	doc, err := a.enc.Document(related, included, rq, pg)
	if err != nil {
		return err
	}
	return jsonapi.Write(w, http.StatusOK, doc)
}
