package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kinship-api/kinship/include"
	"github.com/kinship-api/kinship/jsonapi"
	"github.com/kinship-api/kinship/query"
	"github.com/kinship-api/kinship/schema"
)

// getCollection serves GET /{type}.
func (a *API) getCollection(w http.ResponseWriter, r *http.Request) error {
	sch, err := a.lookupSchema(r)
	if err != nil {
		return err
	}

	rq, err := query.Parse(r, sch.Type())
	if err != nil {
		return err
	}
	if err := sch.ValidateSorts(rq.Sorts); err != nil {
		return err
	}

	resources, total, err := sch.Controller().FetchCollection(r.Context(), rq)
	if err != nil {
		return err
	}

	var pg query.Pagination
	if factory := sch.Pagination(); factory != nil {
		pg, err = factory(rq, total)
		if err != nil {
			return err
		}
	}

	included, err := include.Resolve(r.Context(), a.reg, resources, rq)
	if err != nil {
		return err
	}

	doc, err := a.enc.Document(resources, included, rq, pg)
	if err != nil {
		return err
	}
	return jsonapi.Write(w, http.StatusOK, doc)
}

// getResource serves GET /{type}/{id}.
func (a *API) getResource(w http.ResponseWriter, r *http.Request) error {
	sch, err := a.lookupSchema(r)
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

	included, err := include.Resolve(r.Context(), a.reg, []interface{}{resource}, rq)
	if err != nil {
		return err
	}

	doc, err := a.enc.Document(resource, included, rq, nil)
	if err != nil {
		return err
	}
	return jsonapi.Write(w, http.StatusOK, doc)
}

// createResource serves POST /{type}. A created resource is answered with
// 201, its document and a Location header pointing at the new resource.
func (a *API) createResource(w http.ResponseWriter, r *http.Request) error {
	sch, err := a.lookupSchema(r)
	if err != nil {
		return err
	}

	rq, err := query.Parse(r, sch.Type())
	if err != nil {
		return err
	}

	raw, err := a.readDocument(w, r)
	if err != nil {
		return err
	}

	in, err := sch.DecodeResource(raw.Data, schema.Create)
	if err != nil {
		return err
	}

	created, err := sch.Controller().CreateResource(r.Context(), in, rq)
	if err != nil {
		return err
	}

	doc, err := a.enc.Document(created, nil, rq, nil)
	if err != nil {
		return err
	}

	location := a.enc.ResourceURL(sch.Type(), sch.ResourceID(created))
	doc.Links["self"] = location
	w.Header().Set("Location", location)
	return jsonapi.Write(w, http.StatusCreated, doc)
}

// updateResource serves PATCH /{type}/{id}. The document's id must match the
// URL; a mismatch is a conflict.
func (a *API) updateResource(w http.ResponseWriter, r *http.Request) error {
	sch, err := a.lookupSchema(r)
	if err != nil {
		return err
	}
	id := chi.URLParam(r, "id")

	rq, err := query.Parse(r, sch.Type())
	if err != nil {
		return err
	}

	raw, err := a.readDocument(w, r)
	if err != nil {
		return err
	}

	in, err := sch.DecodeResource(raw.Data, schema.Update)
	if err != nil {
		return err
	}
	if in.ID != "" && in.ID != id {
		return jsonapi.ErrConflict(
			"The document's id \"" + in.ID + "\" does not match the endpoint id \"" + id + "\".")
	}

	updated, err := sch.Controller().UpdateResource(r.Context(), id, in, rq)
	if err != nil {
		return err
	}
	if updated == nil {
		return jsonapi.ErrResourceNotFound(sch.Type(), id)
	}

	doc, err := a.enc.Document(updated, nil, rq, nil)
	if err != nil {
		return err
	}
	return jsonapi.Write(w, http.StatusOK, doc)
}

// deleteResource serves DELETE /{type}/{id} and answers 204 on success.
func (a *API) deleteResource(w http.ResponseWriter, r *http.Request) error {
	sch, err := a.lookupSchema(r)
	if err != nil {
		return err
	}

	rq, err := query.Parse(r, sch.Type())
	if err != nil {
		return err
	}

	if err := sch.Controller().DeleteResource(r.Context(), chi.URLParam(r, "id"), rq); err != nil {
		return err
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}
