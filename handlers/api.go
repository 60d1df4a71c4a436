// Package handlers mounts the default JSON:API endpoints onto a chi router:
// collection and resource CRUD, relationship linkage endpoints and related
// resource fetching.
package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/kinship-api/kinship/encoder"
	"github.com/kinship-api/kinship/jsonapi"
	"github.com/kinship-api/kinship/query"
	"github.com/kinship-api/kinship/schema"
)

// defaultMaxBodyBytes caps request document size at 10MB.
const defaultMaxBodyBytes = 10 << 20

// API serves every resource type registered in its registry.
type API struct {
	reg          *schema.Registry
	enc          *encoder.Encoder
	log          *zap.Logger
	maxBodyBytes int64
}

// Option configures the API.
type Option func(*API)

// WithLogger sets the structured logger for boundary errors. Defaults to a
// no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(a *API) { a.log = log }
}

// WithEncoder replaces the default encoder, for example to set a base URL
// for absolute links.
func WithEncoder(enc *encoder.Encoder) Option {
	return func(a *API) { a.enc = enc }
}

// WithMaxBodySize caps the size of request documents in bytes.
func WithMaxBodySize(n int64) Option {
	return func(a *API) { a.maxBodyBytes = n }
}

// New builds an API over the registry.
func New(reg *schema.Registry, opts ...Option) *API {
	a := &API{
		reg:          reg,
		enc:          encoder.New(reg),
		log:          zap.NewNop(),
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Mount registers the JSON:API routes on the router.
func (a *API) Mount(r chi.Router) {
	r.Route("/{type}", func(r chi.Router) {
		r.Get("/", a.handle(a.getCollection))
		r.Post("/", a.handle(a.createResource))

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", a.handle(a.getResource))
			r.Patch("/", a.handle(a.updateResource))
			r.Delete("/", a.handle(a.deleteResource))

			r.Route("/relationships/{relation}", func(r chi.Router) {
				r.Get("/", a.handle(a.getRelationship))
				r.Post("/", a.handle(a.postRelationship))
				r.Patch("/", a.handle(a.patchRelationship))
				r.Delete("/", a.handle(a.deleteRelationship))
			})

			r.Get("/{relation}", a.handle(a.getRelated))
		})
	})
}

// Handler returns a standalone router with the API mounted at its root.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	a.Mount(r)
	return r
}

// handlerFunc is an endpoint returning an error for the boundary to render.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// handle is the error boundary: jsonapi errors become error documents with
// their own status, anything else is logged and rendered as an opaque 500.
func (a *API) handle(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := h(w, r)
		if err == nil {
			return
		}

		var single *jsonapi.Error
		var list *jsonapi.ErrorList
		if !errors.As(err, &single) && !errors.As(err, &list) {
			a.log.Error("unhandled error",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
		}
		jsonapi.WriteError(w, err)
	}
}

// lookupSchema resolves the {type} URL parameter.
func (a *API) lookupSchema(r *http.Request) (*schema.Schema, error) {
	typeName := chi.URLParam(r, "type")
	sch, ok := a.reg.Schema(typeName)
	if !ok {
		return nil, jsonapi.ErrTypeNotFound(typeName)
	}
	return sch, nil
}

// readDocument validates the content type and decodes the request body into
// the loose document shape.
func (a *API) readDocument(w http.ResponseWriter, r *http.Request) (*jsonapi.RawDocument, error) {
	if err := jsonapi.ValidateContentType(r); err != nil {
		return nil, err
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.maxBodyBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, jsonapi.NewError(http.StatusBadRequest, "The request body could not be read.")
	}
	if len(body) == 0 {
		return nil, jsonapi.NewError(http.StatusBadRequest, "The request body is empty.")
	}

	var doc jsonapi.RawDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, jsonapi.NewError(http.StatusBadRequest,
			fmt.Sprintf("The request body is not a valid JSON:API document: %v.", err))
	}
	return &doc, nil
}

// fetchResource loads a resource through the schema's controller, mapping a
// nil result to a not-found error.
func fetchResource(r *http.Request, sch *schema.Schema, id string, rq *query.Context) (interface{}, error) {
	resource, err := sch.Controller().FetchResource(r.Context(), id, rq)
	if err != nil {
		return nil, err
	}
	if resource == nil {
		return nil, jsonapi.ErrResourceNotFound(sch.Type(), id)
	}
	return resource, nil
}
