package schema

import (
	"context"

	"github.com/kinship-api/kinship/jsonapi"
	"github.com/kinship-api/kinship/query"
)

// ResourceInput is a decoded, validated request document ready for a
// controller. Attribute values are native (string, int64, decimal.Decimal,
// uuid.UUID, time.Time, ...) keyed by the declared field name.
type ResourceInput struct {
	ID            string
	Attributes    map[string]interface{}
	Relationships map[string]jsonapi.Linkage
	Meta          jsonapi.Meta
}

// Controller implements the storage side of a resource type. The library is
// storage-agnostic: every hook receives a context and the parsed request
// context and may do whatever I/O it needs.
//
// A missing resource is reported by returning jsonapi.ErrResourceNotFound;
// returning a nil resource with a nil error is treated the same way by the
// handlers.
type Controller interface {
	// FetchCollection returns the page of resources selected by the request
	// (its filters, sort keys and page parameters) and the total size of
	// the filtered collection.
	FetchCollection(ctx context.Context, rq *query.Context) ([]interface{}, int, error)

	// FetchResource returns the resource with the given id.
	FetchResource(ctx context.Context, id string, rq *query.Context) (interface{}, error)

	// CreateResource stores a new resource and returns it.
	CreateResource(ctx context.Context, in *ResourceInput, rq *query.Context) (interface{}, error)

	// UpdateResource applies the input to an existing resource and returns
	// the updated resource.
	UpdateResource(ctx context.Context, id string, in *ResourceInput, rq *query.Context) (interface{}, error)

	// DeleteResource removes the resource with the given id.
	DeleteResource(ctx context.Context, id string, rq *query.Context) error

	// FetchRelated resolves one relationship level for a batch of resources
	// of this controller's type, returning the related resources. Batching
	// keeps compound-document resolution at one fetch per include level.
	FetchRelated(ctx context.Context, relation string, resources []interface{}, rq *query.Context) ([]interface{}, error)
}

// RelationshipUpdater is an optional capability for controllers supporting
// relationship mutation endpoints. Controllers not implementing it answer
// those endpoints with 403.
type RelationshipUpdater interface {
	// AddToRelationship appends linkage to a to-many relationship.
	AddToRelationship(ctx context.Context, id, relation string, linkage jsonapi.Linkage) (interface{}, error)

	// ReplaceRelationship replaces the relationship's linkage entirely.
	ReplaceRelationship(ctx context.Context, id, relation string, linkage jsonapi.Linkage) (interface{}, error)

	// RemoveFromRelationship removes linkage from a to-many relationship.
	RemoveFromRelationship(ctx context.Context, id, relation string, linkage jsonapi.Linkage) (interface{}, error)
}
