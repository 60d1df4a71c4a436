package jsonapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// Error is a JSON:API error object. It implements the error interface so
// handlers and controllers can return it directly; the handler boundary
// renders it as an error document with the matching HTTP status.
type Error struct {
	ID              string
	Status          int
	Code            string
	Title           string
	Detail          string
	About           string
	SourcePointer   string
	SourceParameter string
	Meta            Meta
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Title, e.Detail)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Title)
}

// MarshalJSON renders the error object. Per the specification the status
// member is expressed as a string.
func (e *Error) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, 7)
	if e.ID != "" {
		out["id"] = e.ID
	}
	out["status"] = strconv.Itoa(e.Status)
	out["title"] = e.Title
	if e.Code != "" {
		out["code"] = e.Code
	}
	if e.Detail != "" {
		out["detail"] = e.Detail
	}
	if e.About != "" {
		out["links"] = Links{"about": e.About}
	}
	if e.SourcePointer != "" || e.SourceParameter != "" {
		source := make(map[string]string, 2)
		if e.SourcePointer != "" {
			source["pointer"] = e.SourcePointer
		}
		if e.SourceParameter != "" {
			source["parameter"] = e.SourceParameter
		}
		out["source"] = source
	}
	if len(e.Meta) > 0 {
		out["meta"] = e.Meta
	}
	return json.Marshal(out)
}

// NewError builds an error with the title and code derived from the status.
func NewError(status int, detail string) *Error {
	return &Error{
		Status: status,
		Code:   codeFromStatus(status),
		Title:  http.StatusText(status),
		Detail: detail,
	}
}

// ErrorList collects several errors raised while serving one request, for
// example one validation error per invalid field. It implements error.
type ErrorList struct {
	Errors []*Error
}

// Append adds an error to the list.
func (el *ErrorList) Append(errs ...*Error) {
	el.Errors = append(el.Errors, errs...)
}

// HasErrors reports whether the list contains at least one error.
func (el *ErrorList) HasErrors() bool {
	return len(el.Errors) > 0
}

// Error implements the error interface.
func (el *ErrorList) Error() string {
	switch len(el.Errors) {
	case 0:
		return "no errors"
	case 1:
		return el.Errors[0].Error()
	}
	details := make([]string, len(el.Errors))
	for i, e := range el.Errors {
		details[i] = e.Error()
	}
	return fmt.Sprintf("%d errors: %s", len(el.Errors), strings.Join(details, "; "))
}

// Status returns the most specific HTTP status matching all contained
// errors: the status itself for a single error, 400 when every error is a
// client error, and 500 otherwise.
func (el *ErrorList) Status() int {
	switch len(el.Errors) {
	case 0:
		return http.StatusInternalServerError
	case 1:
		return el.Errors[0].Status
	}
	for _, e := range el.Errors {
		if e.Status < 400 || e.Status >= 500 {
			return http.StatusInternalServerError
		}
	}
	return http.StatusBadRequest
}

// ErrResourceNotFound reports that no resource with the given type and id
// exists.
func ErrResourceNotFound(typeName, id string) *Error {
	err := NewError(http.StatusNotFound,
		fmt.Sprintf("The resource (type=%q, id=%q) does not exist.", typeName, id))
	err.Code = "resource_not_found"
	return err
}

// ErrTypeNotFound reports that a resource type is not registered.
func ErrTypeNotFound(typeName string) *Error {
	err := NewError(http.StatusNotFound,
		fmt.Sprintf("The resource type %q does not exist.", typeName))
	err.Code = "type_not_found"
	return err
}

// ErrRelationNotFound reports that a resource type has no relationship with
// the given name.
func ErrRelationNotFound(typeName, relation string) *Error {
	err := NewError(http.StatusNotFound,
		fmt.Sprintf("The relationship %q does not exist on %q.", relation, typeName))
	err.Code = "relation_not_found"
	return err
}

// ErrUnresolvableIncludePath reports an include path naming an undefined
// relationship.
func ErrUnresolvableIncludePath(path []string) *Error {
	err := NewError(http.StatusBadRequest,
		fmt.Sprintf("The include path %q does not exist.", strings.Join(path, ".")))
	err.Code = "unresolvable_include_path"
	err.SourceParameter = "include"
	return err
}

// ErrUnsortableField reports a sort key the resource type does not support.
func ErrUnsortableField(typeName, field string) *Error {
	err := NewError(http.StatusBadRequest,
		fmt.Sprintf("The field %q can not be used for sorting %q.", field, typeName))
	err.Code = "unsortable_field"
	err.SourceParameter = "sort"
	return err
}

// ErrUnfilterableField reports a filter applied to a field that does not
// support it.
func ErrUnfilterableField(typeName, field, op string) *Error {
	err := NewError(http.StatusBadRequest,
		fmt.Sprintf("The field %q does not support the %q filter.", typeName+"."+field, op))
	err.Code = "unfilterable_field"
	err.SourceParameter = "filter[" + field + "]"
	return err
}

// ErrInvalidQueryParameter reports a malformed query parameter.
func ErrInvalidQueryParameter(parameter, detail string) *Error {
	err := NewError(http.StatusBadRequest, detail)
	err.Code = "invalid_query_parameter"
	err.SourceParameter = parameter
	return err
}

// ErrUnsupportedMediaType reports a request body with the wrong content type.
func ErrUnsupportedMediaType(detail string) *Error {
	err := NewError(http.StatusUnsupportedMediaType, detail)
	err.Code = "unsupported_media_type"
	return err
}

// ErrConflict reports a state conflict, for example an id mismatch between
// the URL and the request document.
func ErrConflict(detail string) *Error {
	err := NewError(http.StatusConflict, detail)
	err.Code = "conflict"
	return err
}

// ErrForbidden reports an operation the server understands but does not
// allow, for example mutating a relationship without an updater.
func ErrForbidden(detail string) *Error {
	err := NewError(http.StatusForbidden, detail)
	err.Code = "forbidden"
	return err
}

// ErrValidation reports an invalid value in a request document. The pointer
// is an RFC 6901 JSON pointer into the document.
func ErrValidation(detail, pointer string) *Error {
	err := NewError(http.StatusUnprocessableEntity, detail)
	err.Code = "validation_error"
	err.Title = "Validation Failed"
	err.SourcePointer = pointer
	return err
}

// ErrInternal reports a server-side failure without exposing its cause.
func ErrInternal() *Error {
	return NewError(http.StatusInternalServerError, "An internal error occurred.")
}

// AttributePointer builds the JSON pointer for an attribute in a request
// document, escaping the member name per RFC 6901.
func AttributePointer(name string) string {
	return "/data/attributes/" + EscapePointerToken(name)
}

// RelationshipPointer builds the JSON pointer for a relationship in a
// request document.
func RelationshipPointer(name string) string {
	return "/data/relationships/" + EscapePointerToken(name)
}

// EscapePointerToken escapes a JSON pointer reference token per RFC 6901.
// Order matters: ~ before /.
func EscapePointerToken(token string) string {
	token = strings.ReplaceAll(token, "~", "~0")
	return strings.ReplaceAll(token, "/", "~1")
}

// codeFromStatus maps HTTP status codes to application error codes.
func codeFromStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusNotAcceptable:
		return "not_acceptable"
	case http.StatusConflict:
		return "conflict"
	case http.StatusGone:
		return "gone"
	case http.StatusPreconditionFailed:
		return "precondition_failed"
	case http.StatusUnsupportedMediaType:
		return "unsupported_media_type"
	case http.StatusUnprocessableEntity:
		return "unprocessable_entity"
	case http.StatusTooManyRequests:
		return "too_many_requests"
	case http.StatusInternalServerError:
		return "internal_error"
	case http.StatusNotImplemented:
		return "not_implemented"
	case http.StatusBadGateway:
		return "bad_gateway"
	case http.StatusServiceUnavailable:
		return "service_unavailable"
	case http.StatusGatewayTimeout:
		return "gateway_timeout"
	default:
		return "error"
	}
}
