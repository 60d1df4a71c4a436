package jsonapi

import (
	"errors"
	"mime"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
)

// IsJSONAPI reports whether the request accepts the JSON:API media type.
func IsJSONAPI(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	if accept == "" {
		return false
	}

	// Parse media type to handle parameters like charset.
	mediaType, _, err := mime.ParseMediaType(accept)
	if err != nil {
		// Fall back to simple check if parsing fails.
		return strings.Contains(accept, MediaType)
	}

	return mediaType == MediaType
}

// ValidateContentType checks that the request body is declared as
// application/vnd.api+json. The specification forbids media type parameters
// on the JSON:API content type.
func ValidateContentType(r *http.Request) *Error {
	contentType := r.Header.Get("Content-Type")

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != MediaType {
		return ErrUnsupportedMediaType("Content-Type must be " + MediaType + ".")
	}
	if len(params) > 0 {
		return ErrUnsupportedMediaType(
			"Content-Type must be " + MediaType + " without media type parameters.")
	}
	return nil
}

// Write marshals the document and writes it with the JSON:API content type.
// Marshaling happens before the response is touched so a failure never
// produces a partial write.
func Write(w http.ResponseWriter, status int, doc *Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", MediaType)
	w.WriteHeader(status)
	_, err = w.Write(data)
	return err
}

// WriteError renders an Error or ErrorList (possibly wrapped) as an error
// document. Any other error value is rendered as an opaque internal error;
// the caller is expected to have logged it.
func WriteError(w http.ResponseWriter, err error) {
	var errs []*Error
	status := http.StatusInternalServerError

	var single *Error
	var list *ErrorList
	switch {
	case errors.As(err, &single):
		errs = []*Error{single}
		status = single.Status
	case errors.As(err, &list):
		errs = list.Errors
		status = list.Status()
	default:
		errs = []*Error{ErrInternal()}
	}

	doc := &Document{Errors: errs, Info: &Info{Version: Version}}
	data, merr := json.Marshal(doc)
	if merr != nil {
		w.Header().Set("Content-Type", MediaType)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"errors":[{"status":"500","code":"internal_error","title":"Internal Server Error"}]}`))
		return
	}

	w.Header().Set("Content-Type", MediaType)
	w.WriteHeader(status)
	w.Write(data)
}
