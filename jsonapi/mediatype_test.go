package jsonapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsJSONAPI(t *testing.T) {
	tests := []struct {
		name   string
		accept string
		want   bool
	}{
		{"exact media type", "application/vnd.api+json", true},
		{"with parameter", "application/vnd.api+json; charset=utf-8", true},
		{"plain json", "application/json", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/books", nil)
			if tt.accept != "" {
				r.Header.Set("Accept", tt.accept)
			}
			assert.Equal(t, tt.want, IsJSONAPI(r))
		})
	}
}

func TestValidateContentType(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		wantErr     bool
	}{
		{"exact media type", "application/vnd.api+json", false},
		{"with parameter", "application/vnd.api+json; charset=utf-8", true},
		{"plain json", "application/json", true},
		{"missing", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/books", nil)
			if tt.contentType != "" {
				r.Header.Set("Content-Type", tt.contentType)
			}

			err := ValidateContentType(r)
			if tt.wantErr {
				require.NotNil(t, err)
				assert.Equal(t, http.StatusUnsupportedMediaType, err.Status)
			} else {
				assert.Nil(t, err)
			}
		})
	}
}

func TestWrite(t *testing.T) {
	w := httptest.NewRecorder()
	doc := &Document{Data: &Resource{Type: "books", ID: "1"}}

	require.NoError(t, Write(w, http.StatusOK, doc))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, MediaType, w.Header().Get("Content-Type"))

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Contains(t, out, "data")
}

func TestWriteError(t *testing.T) {
	t.Run("jsonapi error keeps its status", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, ErrResourceNotFound("books", "9"))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, MediaType, w.Header().Get("Content-Type"))

		var out map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		assert.Contains(t, out, "errors")
	})

	t.Run("error list uses derived status", func(t *testing.T) {
		w := httptest.NewRecorder()
		el := &ErrorList{}
		el.Append(ErrValidation("bad", "/data/attributes/a"))
		el.Append(ErrValidation("bad", "/data/attributes/b"))
		WriteError(w, el)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var out map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		assert.Len(t, out["errors"], 2)
	})

	t.Run("unknown error is opaque", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, assert.AnError)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), assert.AnError.Error())
	})
}
