package jsonapi

import (
	"net/http"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMarshal(t *testing.T) {
	err := ErrValidation("must not be blank", "/data/attributes/title")

	data, merr := json.Marshal(err)
	require.NoError(t, merr)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))

	assert.Equal(t, "422", out["status"], "status must be a string on the wire")
	assert.Equal(t, "validation_error", out["code"])
	assert.Equal(t, "Validation Failed", out["title"])
	assert.Equal(t, "must not be blank", out["detail"])
	assert.Equal(t, "/data/attributes/title", out["source"].(map[string]interface{})["pointer"])
}

func TestErrorListStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []int
		want     int
	}{
		{
			name:     "empty list",
			statuses: nil,
			want:     http.StatusInternalServerError,
		},
		{
			name:     "single error keeps its status",
			statuses: []int{http.StatusConflict},
			want:     http.StatusConflict,
		},
		{
			name:     "all client errors collapse to 400",
			statuses: []int{http.StatusUnprocessableEntity, http.StatusNotFound},
			want:     http.StatusBadRequest,
		},
		{
			name:     "any server error collapses to 500",
			statuses: []int{http.StatusUnprocessableEntity, http.StatusBadGateway},
			want:     http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			el := &ErrorList{}
			for _, status := range tt.statuses {
				el.Append(NewError(status, "boom"))
			}
			assert.Equal(t, tt.want, el.Status())
		})
	}
}

func TestErrorListError(t *testing.T) {
	el := &ErrorList{}
	assert.Equal(t, "no errors", el.Error())

	el.Append(NewError(http.StatusNotFound, "gone"))
	assert.Contains(t, el.Error(), "404")

	el.Append(NewError(http.StatusConflict, "already there"))
	assert.Contains(t, el.Error(), "2 errors")
}

func TestEscapePointerToken(t *testing.T) {
	tests := []struct {
		token string
		want  string
	}{
		{"title", "title"},
		{"a/b", "a~1b"},
		{"a~b", "a~0b"},
		{"~/", "~0~1"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, EscapePointerToken(tt.token))
	}
}

func TestErrorConstructors(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, ErrResourceNotFound("books", "1").Status)
	assert.Equal(t, http.StatusNotFound, ErrTypeNotFound("cars").Status)
	assert.Equal(t, http.StatusBadRequest, ErrUnsortableField("books", "isbn").Status)
	assert.Equal(t, http.StatusForbidden, ErrForbidden("no").Status)

	inc := ErrUnresolvableIncludePath([]string{"author", "books"})
	assert.Equal(t, http.StatusBadRequest, inc.Status)
	assert.Contains(t, inc.Detail, "author.books")
	assert.Equal(t, "include", inc.SourceParameter)
}
