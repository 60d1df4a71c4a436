package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinship-api/kinship/jsonapi"
)

type comment struct {
	ID string
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()

	articles := articleSchema(t)
	require.NoError(t, reg.Register(articles, (*article)(nil)))

	comments, err := New("comments",
		ID(func(r interface{}) string { return r.(*comment).ID }),
		Use(stubController{}),
	)
	require.NoError(t, err)
	require.NoError(t, reg.Register(comments, (*comment)(nil)))

	t.Run("lookup by type name", func(t *testing.T) {
		s, ok := reg.Schema("articles")
		require.True(t, ok)
		assert.Equal(t, "articles", s.Type())

		_, ok = reg.Schema("books")
		assert.False(t, ok)
	})

	t.Run("lookup by resource object", func(t *testing.T) {
		s, ok := reg.SchemaOf(&article{ID: "1"})
		require.True(t, ok)
		assert.Equal(t, "articles", s.Type())

		_, ok = reg.SchemaOf("not a resource")
		assert.False(t, ok)
	})

	t.Run("identifier of arbitrary resource", func(t *testing.T) {
		rid, err := reg.EnsureIdentifier(&comment{ID: "5"})
		require.NoError(t, err)
		assert.Equal(t, jsonapi.ResourceIdentifier{Type: "comments", ID: "5"}, rid)

		_, err = reg.EnsureIdentifier(42)
		assert.Error(t, err)
	})

	t.Run("types are sorted", func(t *testing.T) {
		assert.Equal(t, []string{"articles", "comments"}, reg.Types())
	})
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	s := articleSchema(t)

	require.NoError(t, reg.Register(s, (*article)(nil)))

	err := reg.Register(articleSchema(t), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegistryRejectsReboundResource(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(articleSchema(t), (*article)(nil)))

	other, err := New("posts",
		ID(func(r interface{}) string { return r.(*article).ID }),
		Use(stubController{}),
	)
	require.NoError(t, err)

	err = reg.Register(other, (*article)(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already bound")
}
