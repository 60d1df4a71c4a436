package encoder

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinship-api/kinship/jsonapi"
	"github.com/kinship-api/kinship/query"
	"github.com/kinship-api/kinship/schema"
)

type song struct {
	ID       string
	Title    string
	Length   int64
	Rating   int64
	AlbumID  string
	ArtistID string
}

type album struct {
	ID string
}

type noopController struct{}

func (noopController) FetchCollection(context.Context, *query.Context) ([]interface{}, int, error) {
	return nil, 0, nil
}
func (noopController) FetchResource(context.Context, string, *query.Context) (interface{}, error) {
	return nil, nil
}
func (noopController) CreateResource(context.Context, *schema.ResourceInput, *query.Context) (interface{}, error) {
	return nil, nil
}
func (noopController) UpdateResource(context.Context, string, *schema.ResourceInput, *query.Context) (interface{}, error) {
	return nil, nil
}
func (noopController) DeleteResource(context.Context, string, *query.Context) error { return nil }
func (noopController) FetchRelated(context.Context, string, []interface{}, *query.Context) ([]interface{}, error) {
	return nil, nil
}

func songRegistry(t *testing.T) *schema.Registry {
	t.Helper()

	songs := schema.MustNew("songs",
		schema.ID(func(r interface{}) string { return r.(*song).ID }),
		schema.Use(noopController{}),
		schema.Attributes(
			schema.String("title", schema.Get(func(r interface{}) interface{} { return r.(*song).Title })),
			schema.Integer("length", schema.Get(func(r interface{}) interface{} { return r.(*song).Length })),
			schema.Integer("rating", schema.Get(func(r interface{}) interface{} { return r.(*song).Rating })),
		),
		schema.Relationships(
			schema.ToOne("album", "albums", schema.Linkage(func(r interface{}) interface{} {
				s := r.(*song)
				if s.AlbumID == "" {
					return nil
				}
				return jsonapi.ResourceIdentifier{Type: "albums", ID: s.AlbumID}
			})),
			schema.ToOne("artist", "artists", schema.Linkage(func(r interface{}) interface{} {
				return nil
			})),
		),
	)

	albums := schema.MustNew("albums",
		schema.ID(func(r interface{}) string { return r.(*album).ID }),
		schema.Use(noopController{}),
	)

	reg := schema.NewRegistry()
	require.NoError(t, reg.Register(songs, (*song)(nil)))
	require.NoError(t, reg.Register(albums, (*album)(nil)))
	return reg
}

func encodeContext(t *testing.T, rawURL string) *query.Context {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, rawURL, nil)
	rq, err := query.Parse(r, "songs")
	require.NoError(t, err)
	return rq
}

func TestEncodeResource(t *testing.T) {
	reg := songRegistry(t)
	enc := New(reg)
	rq := encodeContext(t, "/songs/1")

	res, err := enc.Resource(&song{ID: "1", Title: "Teardrop", Length: 331, AlbumID: "a1"}, rq)
	require.NoError(t, err)

	assert.Equal(t, "songs", res.Type)
	assert.Equal(t, "1", res.ID)
	assert.Equal(t, "Teardrop", res.Attributes["title"])
	assert.Equal(t, int64(331), res.Attributes["length"])
	assert.Equal(t, "/songs/1", res.Links["self"])

	alb := res.Relationships["album"]
	require.NotNil(t, alb)
	assert.True(t, alb.HasData)
	assert.Equal(t, &jsonapi.ResourceIdentifier{Type: "albums", ID: "a1"}, alb.Data)
	assert.Equal(t, "/songs/1/relationships/album", alb.Links["self"])
	assert.Equal(t, "/songs/1/album", alb.Links["related"])

	artist := res.Relationships["artist"]
	require.NotNil(t, artist)
	assert.True(t, artist.HasData)
	assert.Nil(t, artist.Data, "empty to-one linkage is explicit null")
}

func TestEncodeResourceSparseFieldsets(t *testing.T) {
	reg := songRegistry(t)
	enc := New(reg)

	t.Run("requested fields only", func(t *testing.T) {
		rq := encodeContext(t, "/songs/1?fields[songs]=title,album")

		res, err := enc.Resource(&song{ID: "1", Title: "Teardrop", Length: 331, AlbumID: "a1"}, rq)
		require.NoError(t, err)

		assert.Equal(t, map[string]interface{}{"title": "Teardrop"}, res.Attributes)
		assert.Contains(t, res.Relationships, "album")
		assert.NotContains(t, res.Relationships, "artist")
		assert.Equal(t, "1", res.ID, "id and type are never filtered")
	})

	t.Run("unknown requested fields are ignored", func(t *testing.T) {
		rq := encodeContext(t, "/songs/1?fields[songs]=title,isbn")

		res, err := enc.Resource(&song{ID: "1", Title: "Teardrop"}, rq)
		require.NoError(t, err)
		assert.Equal(t, map[string]interface{}{"title": "Teardrop"}, res.Attributes)
	})

	t.Run("empty fieldset drops everything", func(t *testing.T) {
		rq := encodeContext(t, "/songs/1?fields[songs]=")

		res, err := enc.Resource(&song{ID: "1", Title: "Teardrop"}, rq)
		require.NoError(t, err)
		assert.Empty(t, res.Attributes)
		assert.Empty(t, res.Relationships)
	})

	t.Run("other types are unaffected", func(t *testing.T) {
		rq := encodeContext(t, "/songs/1?fields[albums]=name")

		res, err := enc.Resource(&song{ID: "1", Title: "Teardrop"}, rq)
		require.NoError(t, err)
		assert.Contains(t, res.Attributes, "title")
	})
}

func TestEncodeResourceUnregisteredType(t *testing.T) {
	reg := songRegistry(t)
	enc := New(reg)
	rq := encodeContext(t, "/songs")

	_, err := enc.Resource("not registered", rq)
	assert.Error(t, err)
}

func TestDocument(t *testing.T) {
	reg := songRegistry(t)
	enc := New(reg)

	t.Run("single resource", func(t *testing.T) {
		rq := encodeContext(t, "/songs/1")

		doc, err := enc.Document(&song{ID: "1", Title: "Teardrop"}, nil, rq, nil)
		require.NoError(t, err)

		res, ok := doc.Data.(*jsonapi.Resource)
		require.True(t, ok)
		assert.Equal(t, "1", res.ID)
		assert.Equal(t, "/songs/1", doc.Links["self"])
		require.NotNil(t, doc.Info)
		assert.Equal(t, "1.0", doc.Info.Version)
	})

	t.Run("nil primary renders null", func(t *testing.T) {
		rq := encodeContext(t, "/songs/1/album")

		doc, err := enc.Document(nil, nil, rq, nil)
		require.NoError(t, err)

		data, merr := json.Marshal(doc)
		require.NoError(t, merr)
		assert.Contains(t, string(data), `"data":null`)
	})

	t.Run("included only with include parameter", func(t *testing.T) {
		extra := []interface{}{&album{ID: "a1"}}

		rq := encodeContext(t, "/songs")
		doc, err := enc.Document([]interface{}{}, extra, rq, nil)
		require.NoError(t, err)
		assert.Empty(t, doc.Included)

		rq = encodeContext(t, "/songs?include=album")
		doc, err = enc.Document([]interface{}{}, extra, rq, nil)
		require.NoError(t, err)
		require.Len(t, doc.Included, 1)
		assert.Equal(t, "albums", doc.Included[0].Type)
	})

	t.Run("pagination links and meta", func(t *testing.T) {
		rq := encodeContext(t, "/songs?page[limit]=10")

		pg, err := query.LimitOffsetFactory(25)(rq, 42)
		require.NoError(t, err)

		doc, err := enc.Document([]interface{}{}, nil, rq, pg)
		require.NoError(t, err)

		assert.Contains(t, doc.Links, "first")
		assert.Contains(t, doc.Links, "last")
		assert.Equal(t, 42, doc.Meta["total-resources"])
	})

	t.Run("without version member", func(t *testing.T) {
		plain := New(reg, WithoutVersion())
		rq := encodeContext(t, "/songs/1")

		doc, err := plain.Document(&song{ID: "1"}, nil, rq, nil)
		require.NoError(t, err)
		assert.Nil(t, doc.Info)
	})
}

func TestDocumentBaseURL(t *testing.T) {
	reg := songRegistry(t)
	enc := New(reg, WithBaseURL("https://api.example.com/"))

	rq := encodeContext(t, "/songs/1")
	res, err := enc.Resource(&song{ID: "1", Title: "x"}, rq)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com/songs/1", res.Links["self"])
}

func TestLinkageDocument(t *testing.T) {
	reg := songRegistry(t)
	enc := New(reg)
	rq := encodeContext(t, "/songs/1/relationships/album")

	sch, ok := reg.Schema("songs")
	require.True(t, ok)
	rel, ok := sch.Relationship("album")
	require.True(t, ok)

	doc, err := enc.LinkageDocument(sch, rel, &song{ID: "1", AlbumID: "a1"}, rq)
	require.NoError(t, err)

	rid, ok := doc.Data.(*jsonapi.ResourceIdentifier)
	require.True(t, ok)
	assert.Equal(t, "a1", rid.ID)
	assert.Equal(t, "/songs/1/relationships/album", doc.Links["self"])
	assert.Equal(t, "/songs/1/album", doc.Links["related"])
}
