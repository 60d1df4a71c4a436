package include

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinship-api/kinship/jsonapi"
	"github.com/kinship-api/kinship/query"
	"github.com/kinship-api/kinship/schema"
)

type post struct {
	ID         string
	AuthorID   string
	CommentIDs []string
}

type author struct {
	ID      string
	PostIDs []string
}

type comment struct {
	ID       string
	AuthorID string
}

// graph is a fixed object graph shared by all controllers in the test.
type graph struct {
	posts    map[string]*post
	authors  map[string]*author
	comments map[string]*comment

	fetches []string // relation names in fetch order
}

func newGraph() *graph {
	return &graph{
		posts: map[string]*post{
			"1": {ID: "1", AuthorID: "a1", CommentIDs: []string{"c1", "c2"}},
			"2": {ID: "2", AuthorID: "a1", CommentIDs: []string{"c3"}},
		},
		authors: map[string]*author{
			"a1": {ID: "a1", PostIDs: []string{"1", "2"}},
		},
		comments: map[string]*comment{
			"c1": {ID: "c1", AuthorID: "a1"},
			"c2": {ID: "c2", AuthorID: "a2"},
			"c3": {ID: "c3", AuthorID: "a1"},
		},
	}
}

type graphController struct {
	g    *graph
	kind string
}

func (c *graphController) FetchCollection(context.Context, *query.Context) ([]interface{}, int, error) {
	return nil, 0, nil
}
func (c *graphController) FetchResource(context.Context, string, *query.Context) (interface{}, error) {
	return nil, nil
}
func (c *graphController) CreateResource(context.Context, *schema.ResourceInput, *query.Context) (interface{}, error) {
	return nil, nil
}
func (c *graphController) UpdateResource(context.Context, string, *schema.ResourceInput, *query.Context) (interface{}, error) {
	return nil, nil
}
func (c *graphController) DeleteResource(context.Context, string, *query.Context) error {
	return nil
}

func (c *graphController) FetchRelated(ctx context.Context, relation string, resources []interface{}, rq *query.Context) ([]interface{}, error) {
	c.g.fetches = append(c.g.fetches, c.kind+"."+relation)

	var out []interface{}
	for _, r := range resources {
		switch c.kind {
		case "posts":
			p := r.(*post)
			switch relation {
			case "author":
				if a, ok := c.g.authors[p.AuthorID]; ok {
					out = append(out, a)
				}
			case "comments":
				for _, id := range p.CommentIDs {
					out = append(out, c.g.comments[id])
				}
			}
		case "authors":
			a := r.(*author)
			if relation == "posts" {
				for _, id := range a.PostIDs {
					out = append(out, c.g.posts[id])
				}
			}
		case "comments":
			cm := r.(*comment)
			if relation == "author" {
				if a, ok := c.g.authors[cm.AuthorID]; ok {
					out = append(out, a)
				}
			}
		}
	}
	return out, nil
}

func graphRegistry(t *testing.T, g *graph) *schema.Registry {
	t.Helper()

	anyLinkage := schema.Linkage(func(interface{}) interface{} { return nil })

	posts := schema.MustNew("posts",
		schema.ID(func(r interface{}) string { return r.(*post).ID }),
		schema.Use(&graphController{g: g, kind: "posts"}),
		schema.Relationships(
			schema.ToOne("author", "authors", anyLinkage),
			schema.ToMany("comments", "comments", anyLinkage),
		),
	)
	authors := schema.MustNew("authors",
		schema.ID(func(r interface{}) string { return r.(*author).ID }),
		schema.Use(&graphController{g: g, kind: "authors"}),
		schema.Relationships(
			schema.ToMany("posts", "posts", anyLinkage),
		),
	)
	comments := schema.MustNew("comments",
		schema.ID(func(r interface{}) string { return r.(*comment).ID }),
		schema.Use(&graphController{g: g, kind: "comments"}),
		schema.Relationships(
			schema.ToOne("author", "authors", anyLinkage),
		),
	)

	reg := schema.NewRegistry()
	require.NoError(t, reg.Register(posts, (*post)(nil)))
	require.NoError(t, reg.Register(authors, (*author)(nil)))
	require.NoError(t, reg.Register(comments, (*comment)(nil)))
	return reg
}

func includeContext(t *testing.T, rawURL string) *query.Context {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, rawURL, nil)
	rq, err := query.Parse(r, "posts")
	require.NoError(t, err)
	return rq
}

func identifiers(t *testing.T, reg *schema.Registry, resources []interface{}) []string {
	t.Helper()
	out := make([]string, len(resources))
	for i, r := range resources {
		rid, err := reg.EnsureIdentifier(r)
		require.NoError(t, err)
		out[i] = rid.String()
	}
	return out
}

func TestResolve(t *testing.T) {
	g := newGraph()
	reg := graphRegistry(t, g)
	rq := includeContext(t, "/posts?include=author,comments")

	primary := []interface{}{g.posts["1"], g.posts["2"]}
	included, err := Resolve(context.Background(), reg, primary, rq)
	require.NoError(t, err)

	assert.ElementsMatch(t,
		[]string{"authors/a1", "comments/c1", "comments/c2", "comments/c3"},
		identifiers(t, reg, included))
}

func TestResolveNoIncludes(t *testing.T) {
	g := newGraph()
	reg := graphRegistry(t, g)
	rq := includeContext(t, "/posts")

	included, err := Resolve(context.Background(), reg, []interface{}{g.posts["1"]}, rq)
	require.NoError(t, err)
	assert.Nil(t, included)
}

func TestResolveExcludesPrimary(t *testing.T) {
	g := newGraph()
	reg := graphRegistry(t, g)

	// author.posts leads back to the primary posts; they must not reappear
	// in included.
	rq := includeContext(t, "/posts?include=author.posts")

	primary := []interface{}{g.posts["1"], g.posts["2"]}
	included, err := Resolve(context.Background(), reg, primary, rq)
	require.NoError(t, err)

	assert.Equal(t, []string{"authors/a1"}, identifiers(t, reg, included))
}

func TestResolveDeduplicates(t *testing.T) {
	g := newGraph()
	reg := graphRegistry(t, g)

	// Both paths reach author a1; it is included once, and the shared
	// "author" prefix is fetched once.
	rq := includeContext(t, "/posts?include=author,comments.author")

	included, err := Resolve(context.Background(), reg, []interface{}{g.posts["1"]}, rq)
	require.NoError(t, err)

	ids := identifiers(t, reg, included)
	count := 0
	for _, id := range ids {
		if id == "authors/a1" {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Contains(t, ids, "authors/a2")
}

func TestResolveSkipsWalkedLevels(t *testing.T) {
	g := newGraph()
	reg := graphRegistry(t, g)

	// The same (type, remaining path) pair appears twice; the second path
	// stops at the level the first one already walked.
	rq := includeContext(t, "/posts?include=author,author")

	_, err := Resolve(context.Background(), reg, []interface{}{g.posts["1"]}, rq)
	require.NoError(t, err)

	assert.Equal(t, []string{"posts.author"}, g.fetches, "the duplicated path is fetched once")
}

func TestResolveUnknownRelation(t *testing.T) {
	g := newGraph()
	reg := graphRegistry(t, g)
	rq := includeContext(t, "/posts?include=reviewer")

	_, err := Resolve(context.Background(), reg, []interface{}{g.posts["1"]}, rq)
	require.Error(t, err)

	jerr, ok := err.(*jsonapi.Error)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, jerr.Status)
	assert.Contains(t, jerr.Detail, "reviewer")
}
