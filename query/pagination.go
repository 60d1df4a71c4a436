package query

import (
	"net/url"
	"strconv"

	"github.com/kinship-api/kinship/jsonapi"
)

// DefaultLimit is the default number of resources on a page.
const DefaultLimit = 25

// Pagination renders pagination links and meta for a fetched collection.
type Pagination interface {
	// Links returns self/first/last/prev/next links built by rewriting the
	// page parameters of the request URL.
	Links(requestURL *url.URL) jsonapi.Links

	// Meta returns the pagination entries for the document's meta object.
	Meta() jsonapi.Meta
}

// PaginationFactory builds a Pagination from the parsed request context and
// the collection's total size. Schemas choose a factory per resource type.
type PaginationFactory func(rq *Context, total int) (Pagination, error)

// pageLink rewrites the page parameters of the request URL, keeping all
// other query parameters intact.
func pageLink(requestURL *url.URL, page map[string]string) string {
	u := *requestURL
	q := u.Query()
	for key, value := range page {
		q.Set("page["+key+"]", value)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func positiveInt(raw, param string, min int) (int, *jsonapi.Error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < min {
		return 0, jsonapi.ErrInvalidQueryParameter(param,
			"The "+param+" parameter must be an integer >= "+strconv.Itoa(min)+".")
	}
	return n, nil
}

// LimitOffset paginates with page[limit] and page[offset].
type LimitOffset struct {
	Limit  int
	Offset int
	Total  int
}

// LimitOffsetFactory returns a factory parsing limit/offset pagination with
// the given default page size.
func LimitOffsetFactory(defaultLimit int) PaginationFactory {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	return func(rq *Context, total int) (Pagination, error) {
		p := &LimitOffset{Limit: defaultLimit, Total: total}
		if raw, ok := rq.Page["limit"]; ok {
			n, err := positiveInt(raw, "page[limit]", 1)
			if err != nil {
				return nil, err
			}
			p.Limit = n
		}
		if raw, ok := rq.Page["offset"]; ok {
			n, err := positiveInt(raw, "page[offset]", 0)
			if err != nil {
				return nil, err
			}
			p.Offset = n
		}
		return p, nil
	}
}

// Links implements Pagination.
func (p *LimitOffset) Links(requestURL *url.URL) jsonapi.Links {
	limit := strconv.Itoa(p.Limit)
	last := 0
	if p.Total > 0 {
		last = (p.Total - 1) / p.Limit * p.Limit
	}

	links := jsonapi.Links{
		"self":  pageLink(requestURL, map[string]string{"limit": limit, "offset": strconv.Itoa(p.Offset)}),
		"first": pageLink(requestURL, map[string]string{"limit": limit, "offset": "0"}),
		"last":  pageLink(requestURL, map[string]string{"limit": limit, "offset": strconv.Itoa(last)}),
	}
	if p.Offset > 0 {
		prev := p.Offset - p.Limit
		if prev < 0 {
			prev = 0
		}
		links["prev"] = pageLink(requestURL, map[string]string{"limit": limit, "offset": strconv.Itoa(prev)})
	}
	if p.Offset+p.Limit < p.Total {
		links["next"] = pageLink(requestURL, map[string]string{"limit": limit, "offset": strconv.Itoa(p.Offset + p.Limit)})
	}
	return links
}

// Meta implements Pagination.
func (p *LimitOffset) Meta() jsonapi.Meta {
	return jsonapi.Meta{
		"total-resources": p.Total,
		"page-limit":      p.Limit,
		"page-offset":     p.Offset,
	}
}

// NumberSize paginates with page[number] and page[size]. Page numbers start
// at 1.
type NumberSize struct {
	Number int
	Size   int
	Total  int
}

// NumberSizeFactory returns a factory parsing number/size pagination with
// the given default page size.
func NumberSizeFactory(defaultSize int) PaginationFactory {
	if defaultSize <= 0 {
		defaultSize = DefaultLimit
	}
	return func(rq *Context, total int) (Pagination, error) {
		p := &NumberSize{Number: 1, Size: defaultSize, Total: total}
		if raw, ok := rq.Page["size"]; ok {
			n, err := positiveInt(raw, "page[size]", 1)
			if err != nil {
				return nil, err
			}
			p.Size = n
		}
		if raw, ok := rq.Page["number"]; ok {
			n, err := positiveInt(raw, "page[number]", 1)
			if err != nil {
				return nil, err
			}
			p.Number = n
		}
		return p, nil
	}
}

// TotalPages returns the number of pages in the collection, at least 1.
func (p *NumberSize) TotalPages() int {
	pages := (p.Total + p.Size - 1) / p.Size
	if pages < 1 {
		pages = 1
	}
	return pages
}

// Links implements Pagination.
func (p *NumberSize) Links(requestURL *url.URL) jsonapi.Links {
	size := strconv.Itoa(p.Size)
	links := jsonapi.Links{
		"self":  pageLink(requestURL, map[string]string{"size": size, "number": strconv.Itoa(p.Number)}),
		"first": pageLink(requestURL, map[string]string{"size": size, "number": "1"}),
		"last":  pageLink(requestURL, map[string]string{"size": size, "number": strconv.Itoa(p.TotalPages())}),
	}
	if p.Number > 1 {
		links["prev"] = pageLink(requestURL, map[string]string{"size": size, "number": strconv.Itoa(p.Number - 1)})
	}
	if p.Number < p.TotalPages() {
		links["next"] = pageLink(requestURL, map[string]string{"size": size, "number": strconv.Itoa(p.Number + 1)})
	}
	return links
}

// Meta implements Pagination.
func (p *NumberSize) Meta() jsonapi.Meta {
	return jsonapi.Meta{
		"total-resources": p.Total,
		"total-pages":     p.TotalPages(),
		"page-number":     p.Number,
		"page-size":       p.Size,
	}
}

// Cursor paginates with page[cursor] and page[limit]. The controller decides
// what a cursor means; it can expose the neighbouring cursors by wrapping
// the factory and setting Prev/Next after the fetch.
type Cursor struct {
	Value string
	Limit int
	Prev  string
	Next  string
	Total int
}

// CursorFactory returns a factory parsing cursor pagination with the given
// default page size.
func CursorFactory(defaultLimit int) PaginationFactory {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	return func(rq *Context, total int) (Pagination, error) {
		p := &Cursor{Limit: defaultLimit, Total: total}
		if raw, ok := rq.Page["limit"]; ok {
			n, err := positiveInt(raw, "page[limit]", 1)
			if err != nil {
				return nil, err
			}
			p.Limit = n
		}
		p.Value = rq.Page["cursor"]
		return p, nil
	}
}

// Links implements Pagination. Prev and next links are only rendered when
// the neighbouring cursors are known.
func (p *Cursor) Links(requestURL *url.URL) jsonapi.Links {
	limit := strconv.Itoa(p.Limit)
	links := jsonapi.Links{
		"self": pageLink(requestURL, map[string]string{"limit": limit, "cursor": p.Value}),
	}
	if p.Prev != "" {
		links["prev"] = pageLink(requestURL, map[string]string{"limit": limit, "cursor": p.Prev})
	}
	if p.Next != "" {
		links["next"] = pageLink(requestURL, map[string]string{"limit": limit, "cursor": p.Next})
	}
	return links
}

// Meta implements Pagination.
func (p *Cursor) Meta() jsonapi.Meta {
	return jsonapi.Meta{
		"total-resources": p.Total,
		"page-limit":      p.Limit,
	}
}
