package supabase

import (
	"context"
	"errors"
	"net/http"
	"net/url"
)

var errMultipleRows = errors.New("query returned more than one row")

// Query is a single statement against one table, built fluently:
//
//	c.From("products").Select("*").Eq("id", id).Order("created_at", false)
type Query struct {
	client *Client
	table  string
	method string
	params url.Values
	body   any
	prefer string
}

// From starts a query on table.
func (c *Client) From(table string) *Query {
	return &Query{client: c, table: table, method: http.MethodGet, params: url.Values{}}
}

func (q *Query) Select(columns string) *Query {
	q.params.Set("select", columns)
	return q
}

// Insert turns the query into an insert of row, returning the written row.
func (q *Query) Insert(row any) *Query {
	q.method = http.MethodPost
	q.body = row
	q.prefer = "return=representation"
	return q
}

// Update turns the query into a patch of the matched rows, returning them.
func (q *Query) Update(patch any) *Query {
	q.method = http.MethodPatch
	q.body = patch
	q.prefer = "return=representation"
	return q
}

func (q *Query) Delete() *Query {
	q.method = http.MethodDelete
	return q
}

// Eq filters rows where column equals value.
func (q *Query) Eq(column, value string) *Query {
	q.params.Add(column, "eq."+value)
	return q
}

// Order sorts by column.
func (q *Query) Order(column string, ascending bool) *Query {
	dir := "desc"
	if ascending {
		dir = "asc"
	}
	q.params.Set("order", column+"."+dir)
	return q
}

// Exec runs the query and decodes the returned rows into out (a slice pointer).
func (q *Query) Exec(ctx context.Context, out any) error {
	r := request{
		method: q.method,
		path:   "/rest/v1/" + q.table,
		query:  q.params,
		body:   q.body,
		token:  accessToken(ctx),
	}
	if q.prefer != "" {
		r.headers = map[string]string{"Prefer": q.prefer}
	}
	return q.client.do(ctx, r, out)
}

// maybeSingle runs the query and returns its only row, nil when there is
// none, and an error when there are several.
func maybeSingle[T any](ctx context.Context, q *Query) (*T, error) {
	var rows []T
	if err := q.Exec(ctx, &rows); err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		return &rows[0], nil
	default:
		return nil, errMultipleRows
	}
}
