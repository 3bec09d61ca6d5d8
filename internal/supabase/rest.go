package supabase

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Query is a PostgREST request against one table. Filters are combined with
// AND, matching PostgREST's query string semantics.
type Query struct {
	table  string
	params url.Values
}

func From(table string) *Query {
	return &Query{table: table, params: url.Values{}}
}

func (q *Query) Table() string {
	return q.table
}

func (q *Query) Select(columns string) *Query {
	q.params.Set("select", columns)
	return q
}

func (q *Query) Eq(column, value string) *Query {
	q.params.Add(column, "eq."+value)
	return q
}

// ILike matches column case-insensitively against pattern, where * is the
// wildcard.
func (q *Query) ILike(column, pattern string) *Query {
	q.params.Add(column, "ilike."+pattern)
	return q
}

func (q *Query) Gte(column string, value float64) *Query {
	q.params.Add(column, "gte."+formatFloat(value))
	return q
}

func (q *Query) Lte(column string, value float64) *Query {
	q.params.Add(column, "lte."+formatFloat(value))
	return q
}

func (q *Query) In(column string, values []string) *Query {
	quoted := make([]string, 0, len(values))
	for _, v := range values {
		quoted = append(quoted, `"`+strings.ReplaceAll(v, `"`, `\"`)+`"`)
	}
	q.params.Add(column, "in.("+strings.Join(quoted, ",")+")")
	return q
}

func (q *Query) Order(column string, ascending bool) *Query {
	dir := "desc"
	if ascending {
		dir = "asc"
	}
	q.params.Set("order", column+"."+dir)
	return q
}

func (q *Query) Limit(n int) *Query {
	q.params.Set("limit", strconv.Itoa(n))
	return q
}

// Values returns a copy of the encoded query parameters.
func (q *Query) Values() url.Values {
	out := url.Values{}
	for k, v := range q.params {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// EscapeLike escapes the like wildcards in a user supplied substring.
// PostgREST rewrites every * to % before the pattern reaches Postgres, so a *
// cannot be escaped and stays a wildcard.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func restPath(table string) string {
	return "/rest/v1/" + url.PathEscape(table)
}

// Select runs q and decodes the resulting rows into out, which must be a
// pointer to a slice.
func (c *Client) Select(ctx context.Context, q *Query, out any) error {
	resp, err := c.request(ctx).
		SetQueryParamsFromValues(q.Values()).
		SetResult(out).
		Get(restPath(q.table))
	return c.check(fmt.Sprintf("select %s", q.table), resp, err)
}

// Insert inserts one row or a slice of rows. When out is non-nil the inserted
// representation is decoded into it.
func (c *Client) Insert(ctx context.Context, table string, rows any, out any) error {
	req := c.request(ctx).SetBody(rows)
	if out != nil {
		req.SetHeader("Prefer", "return=representation").SetResult(out)
	} else {
		req.SetHeader("Prefer", "return=minimal")
	}

	resp, err := req.Post(restPath(table))
	return c.check(fmt.Sprintf("insert %s", table), resp, err)
}

// Upsert inserts rows, merging on the onConflict column.
func (c *Client) Upsert(ctx context.Context, table string, rows any, onConflict string) error {
	resp, err := c.request(ctx).
		SetQueryParam("on_conflict", onConflict).
		SetHeader("Prefer", "resolution=merge-duplicates,return=minimal").
		SetBody(rows).
		Post(restPath(table))
	return c.check(fmt.Sprintf("upsert %s", table), resp, err)
}

func (c *Client) Update(ctx context.Context, q *Query, patch any) error {
	resp, err := c.request(ctx).
		SetQueryParamsFromValues(q.Values()).
		SetHeader("Prefer", "return=minimal").
		SetBody(patch).
		Patch(restPath(q.table))
	return c.check(fmt.Sprintf("update %s", q.table), resp, err)
}

func (c *Client) Delete(ctx context.Context, q *Query) error {
	resp, err := c.request(ctx).
		SetQueryParamsFromValues(q.Values()).
		SetHeader("Prefer", "return=minimal").
		Delete(restPath(q.table))
	return c.check(fmt.Sprintf("delete %s", q.table), resp, err)
}
