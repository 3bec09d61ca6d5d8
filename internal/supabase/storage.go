package supabase

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

type Object struct {
	Name string `json:"name"`
	Id   string `json:"id"`
}

type listRequest struct {
	Prefix string `json:"prefix"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

func objectPath(bucket, path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return url.PathEscape(bucket) + "/" + strings.Join(segments, "/")
}

// Upload stores data at path inside bucket.
func (c *Client) Upload(ctx context.Context, bucket, path, contentType string, data []byte) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	resp, err := c.request(ctx).
		SetHeader("Content-Type", contentType).
		SetHeader("x-upsert", "false").
		SetBody(data).
		Post("/storage/v1/object/" + objectPath(bucket, path))
	return c.check(fmt.Sprintf("upload %s/%s", bucket, path), resp, err)
}

// PublicURL is the unauthenticated download URL of an object in a public
// bucket. It makes no request.
func (c *Client) PublicURL(bucket, path string) string {
	return c.baseURL + "/storage/v1/object/public/" + objectPath(bucket, path)
}

// List returns up to limit objects of bucket under prefix.
func (c *Client) List(ctx context.Context, bucket, prefix string, limit int) ([]Object, error) {
	var objects []Object
	resp, err := c.request(ctx).
		SetBody(listRequest{Prefix: prefix, Limit: limit}).
		SetResult(&objects).
		Post("/storage/v1/object/list/" + url.PathEscape(bucket))
	if err := c.check(fmt.Sprintf("list %s", bucket), resp, err); err != nil {
		return nil, err
	}

	return objects, nil
}
