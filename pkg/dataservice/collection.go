package dataservice

import (
	"context"
	"net/http"
)

// Collection is one REST resource: {base}/{resource}/ and
// {base}/{resource}/{id}/.
type Collection[T any] struct {
	client   *Client
	resource string
}

// Resource reports the collection name.
func (c *Collection[T]) Resource() string {
	return c.resource
}

// List fetches every record.
func (c *Collection[T]) List(ctx context.Context) ([]T, error) {
	var out []T
	err := c.client.do(ctx, c.resource, http.MethodGet, c.client.path(c.resource), nil, &out)
	return out, err
}

// Get fetches one record.
func (c *Collection[T]) Get(ctx context.Context, id int64) (T, error) {
	var out T
	err := c.client.do(ctx, c.resource, http.MethodGet, c.client.path(c.resource, idString(id)), nil, &out)
	return out, err
}

// Create posts a new record and returns it as stored.
func (c *Collection[T]) Create(ctx context.Context, record T) (T, error) {
	var out T
	err := c.client.do(ctx, c.resource, http.MethodPost, c.client.path(c.resource), record, &out)
	return out, err
}

// Replace overwrites a record with PUT and returns it as stored.
func (c *Collection[T]) Replace(ctx context.Context, id int64, record T) (T, error) {
	var out T
	err := c.client.do(ctx, c.resource, http.MethodPut, c.client.path(c.resource, idString(id)), record, &out)
	return out, err
}

// Delete removes a record.
func (c *Collection[T]) Delete(ctx context.Context, id int64) error {
	return c.client.do(ctx, c.resource, http.MethodDelete, c.client.path(c.resource, idString(id)), nil, nil)
}
