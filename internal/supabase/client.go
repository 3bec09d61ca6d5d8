// Package supabase is a typed client for the Supabase auth (GoTrue), table
// (PostgREST) and storage APIs.
package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const defaultTimeout = 30 * time.Second

type ErrorKind string

const (
	KindNetwork  ErrorKind = "network"
	KindAuth     ErrorKind = "auth"
	KindNotFound ErrorKind = "not_found"
	KindConflict ErrorKind = "conflict"
	KindRemote   ErrorKind = "remote"
)

// Error is returned by every Client call that fails, whether the request never
// reached the service or the service answered with an error status.
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("supabase %s (%d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("supabase %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var sbErr *Error
	return errors.As(err, &sbErr) && sbErr.Kind == kind
}

// errorBody covers the error shapes of GoTrue, PostgREST and Storage.
type errorBody struct {
	Message          string `json:"message"`
	Msg              string `json:"msg"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Code             any    `json:"code"`
}

func (b *errorBody) text() string {
	for _, s := range []string{b.ErrorDescription, b.Message, b.Msg, b.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

func kindForStatus(status int) ErrorKind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuth
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	default:
		return KindRemote
	}
}

type contextKey string

const accessTokenKey contextKey = "access-token"

// WithAccessToken returns a context whose requests are made on behalf of the
// user owning token, so row-level security applies to them.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey, token)
}

func AccessToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(accessTokenKey).(string)
	return token, ok && token != ""
}

type Client struct {
	http    *resty.Client
	log     *zap.Logger
	baseURL string
	apiKey  string
}

func NewClient(baseURL, apiKey string, logger *zap.Logger) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(defaultTimeout).
		SetHeader("Accept", "application/json").
		SetHeader("apikey", apiKey)

	return &Client{
		http:    httpClient,
		log:     logger,
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// request builds a request carrying the caller's access token when the
// context has one, and the client's api key otherwise.
func (c *Client) request(ctx context.Context) *resty.Request {
	bearer := c.apiKey
	if token, ok := AccessToken(ctx); ok {
		bearer = token
	}

	return c.http.R().
		SetContext(ctx).
		SetAuthToken(bearer).
		SetError(&errorBody{})
}

func (c *Client) check(op string, resp *resty.Response, err error) error {
	if err != nil {
		c.log.Debug("supabase request failed", zap.String("op", op), zap.Error(err))
		return &Error{Kind: KindNetwork, Message: fmt.Sprintf("%s: %v", op, err), Err: err}
	}

	if !resp.IsError() {
		return nil
	}

	msg := resp.Status()
	if body, ok := resp.Error().(*errorBody); ok && body.text() != "" {
		msg = body.text()
	}

	c.log.Debug("supabase returned error",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode()),
		zap.String("message", msg),
	)

	return &Error{
		Kind:    kindForStatus(resp.StatusCode()),
		Status:  resp.StatusCode(),
		Message: fmt.Sprintf("%s: %s", op, msg),
	}
}
