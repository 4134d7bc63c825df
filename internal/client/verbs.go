package client

import (
	"context"
	"net/http"
	"time"

	"github.com/okian/ech0client/internal/domain/model"
	"github.com/okian/ech0client/internal/notify"
	"github.com/okian/ech0client/pkg/logger"
)

// Toast raised by Put when the backend answers with a failure code.
const (
	failureTitle   = "request failed"
	failureIcon    = "i-fluent-error-circle-16-filled"
	failureColor   = "red"
	failureTimeout = 2000 * time.Millisecond
)

// UnauthorizedMsg is the msg of the envelope Get synthesizes for HTTP 401.
const UnauthorizedMsg = "Unauthorized"

// Get fetches path with params. An HTTP 401 resolves to a
// {code: 0, msg: "Unauthorized"} envelope instead of an error.
func Get[T any](ctx context.Context, c *Client, path string, params Params, opts ...CallOption) (*model.Response[T], error) {
	res := Send[T](ctx, c, newRequest(http.MethodGet, path, params, nil, opts))
	switch res.Kind {
	case KindUnauthorized:
		c.log.Debug(ctx, "unauthorized", logger.String("path", path), logger.String("request_id", res.RequestID))
		return &model.Response[T]{Code: model.CodeFailure, Msg: UnauthorizedMsg}, nil
	case KindTransportFailure:
		c.logFailure(ctx, http.MethodGet, path, res.RequestID, res.Err)
		return nil, res.Err
	default:
		return res.Envelope, nil
	}
}

// Post sends body to path. Failure codes are returned in the envelope;
// transport errors are returned as is.
func Post[T any](ctx context.Context, c *Client, path string, body any, opts ...CallOption) (*model.Response[T], error) {
	res := Send[T](ctx, c, newRequest(http.MethodPost, path, nil, body, opts))
	return settle(ctx, c, http.MethodPost, path, res)
}

// Put sends body to path. When the envelope carries a failure code one
// toast is raised and both return values are nil.
func Put[T any](ctx context.Context, c *Client, path string, body any, opts ...CallOption) (*model.Response[T], error) {
	res := Send[T](ctx, c, newRequest(http.MethodPut, path, nil, body, opts))
	if res.Kind == KindBusinessFailure {
		c.notifier.Notify(ctx, notify.Toast{
			Title:       failureTitle,
			Description: res.Message(),
			Icon:        failureIcon,
			Color:       failureColor,
			Timeout:     failureTimeout,
		})
		return nil, nil
	}
	return settle(ctx, c, http.MethodPut, path, res)
}

// Delete removes path with params. Failure codes are returned in the
// envelope; transport errors are returned as is.
func Delete[T any](ctx context.Context, c *Client, path string, params Params, opts ...CallOption) (*model.Response[T], error) {
	res := Send[T](ctx, c, newRequest(http.MethodDelete, path, params, nil, opts))
	return settle(ctx, c, http.MethodDelete, path, res)
}

// settle logs a failed call and returns its error unchanged, or returns
// the envelope.
func settle[T any](ctx context.Context, c *Client, method, path string, res Result[T]) (*model.Response[T], error) {
	if res.Err != nil {
		c.logFailure(ctx, method, path, res.RequestID, res.Err)
		return nil, res.Err
	}
	return res.Envelope, nil
}

func (c *Client) logFailure(ctx context.Context, method, path, requestID string, err error) {
	fields := []logger.Field{
		logger.String("method", method),
		logger.String("path", path),
		logger.String("request_id", requestID),
		logger.Error(err),
	}
	if status := StatusOf(err); status != 0 {
		fields = append(fields, logger.Int("status", status))
	}
	c.log.Error(ctx, "request failed", fields...)
}

func newRequest(method, path string, params Params, body any, opts []CallOption) Request {
	req := Request{Method: method, Path: path, Params: params, Body: body}
	for _, opt := range opts {
		opt(&req)
	}
	return req
}
