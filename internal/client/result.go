package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/okian/ech0client/internal/domain/model"
	"github.com/okian/ech0client/pkg/metrics"
)

const (
	contentTypeJSON  = "application/json"
	maxErrorBodySize = 64 << 10
)

// Kind classifies how a call ended.
type Kind int

// Call outcomes.
const (
	KindOK Kind = iota
	KindUnauthorized
	KindBusinessFailure
	KindTransportFailure
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return metrics.OutcomeOK
	case KindUnauthorized:
		return metrics.OutcomeUnauthorized
	case KindBusinessFailure:
		return metrics.OutcomeBusinessFailure
	case KindTransportFailure:
		return metrics.OutcomeTransportError
	default:
		return "unknown"
	}
}

// Result is the tagged outcome of one call.
//
// Envelope is set for KindOK and KindBusinessFailure. Err is set for
// KindUnauthorized and KindTransportFailure.
type Result[T any] struct {
	Kind       Kind
	Envelope   *model.Response[T]
	Err        error
	StatusCode int
	RequestID  string
}

// Message returns the envelope's msg, or "" when there is no envelope.
func (r Result[T]) Message() string {
	if r.Envelope == nil {
		return ""
	}
	return r.Envelope.Msg
}

// Request describes one call.
type Request struct {
	Method string
	Path   string
	Params Params
	// Body is JSON encoded unless it is a *Form, []byte or io.Reader. A nil
	// Body on POST or PUT is sent as JSON null.
	Body        any
	Credentials bool
}

// CallOption adjusts a single call.
type CallOption func(*Request)

// IncludeCredentials sends cookies from the client's jar with the call and
// stores cookies set by the response.
func IncludeCredentials() CallOption {
	return func(r *Request) {
		r.Credentials = true
	}
}

// StatusError is returned for a response with a non-2xx status.
type StatusError struct {
	// Response carries the status and headers. Its body is already closed.
	Response *http.Response
	Body     []byte
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("http status %s", e.Response.Status)
	if len(e.Body) > 0 {
		msg += ": " + strings.TrimSpace(string(e.Body))
	}
	return msg
}

// StatusCoder is implemented by transport errors that carry an HTTP status
// at the top level rather than in a nested response.
type StatusCoder interface {
	HTTPStatus() int
}

// StatusOf returns the HTTP status carried by err, or 0. Both failure shapes
// are checked: a nested response status (*StatusError) and a top-level
// status (StatusCoder).
func StatusOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) && se.Response != nil {
		return se.Response.StatusCode
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.HTTPStatus()
	}
	return 0
}

// Send performs one call and classifies its outcome. It never logs; the
// verb functions decide what to log.
func Send[T any](ctx context.Context, c *Client, req Request) Result[T] {
	start := time.Now()
	res := send[T](ctx, c, req)
	c.observe(req, res.Kind, res.Err, start)
	return res
}

func send[T any](ctx context.Context, c *Client, req Request) Result[T] {
	// Captured once; a concurrent logout does not affect this call.
	token := c.tokens.Token()
	res := Result[T]{RequestID: uuid.NewString()}

	body, contentType, err := encodeBody(req.Method, req.Body)
	if err != nil {
		res.Kind, res.Err = KindTransportFailure, err
		return res
	}

	target := c.url(req.Path, req.Params)
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		res.Kind, res.Err = KindTransportFailure, err
		return res
	}
	httpReq.Header.Set("Authorization", authorization(token))
	httpReq.Header.Set("Accept", contentTypeJSON)
	httpReq.Header.Set("X-Request-Id", res.RequestID)
	if req.Method == http.MethodGet {
		httpReq.Header.Set("Cache-Control", "no-cache")
		httpReq.Header.Set("Pragma", "no-cache")
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if req.Credentials {
		for _, ck := range c.jar.Cookies(httpReq.URL) {
			httpReq.AddCookie(ck)
		}
	}

	resp, err := c.doer.Do(httpReq)
	if err != nil {
		res.Err = err
		res.StatusCode = StatusOf(err)
		res.Kind = KindTransportFailure
		if res.StatusCode == http.StatusUnauthorized {
			res.Kind = KindUnauthorized
		}
		return res
	}
	defer func() { _ = resp.Body.Close() }()

	res.StatusCode = resp.StatusCode
	if req.Credentials {
		if cookies := resp.Cookies(); len(cookies) > 0 {
			c.jar.SetCookies(httpReq.URL, cookies)
		}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		res.Err = &StatusError{Response: resp, Body: data}
		res.Kind = KindTransportFailure
		if resp.StatusCode == http.StatusUnauthorized {
			res.Kind = KindUnauthorized
		}
		return res
	}

	var env model.Response[T]
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		res.Kind, res.Err = KindTransportFailure, fmt.Errorf("%w: %w", ErrDecodeBody, err)
		return res
	}
	res.Envelope = &env
	if env.Code != model.CodeSuccess {
		res.Kind = KindBusinessFailure
		return res
	}
	res.Kind = KindOK
	return res
}

// encodeBody returns the body reader and the Content-Type to set, if any.
// POST and PUT always carry a body; a nil one is sent as JSON null.
func encodeBody(method string, body any) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		if method == http.MethodPost || method == http.MethodPut {
			return strings.NewReader("null"), contentTypeJSON, nil
		}
		return nil, "", nil
	case *Form:
		return b.encode()
	case []byte:
		return bytes.NewReader(b), "", nil
	case io.Reader:
		return b, "", nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %w", ErrEncodeBody, err)
		}
		return bytes.NewReader(data), contentTypeJSON, nil
	}
}

func (c *Client) observe(req Request, kind Kind, err error, start time.Time) {
	endpoint := endpointOf(req.Path)
	metrics.RecordRequest(req.Method, endpoint, kind.String(), float64(time.Since(start).Milliseconds()))
	if kind == KindTransportFailure {
		metrics.RecordTransportError(req.Method, errorType(err))
	}
}

// endpointOf keeps metric labels bounded by using the first path segment.
func endpointOf(path string) string {
	path = strings.TrimLeft(path, "/")
	if i := strings.IndexAny(path, "/?"); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "root"
	}
	return path
}

func errorType(err error) string {
	if status := StatusOf(err); status != 0 {
		return "status_" + strconv.Itoa(status)
	}
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	case errors.Is(err, ErrEncodeBody):
		return "encode"
	case errors.Is(err, ErrDecodeBody):
		return "decode"
	default:
		return "network"
	}
}
