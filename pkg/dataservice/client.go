package dataservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/stillcare/carefront/pkg/requestid"
)

// Resource names served by the backend.
const (
	ResourceClients      = "clients"
	ResourceAppointments = "appointments"
	ResourceVisits       = "visits"
	ResourceInvoices     = "invoices"
)

const maxErrorBody = 64 << 10

// RequestObserver is told about every completed call. Status is zero when
// the request never produced a response.
type RequestObserver func(resource, method string, status int, elapsed time.Duration, err error)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithLogger sets the logger. Calls are logged at debug level and failures
// at warn.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTimeout bounds each call. Zero leaves deadlines to the caller's
// context.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithObserver registers a callback for request metrics.
func WithObserver(observer RequestObserver) Option {
	return func(c *Client) {
		c.observer = observer
	}
}

// Client talks to the care REST API. It holds no record state: every call
// returns fresh values.
type Client struct {
	base     *url.URL
	http     *http.Client
	logger   *zap.Logger
	timeout  time.Duration
	observer RequestObserver
}

// New constructs a Client for the API rooted at baseURL, for example
// "http://localhost:8000/api".
func New(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return nil, errors.New("dataservice: base url is required")
	}
	base, err := url.Parse(strings.TrimRight(trimmed, "/"))
	if err != nil {
		return nil, fmt.Errorf("dataservice: parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("dataservice: base url %q must be http or https", baseURL)
	}

	c := &Client{
		base:   base,
		http:   http.DefaultClient,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Clients returns the client collection.
func (c *Client) Clients() *Collection[CareClient] {
	return &Collection[CareClient]{client: c, resource: ResourceClients}
}

// Appointments returns the appointment collection.
func (c *Client) Appointments() *Collection[Appointment] {
	return &Collection[Appointment]{client: c, resource: ResourceAppointments}
}

// Visits returns the visit collection.
func (c *Client) Visits() *Collection[Visit] {
	return &Collection[Visit]{client: c, resource: ResourceVisits}
}

// Invoices returns the invoice group collection.
func (c *Client) Invoices() *Collection[InvoiceGroup] {
	return &Collection[InvoiceGroup]{client: c, resource: ResourceInvoices}
}

// Submit posts form values to an endpoint path such as "/incidents/" and
// returns the decoded response. Values holding an Upload are sent as
// multipart/form-data, everything else as JSON.
func (c *Client) Submit(ctx context.Context, endpoint string, values map[string]any) (map[string]any, error) {
	segments := strings.Split(strings.Trim(endpoint, "/"), "/")
	var in any = values
	if hasUploads(values) {
		encoded, err := encodeMultipart(values)
		if err != nil {
			return nil, &OperationError{Op: segments[0], Method: http.MethodPost, URL: c.path(segments...), Err: err}
		}
		in = encoded
	}
	var out map[string]any
	err := c.do(ctx, segments[0], http.MethodPost, c.path(segments...), in, &out)
	return out, err
}

// path builds {base}/{segments...}/ with the trailing slash the backend
// requires.
func (c *Client) path(segments ...string) string {
	u := *c.base
	escaped := make([]string, 0, len(segments))
	for _, s := range segments {
		if s != "" {
			escaped = append(escaped, url.PathEscape(s))
		}
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.Join(escaped, "/") + "/"
	return u.String()
}

func (c *Client) do(ctx context.Context, resource, method, target string, in, out any) (err error) {
	start := time.Now()
	status := 0
	defer func() {
		if c.observer != nil {
			c.observer(resource, method, status, time.Since(start), err)
		}
	}()

	fail := func(cause error) error {
		opErr := &OperationError{Op: resource, Method: method, URL: target, Status: status, Err: cause}
		c.logger.Warn("data service call failed",
			zap.String("method", method),
			zap.String("url", target),
			zap.Int("status", status),
			zap.Error(cause),
			zap.String("request_id", requestid.From(ctx)),
		)
		return opErr
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	ctx, id := requestid.Ensure(ctx)

	var (
		body        io.Reader
		contentType string
	)
	switch payload := in.(type) {
	case nil:
	case encodedBody:
		body, contentType = bytes.NewReader(payload.data), payload.contentType
	default:
		data, err := json.Marshal(payload)
		if err != nil {
			return fail(fmt.Errorf("encode body: %w", err))
		}
		body, contentType = bytes.NewReader(data), "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fail(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestid.Header, id)
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fail(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	status = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		opErr := fail(errors.New(http.StatusText(resp.StatusCode))).(*OperationError)
		opErr.Fields = parseFieldErrors(data)
		return opErr
	}

	c.logger.Debug("data service call",
		zap.String("method", method),
		zap.String("url", target),
		zap.Int("status", status),
		zap.Duration("duration", time.Since(start)),
		zap.String("request_id", id),
	)

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fail(fmt.Errorf("decode body: %w", err))
	}
	return nil
}

func idString(id int64) string {
	return strconv.FormatInt(id, 10)
}
