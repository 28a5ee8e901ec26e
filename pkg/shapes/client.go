package shapes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samvad-hq/shapes-probe/pkg/httpclient"
)

const (
	DefaultHelloURL  = "https://shapes.approov.io/v1/hello/"
	DefaultShapesURL = "https://shapes.approov.io/v1/shapes/"
	DefaultAPIKey    = "yXClypapWNHIifHUWmBIyPFAm"

	// APIKeyHeader carries the static shapes key.
	APIKeyHeader = "Api-Key"
)

// ErrClosed is reported for calls made after Close.
var ErrClosed = errors.New("shapes client is closed")

// Config holds the fixed endpoints and key the facade talks to.
type Config struct {
	HelloURL  string
	ShapesURL string
	APIKey    string
}

// DefaultConfig returns the demo service endpoints.
func DefaultConfig() Config {
	return Config{
		HelloURL:  DefaultHelloURL,
		ShapesURL: DefaultShapesURL,
		APIKey:    DefaultAPIKey,
	}
}

func (c Config) validate() error {
	if strings.TrimSpace(c.HelloURL) == "" {
		return errors.New("hello url is required")
	}
	if strings.TrimSpace(c.ShapesURL) == "" {
		return errors.New("shapes url is required")
	}
	return nil
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the owned resty transport.
func WithHTTPClient(hc httpclient.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets a per-request timeout on the default transport. Zero keeps the transport default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithSigner installs a request signer invoked before every call.
func WithSigner(s Signer) Option {
	return func(c *Client) { c.signer = s }
}

// WithDispatcher sets where string and outcome callbacks run. Defaults to Inline.
func WithDispatcher(d Dispatcher) Option {
	return func(c *Client) {
		if d != nil {
			c.dispatcher = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log Logger) Option {
	return func(c *Client) { c.log = OrNop(log) }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// Client is the facade over the hello and shapes endpoints. It is safe for
// concurrent use; every call is independent and produces exactly one Outcome.
type Client struct {
	cfg        Config
	http       httpclient.Client
	timeout    time.Duration
	signer     Signer
	dispatcher Dispatcher
	log        Logger
	now        func() time.Time

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// New builds a Client that owns its HTTP transport unless one is supplied.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid shapes config: %w", err)
	}
	c := &Client{
		cfg:        cfg,
		dispatcher: Inline,
		log:        NopLogger{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = httpclient.NewRestyClient(c.timeout)
	}
	return c, nil
}

// Hello performs the connectivity check. Any 2xx is success; the body is ignored.
func (c *Client) Hello(ctx context.Context) Outcome {
	o, resp := c.get(ctx, EndpointHello, c.cfg.HelloURL, nil)
	if resp == nil {
		return c.finish(o)
	}
	o.StatusCode = resp.StatusCode()
	if httpclient.IsSuccess(o.StatusCode) {
		o.Kind = KindSuccess
	} else {
		o.Kind = KindFailure
	}
	return c.finish(o)
}

// Shapes performs the shape lookup with the Api-Key header.
func (c *Client) Shapes(ctx context.Context) Outcome {
	headers := map[string]string{}
	if c.cfg.APIKey != "" {
		headers[APIKeyHeader] = c.cfg.APIKey
	}
	o, resp := c.get(ctx, EndpointShapes, c.cfg.ShapesURL, headers)
	if resp == nil {
		return c.finish(o)
	}
	o.StatusCode = resp.StatusCode()
	if !httpclient.IsSuccess(o.StatusCode) {
		o.Kind = KindFailure
		return c.finish(o)
	}

	body, err := decodeShapeResponse(resp.Body())
	switch {
	case err != nil:
		o.Kind = KindDecodeError
		o.Err = err
	case body.Shape == nil:
		o.Kind = KindUnknown
	default:
		o.Kind = KindShape
		o.Shape = *body.Shape
	}
	return c.finish(o)
}

// HelloAsync runs Hello on its own goroutine and passes the outcome string
// to callback through the configured Dispatcher.
func (c *Client) HelloAsync(ctx context.Context, callback func(string)) {
	c.OnHello(ctx, stringCallback(callback))
}

// ShapesAsync runs Shapes on its own goroutine and passes the outcome string
// to callback through the configured Dispatcher.
func (c *Client) ShapesAsync(ctx context.Context, callback func(string)) {
	c.OnShapes(ctx, stringCallback(callback))
}

// OnHello is HelloAsync with the tagged Outcome.
func (c *Client) OnHello(ctx context.Context, callback func(Outcome)) {
	c.launch(ctx, EndpointHello, c.Hello, c.dispatched(callback))
}

// OnShapes is ShapesAsync with the tagged Outcome.
func (c *Client) OnShapes(ctx context.Context, callback func(Outcome)) {
	c.launch(ctx, EndpointShapes, c.Shapes, c.dispatched(callback))
}

// HelloOutcome starts Hello and returns a channel that yields its Outcome once and is then closed.
func (c *Client) HelloOutcome(ctx context.Context) <-chan Outcome {
	return c.future(ctx, EndpointHello, c.Hello)
}

// ShapesOutcome starts Shapes and returns a channel that yields its Outcome once and is then closed.
func (c *Client) ShapesOutcome(ctx context.Context) <-chan Outcome {
	return c.future(ctx, EndpointShapes, c.Shapes)
}

// Close waits for in-flight async calls and releases pooled connections.
// Async calls started after Close report ErrClosed; blocking calls still run.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.inflight.Wait()
	if ic, ok := c.http.(httpclient.IdleCloser); ok {
		ic.CloseIdleConnections()
	}
	return nil
}

func (c *Client) future(ctx context.Context, ep Endpoint, call func(context.Context) Outcome) <-chan Outcome {
	ch := make(chan Outcome, 1)
	c.launch(ctx, ep, call, func(o Outcome) {
		ch <- o
		close(ch)
	})
	return ch
}

func (c *Client) launch(ctx context.Context, ep Endpoint, call func(context.Context) Outcome, deliver func(Outcome)) {
	if ctx == nil {
		ctx = context.Background()
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		o := c.begin(ep)
		o.Kind = KindTransportError
		o.Err = ErrClosed
		deliver(c.finish(o))
		return
	}
	c.inflight.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.inflight.Done()
		deliver(call(ctx))
	}()
}

func (c *Client) dispatched(callback func(Outcome)) func(Outcome) {
	return func(o Outcome) {
		if callback == nil {
			return
		}
		c.dispatcher.Dispatch(func() { callback(o) })
	}
}

func stringCallback(callback func(string)) func(Outcome) {
	return func(o Outcome) {
		if callback != nil {
			callback(o.String())
		}
	}
}

func (c *Client) begin(ep Endpoint) Outcome {
	return Outcome{
		Endpoint:  ep,
		RequestID: uuid.NewString(),
		StartedAt: c.now(),
	}
}

// get signs and sends the request. A nil response means o already carries a transport error.
func (c *Client) get(ctx context.Context, ep Endpoint, url string, headers map[string]string) (Outcome, httpclient.Response) {
	if ctx == nil {
		ctx = context.Background()
	}
	o := c.begin(ep)
	c.log.DebugObj("shapes request started", "shapes_request", map[string]any{
		"request_id": o.RequestID,
		"endpoint":   string(ep),
		"url":        url,
	})

	if headers == nil {
		headers = map[string]string{}
	}
	if c.signer != nil {
		req := &Request{Endpoint: ep, Method: http.MethodGet, URL: url, Headers: headers}
		if err := c.signer.Sign(ctx, req); err != nil {
			o.Kind = KindTransportError
			o.Err = fmt.Errorf("sign request: %w", err)
			return o, nil
		}
		url, headers = req.URL, req.Headers
	}

	resp, err := c.http.Get(ctx, url, headers)
	if err != nil {
		o.Kind = KindTransportError
		o.Err = err
		return o, nil
	}
	if resp == nil {
		o.Kind = KindTransportError
		o.Err = errors.New("empty response from transport")
		return o, nil
	}
	return o, resp
}

func (c *Client) finish(o Outcome) Outcome {
	o.Elapsed = c.now().Sub(o.StartedAt)
	fields := map[string]any{
		"request_id":  o.RequestID,
		"endpoint":    string(o.Endpoint),
		"kind":        o.Kind.String(),
		"outcome":     o.String(),
		"status_code": o.StatusCode,
		"elapsed_ms":  o.Elapsed.Milliseconds(),
	}
	if o.OK() {
		c.log.InfoObj("shapes request completed", "shapes_result", fields)
	} else {
		c.log.WarnObj("shapes request failed", "shapes_result", fields)
	}
	return o
}
