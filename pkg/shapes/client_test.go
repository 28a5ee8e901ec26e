package shapes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/samvad-hq/shapes-probe/pkg/httpclient"
)

func newTestClient(t *testing.T, helloURL, shapesURL string, opts ...Option) *Client {
	t.Helper()
	c, err := New(Config{HelloURL: helloURL, ShapesURL: shapesURL, APIKey: "test-key"}, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func statusServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// fakeHTTP answers every Get with a fixed status and body.
type fakeHTTP struct {
	status int
	body   string
	err    error
}

type fakeResponse struct {
	status int
	body   []byte
}

func (r fakeResponse) Body() []byte    { return r.body }
func (r fakeResponse) StatusCode() int { return r.status }

func (f fakeHTTP) Get(context.Context, string, map[string]string) (httpclient.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	return fakeResponse{status: f.status, body: []byte(f.body)}, nil
}

func TestHelloStatusClassification(t *testing.T) {
	for status := 100; status <= 599; status++ {
		c := newTestClient(t, "http://hello.invalid", "http://shapes.invalid", WithHTTPClient(fakeHTTP{status: status}))
		got := c.Hello(context.Background()).String()
		want := OutcomeFailure
		if status >= 200 && status <= 299 {
			want = OutcomeSuccess
		}
		if got != want {
			t.Fatalf("status %d: got %q, want %q", status, got, want)
		}
	}
}

func TestHelloSendsNoAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if got := r.Header.Get(APIKeyHeader); got != "" {
			t.Errorf("hello should not carry Api-Key, got %q", got)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, srv.URL)
	o := c.Hello(context.Background())
	if o.Kind != KindSuccess || o.StatusCode != http.StatusNoContent {
		t.Fatalf("unexpected outcome %+v", o)
	}
	if o.RequestID == "" {
		t.Fatalf("expected request id")
	}
}

func TestShapesOutcomes(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		kind   Kind
		want   string
	}{
		{name: "shape preserved", status: 200, body: `{"shape":"Circle"}`, kind: KindShape, want: "Circle"},
		{name: "extra fields ignored", status: 200, body: `{"shape":"square","status":"ok","n":1}`, kind: KindShape, want: "square"},
		{name: "null shape", status: 200, body: `{"shape":null}`, kind: KindUnknown, want: OutcomeUnknown},
		{name: "missing shape", status: 200, body: `{}`, kind: KindUnknown, want: OutcomeUnknown},
		{name: "unauthorized", status: 401, body: `{"shape":"circle"}`, kind: KindFailure, want: OutcomeFailure},
		{name: "server error", status: 503, body: `oops`, kind: KindFailure, want: OutcomeFailure},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := statusServer(t, tc.status, tc.body)
			c := newTestClient(t, srv.URL, srv.URL)
			o := c.Shapes(context.Background())
			if o.Kind != tc.kind {
				t.Fatalf("kind = %v, want %v", o.Kind, tc.kind)
			}
			if o.String() != tc.want {
				t.Fatalf("outcome = %q, want %q", o.String(), tc.want)
			}
			if o.StatusCode != tc.status {
				t.Fatalf("status = %d", o.StatusCode)
			}
		})
	}
}

func TestShapesMalformedBodyIsException(t *testing.T) {
	for _, body := range []string{`not json`, `{"shape":`, `{"shape":5}`, `null`, `[]`, ``} {
		c := newTestClient(t, "http://hello.invalid", "http://shapes.invalid", WithHTTPClient(fakeHTTP{status: 200, body: body}))
		o := c.Shapes(context.Background())
		if o.Kind != KindDecodeError {
			t.Fatalf("body %q: kind = %v", body, o.Kind)
		}
		if !strings.HasPrefix(o.String(), ExceptionPrefix) {
			t.Fatalf("body %q: outcome = %q", body, o.String())
		}
	}
}

func TestShapesSendsAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get(APIKeyHeader); got != "test-key" {
			t.Errorf("Api-Key = %q", got)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"shape":"triangle"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, srv.URL)
	if got := c.Shapes(context.Background()).String(); got != "triangle" {
		t.Fatalf("outcome = %q", got)
	}
}

func TestTransportFailureIsException(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newTestClient(t, url, url)
	for _, o := range []Outcome{c.Hello(context.Background()), c.Shapes(context.Background())} {
		if o.Kind != KindTransportError {
			t.Fatalf("%s: kind = %v", o.Endpoint, o.Kind)
		}
		if !strings.HasPrefix(o.String(), ExceptionPrefix) {
			t.Fatalf("%s: outcome = %q", o.Endpoint, o.String())
		}
		if o.StatusCode != 0 {
			t.Fatalf("%s: unexpected status %d", o.Endpoint, o.StatusCode)
		}
	}
}

func TestSignerInjectsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Approov-Token"); got != "tok" {
			t.Errorf("token header = %q", got)
		}
		if got := r.Header.Get(APIKeyHeader); got != "test-key" {
			t.Errorf("Api-Key = %q", got)
		}
		_, _ = w.Write([]byte(`{"shape":"rectangle"}`))
	}))
	defer srv.Close()

	var seen []Endpoint
	var mu sync.Mutex
	signer := SignerFunc(func(ctx context.Context, req *Request) error {
		mu.Lock()
		seen = append(seen, req.Endpoint)
		mu.Unlock()
		return HeaderSigner{"approov-token": "tok"}.Sign(ctx, req)
	})

	c := newTestClient(t, srv.URL, srv.URL, WithSigner(signer))
	if got := c.Shapes(context.Background()).String(); got != "rectangle" {
		t.Fatalf("outcome = %q", got)
	}
	if len(seen) != 1 || seen[0] != EndpointShapes {
		t.Fatalf("signer saw %v", seen)
	}
}

func TestSignerErrorIsException(t *testing.T) {
	c := newTestClient(t, "http://hello.invalid", "http://shapes.invalid",
		WithHTTPClient(fakeHTTP{status: 200}),
		WithSigner(SignerFunc(func(context.Context, *Request) error { return errors.New("no token") })),
	)
	o := c.Hello(context.Background())
	if o.Kind != KindTransportError || !strings.Contains(o.String(), "no token") {
		t.Fatalf("unexpected outcome %q", o.String())
	}
}

func TestHelloAsyncInvokesCallbackOnce(t *testing.T) {
	srv := statusServer(t, http.StatusOK, "")
	c := newTestClient(t, srv.URL, srv.URL)

	var calls []string
	var mu sync.Mutex
	done := make(chan struct{})
	c.HelloAsync(context.Background(), func(s string) {
		mu.Lock()
		calls = append(calls, s)
		mu.Unlock()
		close(done)
	})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("callback not invoked")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(calls) != 1 || calls[0] != OutcomeSuccess {
		t.Fatalf("calls = %v", calls)
	}
}

func TestConcurrentShapesNoCrossTalk(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		shape := r.URL.Query().Get("want")
		if shape == "circle" {
			<-release
		}
		fmt.Fprintf(w, `{"shape":%q}`, shape)
	}))
	defer srv.Close()
	defer func() {
		select {
		case <-release:
		default:
			close(release)
		}
	}()

	slow := newTestClient(t, srv.URL, srv.URL+"?want=circle")
	fast := newTestClient(t, srv.URL, srv.URL+"?want=square")

	results := make(chan string, 2)
	slow.ShapesAsync(context.Background(), func(s string) { results <- "slow:" + s })
	fast.ShapesAsync(context.Background(), func(s string) { results <- "fast:" + s })

	first := <-results
	close(release)
	second := <-results

	if first != "fast:square" {
		t.Fatalf("first = %q", first)
	}
	if second != "slow:circle" {
		t.Fatalf("second = %q", second)
	}
}

func TestRepeatedShapesAsyncIndependentCallbacks(t *testing.T) {
	var mu sync.Mutex
	n := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		n++
		shape := []string{"circle", "square"}[n%2]
		mu.Unlock()
		fmt.Fprintf(w, `{"shape":%q}`, shape)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, srv.URL)
	results := make(chan string, 2)
	c.ShapesAsync(context.Background(), func(s string) { results <- s })
	c.ShapesAsync(context.Background(), func(s string) { results <- s })

	got := map[string]int{}
	for i := 0; i < 2; i++ {
		select {
		case s := <-results:
			got[s]++
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for callbacks")
		}
	}
	if got["circle"] != 1 || got["square"] != 1 {
		t.Fatalf("unexpected callbacks %v", got)
	}
}

func TestOutcomeChannelResolvesOnce(t *testing.T) {
	srv := statusServer(t, http.StatusOK, `{"shape":"Square"}`)
	c := newTestClient(t, srv.URL, srv.URL)

	ch := c.ShapesOutcome(context.Background())
	o, ok := <-ch
	if !ok || o.Kind != KindShape || o.Shape != "Square" {
		t.Fatalf("unexpected outcome %+v ok=%v", o, ok)
	}
	again, ok := <-ch
	if ok {
		t.Fatalf("channel should be closed after one outcome")
	}
	if again.OK() || again.String() == OutcomeSuccess {
		t.Fatalf("receive on closed channel reads as success: %+v", again)
	}
}

func TestSerialDispatcherReceivesCallbacks(t *testing.T) {
	srv := statusServer(t, http.StatusInternalServerError, "")
	d := NewSerialDispatcher(4)
	defer d.Stop()
	c := newTestClient(t, srv.URL, srv.URL, WithDispatcher(d))

	got := make(chan Outcome, 1)
	c.OnHello(context.Background(), func(o Outcome) { got <- o })
	select {
	case o := <-got:
		if o.Kind != KindFailure || o.String() != OutcomeFailure {
			t.Fatalf("unexpected outcome %+v", o)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("callback not dispatched")
	}
}

func TestCloseWaitsForInflight(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := New(Config{HelloURL: srv.URL, ShapesURL: srv.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var delivered bool
	var mu sync.Mutex
	c.HelloAsync(context.Background(), func(string) {
		mu.Lock()
		delivered = true
		mu.Unlock()
	})

	closed := make(chan struct{})
	go func() {
		_ = c.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatalf("Close returned before in-flight call finished")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	<-closed

	mu.Lock()
	defer mu.Unlock()
	if !delivered {
		t.Fatalf("in-flight callback was not delivered before Close returned")
	}
}

func TestAsyncAfterCloseReportsClosed(t *testing.T) {
	c, err := New(Config{HelloURL: "http://hello.invalid", ShapesURL: "http://shapes.invalid"}, WithHTTPClient(fakeHTTP{status: 200}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_ = c.Close()

	o := <-c.HelloOutcome(context.Background())
	if !errors.Is(o.Err, ErrClosed) || !strings.HasPrefix(o.String(), ExceptionPrefix) {
		t.Fatalf("unexpected outcome %+v", o)
	}
}

func TestNewRejectsEmptyURLs(t *testing.T) {
	if _, err := New(Config{ShapesURL: "http://x"}); err == nil {
		t.Fatalf("expected error for empty hello url")
	}
	if _, err := New(Config{HelloURL: "http://x"}); err == nil {
		t.Fatalf("expected error for empty shapes url")
	}
}

func TestElapsedUsesClock(t *testing.T) {
	base := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	ticks := 0
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		ticks++
		return base.Add(time.Duration(ticks) * time.Second)
	}
	c := newTestClient(t, "http://hello.invalid", "http://shapes.invalid", WithHTTPClient(fakeHTTP{status: 200}), WithClock(clock))
	o := c.Hello(context.Background())
	if o.Elapsed != time.Second {
		t.Fatalf("elapsed = %v", o.Elapsed)
	}
}
