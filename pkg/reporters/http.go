package reporters

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/samvad-hq/shapes-probe/pkg/httpclient"
	"github.com/samvad-hq/shapes-probe/pkg/shapes"
)

const maxErrorBody = 256

// webhookReporter sends each event as a JSON document. The request id of the
// probed call travels in X-Request-Id so receivers can dedupe retries.
type webhookReporter struct {
	id     string
	method string
	url    string
	client *resty.Client
	log    Logger
}

func newHTTPReporter(_ context.Context, cfg Config, log Logger) (Reporter, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("missing http block")
	}
	client := httpclient.NewRestyHTTPClient(time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeaders(cfg.HTTP.Headers)

	return &webhookReporter{
		id:     cfg.ID,
		method: cfg.HTTP.Method,
		url:    cfg.HTTP.URL,
		client: client,
		log:    shapes.OrNop(log),
	}, nil
}

func (w *webhookReporter) ID() string   { return w.id }
func (w *webhookReporter) Type() string { return TypeHTTP }

func (w *webhookReporter) Report(ctx context.Context, evt Event) error {
	resp, err := w.client.R().
		SetContext(ctx).
		SetHeader("X-Request-Id", evt.RequestID).
		SetBody(evt).
		Execute(w.method, w.url)
	if err != nil {
		return fmt.Errorf("%s %s: %w", w.method, w.url, err)
	}
	if !httpclient.IsSuccess(resp.StatusCode()) {
		return fmt.Errorf("%s %s: status %d: %s", w.method, w.url, resp.StatusCode(), errorBody(resp.Body()))
	}
	w.log.DebugObj("webhook accepted event", "reporter_delivery", map[string]any{
		"reporter_id": w.id,
		"request_id":  evt.RequestID,
		"status_code": resp.StatusCode(),
	})
	return nil
}

func errorBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody] + "..."
	}
	return s
}
