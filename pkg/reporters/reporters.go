// Package reporters forwards probe outcomes to downstream sinks: HTTP
// webhooks, SQS queues, SNS topics and Pub/Sub topics. Each sink declares
// which outcomes it wants through a Notify mode.
package reporters

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/samvad-hq/shapes-probe/pkg/shapes"
)

// Sink types.
const (
	TypeHTTP   = "http"
	TypeSQS    = "sqs"
	TypeSNS    = "sns"
	TypePubSub = "pubsub"
)

const defaultHTTPTimeoutSeconds = 5

// Reporter delivers one event to a sink.
type Reporter interface {
	ID() string
	Type() string
	Report(ctx context.Context, evt Event) error
}

// Logger is the facade's logging surface.
type Logger = shapes.Logger

// Notify selects which events a reporter receives.
type Notify string

const (
	// NotifyAll delivers every outcome.
	NotifyAll Notify = "all"
	// NotifyFailures delivers outcomes that did not succeed.
	NotifyFailures Notify = "failures"
	// NotifyChanges delivers an outcome only when it differs from the
	// previous outcome of the same endpoint.
	NotifyChanges Notify = "changes"
)

func (n Notify) valid() bool {
	switch n {
	case NotifyAll, NotifyFailures, NotifyChanges:
		return true
	}
	return false
}

func (n Notify) wants(evt Event, changed bool) bool {
	switch n {
	case NotifyFailures:
		return !evt.OK
	case NotifyChanges:
		return changed
	default:
		return true
	}
}

// Config declares one reporter. It is decoded by viper from the reporters file.
type Config struct {
	ID      string        `mapstructure:"id" yaml:"id"`
	Type    string        `mapstructure:"type" yaml:"type"`
	Enabled *bool         `mapstructure:"enabled" yaml:"enabled,omitempty"`
	Notify  Notify        `mapstructure:"notify" yaml:"notify"`
	HTTP    *HTTPConfig   `mapstructure:"http" yaml:"http,omitempty"`
	SQS     *SQSConfig    `mapstructure:"sqs" yaml:"sqs,omitempty"`
	SNS     *SNSConfig    `mapstructure:"sns" yaml:"sns,omitempty"`
	PubSub  *PubSubConfig `mapstructure:"pubsub" yaml:"pubsub,omitempty"`
}

// HTTPConfig targets a webhook.
type HTTPConfig struct {
	URL            string            `mapstructure:"url" yaml:"url"`
	Method         string            `mapstructure:"method" yaml:"method"`
	Headers        map[string]string `mapstructure:"headers" yaml:"headers,omitempty"`
	TimeoutSeconds int               `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// SQSConfig targets an SQS queue.
type SQSConfig struct {
	QueueURL string `mapstructure:"uri" yaml:"uri"`
	Region   string `mapstructure:"region" yaml:"region"`
}

// SNSConfig targets an SNS topic.
type SNSConfig struct {
	TopicARN string `mapstructure:"topic_arn" yaml:"topic_arn"`
	Region   string `mapstructure:"region" yaml:"region"`
}

// PubSubConfig targets a Google Cloud Pub/Sub topic. CredentialsFile is
// optional; application default credentials are used otherwise.
type PubSubConfig struct {
	ProjectID       string `mapstructure:"project_id" yaml:"project_id"`
	Topic           string `mapstructure:"topic" yaml:"topic"`
	CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file,omitempty"`
}

// IsEnabled reports the enabled flag, which defaults to true.
func (c Config) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Redacted returns a copy with webhook header values masked.
func (c Config) Redacted() Config {
	if c.HTTP == nil || len(c.HTTP.Headers) == 0 {
		return c
	}
	h := *c.HTTP
	h.Headers = make(map[string]string, len(c.HTTP.Headers))
	for k := range c.HTTP.Headers {
		h.Headers[k] = "[redacted]"
	}
	c.HTTP = &h
	return c
}

// Prepare normalizes and validates cfgs. Ids must be unique.
func Prepare(cfgs []Config) ([]Config, error) {
	out := make([]Config, 0, len(cfgs))
	seen := make(map[string]struct{}, len(cfgs))
	for i, c := range cfgs {
		c = c.normalized()
		if err := c.validate(); err != nil {
			return nil, fmt.Errorf("reporters[%d]: %w", i, err)
		}
		if _, dup := seen[c.ID]; dup {
			return nil, fmt.Errorf("reporters[%d]: duplicate id %q", i, c.ID)
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out, nil
}

func (c Config) normalized() Config {
	c.ID = strings.TrimSpace(c.ID)
	c.Type = strings.ToLower(strings.TrimSpace(c.Type))
	c.Notify = Notify(strings.ToLower(strings.TrimSpace(string(c.Notify))))
	if c.Notify == "" {
		c.Notify = NotifyAll
	}
	if c.HTTP != nil {
		h := *c.HTTP
		h.URL = strings.TrimSpace(h.URL)
		h.Method = strings.ToUpper(strings.TrimSpace(h.Method))
		if h.Method == "" {
			h.Method = http.MethodPost
		}
		if h.TimeoutSeconds <= 0 {
			h.TimeoutSeconds = defaultHTTPTimeoutSeconds
		}
		c.HTTP = &h
	}
	if c.SQS != nil {
		q := *c.SQS
		q.QueueURL, q.Region = strings.TrimSpace(q.QueueURL), strings.TrimSpace(q.Region)
		c.SQS = &q
	}
	if c.SNS != nil {
		s := *c.SNS
		s.TopicARN, s.Region = strings.TrimSpace(s.TopicARN), strings.TrimSpace(s.Region)
		c.SNS = &s
	}
	if c.PubSub != nil {
		p := *c.PubSub
		p.ProjectID, p.Topic = strings.TrimSpace(p.ProjectID), strings.TrimSpace(p.Topic)
		p.CredentialsFile = strings.TrimSpace(p.CredentialsFile)
		c.PubSub = &p
	}
	return c
}

func (c Config) validate() error {
	if c.ID == "" {
		return errors.New("id is required")
	}
	if !c.Notify.valid() {
		return fmt.Errorf("reporter %q: notify must be all, failures or changes, got %q", c.ID, c.Notify)
	}

	var missing []string
	switch c.Type {
	case TypeHTTP:
		if c.HTTP == nil || c.HTTP.URL == "" {
			missing = append(missing, "http.url")
		}
	case TypeSQS:
		if c.SQS == nil || c.SQS.QueueURL == "" {
			missing = append(missing, "sqs.uri")
		}
		if c.SQS == nil || c.SQS.Region == "" {
			missing = append(missing, "sqs.region")
		}
	case TypeSNS:
		if c.SNS == nil || c.SNS.TopicARN == "" {
			missing = append(missing, "sns.topic_arn")
		}
		if c.SNS == nil || c.SNS.Region == "" {
			missing = append(missing, "sns.region")
		}
	case TypePubSub:
		if c.PubSub == nil || c.PubSub.ProjectID == "" {
			missing = append(missing, "pubsub.project_id")
		}
		if c.PubSub == nil || c.PubSub.Topic == "" {
			missing = append(missing, "pubsub.topic")
		}
	case "":
		return fmt.Errorf("reporter %q: type is required", c.ID)
	default:
		return fmt.Errorf("reporter %q: unknown type %q", c.ID, c.Type)
	}
	if len(missing) > 0 {
		return fmt.Errorf("reporter %q: missing %s", c.ID, strings.Join(missing, ", "))
	}
	return nil
}
