package reporters

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/samvad-hq/shapes-probe/pkg/shapes"
)

type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// topicReporter publishes events to SNS with the status line as subject.
type topicReporter struct {
	id       string
	topicARN string
	api      snsAPI
	log      Logger
}

func newSNSReporter(ctx context.Context, cfg Config, log Logger) (Reporter, error) {
	if cfg.SNS == nil {
		return nil, fmt.Errorf("missing sns block")
	}
	awsCfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(cfg.SNS.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &topicReporter{
		id:       cfg.ID,
		topicARN: cfg.SNS.TopicARN,
		api:      sns.NewFromConfig(awsCfg),
		log:      shapes.OrNop(log),
	}, nil
}

func (t *topicReporter) ID() string   { return t.id }
func (t *topicReporter) Type() string { return TypeSNS }

func (t *topicReporter) Report(ctx context.Context, evt Event) error {
	body, err := evt.payload()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	attrs := make(map[string]snstypes.MessageAttributeValue)
	for k, v := range evt.Attributes() {
		attrs[k] = snstypes.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
	}

	in := &sns.PublishInput{
		TopicArn:          aws.String(t.topicARN),
		Message:           aws.String(string(body)),
		MessageAttributes: attrs,
	}
	if evt.Text != "" {
		in.Subject = aws.String(subject(evt.Text))
	}

	out, err := t.api.Publish(ctx, in)
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	if out != nil {
		t.log.DebugObj("sns accepted event", "reporter_delivery", map[string]any{
			"reporter_id": t.id,
			"request_id":  evt.RequestID,
			"message_id":  aws.ToString(out.MessageId),
		})
	}
	return nil
}

// subject fits SNS's 100 character subject limit.
func subject(s string) string {
	const limit = 100
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
