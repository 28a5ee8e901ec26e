package reporters

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/samvad-hq/shapes-probe/pkg/shapes"
)

type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// queueReporter enqueues events on SQS.
type queueReporter struct {
	id       string
	queueURL string
	api      sqsAPI
	log      Logger
}

func newSQSReporter(ctx context.Context, cfg Config, log Logger) (Reporter, error) {
	if cfg.SQS == nil {
		return nil, fmt.Errorf("missing sqs block")
	}
	awsCfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(cfg.SQS.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &queueReporter{
		id:       cfg.ID,
		queueURL: cfg.SQS.QueueURL,
		api:      sqs.NewFromConfig(awsCfg),
		log:      shapes.OrNop(log),
	}, nil
}

func (q *queueReporter) ID() string   { return q.id }
func (q *queueReporter) Type() string { return TypeSQS }

func (q *queueReporter) Report(ctx context.Context, evt Event) error {
	body, err := evt.payload()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	attrs := make(map[string]sqstypes.MessageAttributeValue)
	for k, v := range evt.Attributes() {
		attrs[k] = sqstypes.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
	}

	out, err := q.api.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:          aws.String(q.queueURL),
		MessageBody:       aws.String(string(body)),
		MessageAttributes: attrs,
	})
	if err != nil {
		return fmt.Errorf("sqs send: %w", err)
	}
	if out != nil {
		q.log.DebugObj("sqs accepted event", "reporter_delivery", map[string]any{
			"reporter_id": q.id,
			"request_id":  evt.RequestID,
			"message_id":  aws.ToString(out.MessageId),
		})
	}
	return nil
}
