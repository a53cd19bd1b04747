package outbox

import (
	"context"

	"github.com/yashrajoria/shop-service/models"
	aws_pkg "github.com/yashrajoria/shop-service/pkg/aws"
)

// SNSPublisher fans order events out to an SNS topic.
type SNSPublisher struct {
	client   aws_pkg.SNSPublisher
	topicArn string
}

func NewSNSPublisher(client aws_pkg.SNSPublisher, topicArn string) *SNSPublisher {
	return &SNSPublisher{client: client, topicArn: topicArn}
}

func (p *SNSPublisher) Name() string { return "sns" }

func (p *SNSPublisher) Publish(ctx context.Context, evt models.OutboxEvent) error {
	return p.client.Publish(ctx, p.topicArn, evt.Payload)
}
