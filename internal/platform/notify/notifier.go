// Package notify はバッチ結果や再認証要求の通知を提供します。
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/sns"
	"github.com/aws/aws-sdk-go/service/sns/snsiface"
)

// SNS の Subject 上限
const maxSubjectLen = 100

// snsNotifier は SNS トピックへ通知を publish します。
type snsNotifier struct {
	client   snsiface.SNSAPI
	topicARN string
}

func NewSNSNotifier(client snsiface.SNSAPI, topicARN string) *snsNotifier {
	return &snsNotifier{client: client, topicARN: topicARN}
}

// Notify は subject と message を publish します。
func (n *snsNotifier) Notify(ctx context.Context, subject, message string) error {
	if len(subject) > maxSubjectLen {
		subject = subject[:maxSubjectLen]
	}
	out, err := n.client.PublishWithContext(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	slog.Info("notification sent", "subject", subject, "message_id", aws.StringValue(out.MessageId))
	return nil
}

// logNotifier はトピック未設定時に通知内容をログへ出力します。
type logNotifier struct{}

func NewLogNotifier() *logNotifier {
	return &logNotifier{}
}

func (logNotifier) Notify(_ context.Context, subject, message string) error {
	slog.Info("notification (no topic configured)", "subject", subject, "message", message)
	return nil
}
