package notifier

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/venueops-dev/shift-sync/backend/internal/domain"
)

const AlertQueue = "alert_queue"

// Notifier 把告警投递到消息队列，由 notify worker 消费后发邮件。
// 投递是尽力而为的：失败只记日志，绝不影响触发告警的请求。
type Notifier struct {
	channel        *amqp.Channel
	logger         *slog.Logger
	publishTimeout time.Duration
}

func New(channel *amqp.Channel, logger *slog.Logger, publishTimeout time.Duration) *Notifier {
	return &Notifier{
		channel:        channel,
		logger:         logger,
		publishTimeout: publishTimeout,
	}
}

// Publish 投递一条告警消息
func (n *Notifier) Publish(alert *domain.AlertMessage) {
	if n.channel == nil {
		return
	}

	body, err := json.Marshal(alert)
	if err != nil {
		n.logger.Error("告警消息序列化失败",
			slog.String("type", alert.Type),
			slog.String("error", err.Error()),
		)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.publishTimeout)
	defer cancel()

	if err := n.channel.PublishWithContext(
		ctx,
		"",
		AlertQueue,
		true,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	); err != nil {
		n.logger.Error("告警消息投递失败",
			slog.String("type", alert.Type),
			slog.String("requestId", alert.RequestID),
			slog.String("error", err.Error()),
		)
		return
	}

	n.logger.Info("告警消息已投递",
		slog.String("type", alert.Type),
		slog.String("requestId", alert.RequestID),
	)
}
