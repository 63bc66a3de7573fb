package rabbitmq

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rotisserie/eris"

	"github.com/nandanugg/spotwatch/module/core/domain"
	"github.com/nandanugg/spotwatch/module/core/internal/repository/publisher"
)

var _ publisher.NotificationDispatcher = (*NotificationPublisher)(nil)

const (
	ExchangeName = "spotwatch.events"
	QueueName    = "local_notifications"
)

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type NotificationPublisher struct {
	ch  channel
	now func() time.Time
}

func NewNotificationPublisher(conn *amqp.Connection) (*NotificationPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, eris.Wrap(err, "rabbitmq channel")
	}

	if err := ch.ExchangeDeclare(ExchangeName, "fanout", true, false, false, false, nil); err != nil {
		return nil, eris.Wrap(err, "declare exchange")
	}

	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		return nil, eris.Wrap(err, "declare queue")
	}

	if err := ch.QueueBind(QueueName, "", ExchangeName, false, nil); err != nil {
		return nil, eris.Wrap(err, "bind queue")
	}

	return &NotificationPublisher{ch: ch, now: time.Now}, nil
}

// NotificationMessage is the wire form consumed by the device.
type NotificationMessage struct {
	ID        string            `json:"id"`
	Kind      string            `json:"kind"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Metadata  map[string]string `json:"metadata"`
	Timestamp int64             `json:"timestamp"`
}

func (p *NotificationPublisher) ScheduleLocalNotification(ctx context.Context, n *domain.Notification) error {
	msg := NotificationMessage{
		ID:        n.ID,
		Kind:      string(n.Kind),
		Title:     n.Title,
		Body:      n.Body,
		Metadata:  n.Metadata,
		Timestamp: p.now().Unix(),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return eris.Wrap(err, "marshal notification")
	}

	err = p.ch.PublishWithContext(ctx, ExchangeName, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		MessageId:   n.ID,
		Type:        string(n.Kind),
		Body:        body,
	})
	if err != nil {
		return eris.Wrapf(err, "publish notification %s", n.ID)
	}
	return nil
}
