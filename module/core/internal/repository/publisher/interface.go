package publisher

import (
	"context"

	"github.com/nandanugg/spotwatch/module/core/domain"
)

type NotificationDispatcher interface {
	ScheduleLocalNotification(ctx context.Context, n *domain.Notification) error
}
