package jobs

import (
	"context"
	"errors"

	"github.com/gestor-comercial/gestor/internal/purchasing"
)

// Notifier adapts the asynq client to the purchasing notifier port.
type Notifier struct {
	client *Client
}

// NewNotifier wraps the jobs client.
func NewNotifier(client *Client) *Notifier {
	return &Notifier{client: client}
}

// EnqueueLogisticsNotice pushes a notice onto the default queue.
func (n *Notifier) EnqueueLogisticsNotice(notice purchasing.LogisticsNotice) error {
	if n == nil || n.client == nil {
		return errors.New("jobs: notifier not configured")
	}
	_, err := n.client.EnqueueLogisticsNotice(context.Background(), LogisticsNoticePayload{
		OrderID:      notice.OrderID,
		OrderNumber:  notice.OrderNumber,
		SupplierID:   notice.SupplierID,
		SupplierName: notice.SupplierName,
		Status:       notice.Status,
		Total:        notice.Total,
		RequestedAt:  notice.RequestedAt,
	})
	return err
}
