package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeLogisticsNotice is the task type for notifying the logistics channel.
	TaskTypeLogisticsNotice = "logistics:notify"
	// TaskTypeRollupRefresh is the task type for refreshing the monthly rollup cache.
	TaskTypeRollupRefresh = "reports:rollup_refresh"
)

// LogisticsNoticePayload carries the order details sent to logistics.
type LogisticsNoticePayload struct {
	OrderID      int64     `json:"order_id"`
	OrderNumber  string    `json:"order_number"`
	SupplierID   int64     `json:"supplier_id"`
	SupplierName string    `json:"supplier_name"`
	Status       string    `json:"status"`
	Total        float64   `json:"total"`
	RequestedAt  time.Time `json:"requested_at"`
}

// NewLogisticsNoticeTask constructs an Asynq task for a logistics notice.
func NewLogisticsNoticeTask(payload LogisticsNoticePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeLogisticsNotice, data, asynq.Queue(QueueDefault)), nil
}

// NewRollupRefreshTask constructs the cache refresh task used by the scheduler.
func NewRollupRefreshTask() (*asynq.Task, error) {
	return asynq.NewTask(TaskTypeRollupRefresh, nil, asynq.Queue(QueueDefault)), nil
}
