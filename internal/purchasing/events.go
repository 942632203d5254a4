package purchasing

import "time"

// LogisticsNotice is the outbound message emitted towards the logistics
// channel. Dispatching it changes no stored state.
type LogisticsNotice struct {
	OrderID      int64     `json:"order_id"`
	OrderNumber  string    `json:"order_number"`
	SupplierID   int64     `json:"supplier_id"`
	SupplierName string    `json:"supplier_name"`
	Status       string    `json:"status"`
	Total        float64   `json:"total"`
	RequestedAt  time.Time `json:"requested_at"`
}

// Notifier delivers logistics notices to an external channel.
type Notifier interface {
	EnqueueLogisticsNotice(notice LogisticsNotice) error
}
