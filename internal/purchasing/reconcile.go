package purchasing

// ItemDifference describes one line of a reconciliation result.
type ItemDifference struct {
	ItemID      int64   `json:"item_id"`
	ProductID   int64   `json:"product_id"`
	Name        string  `json:"name"`
	ExpectedQty float64 `json:"expected_qty"`
	ReceivedQty float64 `json:"received_qty"`
	Difference  float64 `json:"difference"`
}

// Discrepant reports whether received differs from expected.
func (d ItemDifference) Discrepant() bool {
	return d.Difference != 0
}

// ReceptionSummary aggregates a reconciliation run.
type ReceptionSummary struct {
	Differences   []ItemDifference `json:"differences"`
	TotalExpected float64          `json:"total_expected"`
	TotalReceived float64          `json:"total_received"`
}

// DiscrepantCount returns how many lines deviate from the expected quantity.
func (s ReceptionSummary) DiscrepantCount() int {
	count := 0
	for _, diff := range s.Differences {
		if diff.Discrepant() {
			count++
		}
	}
	return count
}

// Reconcile compares expected against received quantities per line. A line
// without a recorded received quantity counts as received in full. Pure and
// idempotent; ConfirmReception is the only caller that persists the result.
func Reconcile(items []OrderItem) ReceptionSummary {
	summary := ReceptionSummary{Differences: make([]ItemDifference, 0, len(items))}
	for _, item := range items {
		received := item.ExpectedQty
		if item.ReceivedQty != nil {
			received = *item.ReceivedQty
		}
		summary.Differences = append(summary.Differences, ItemDifference{
			ItemID:      item.ID,
			ProductID:   item.ProductID,
			Name:        item.Name,
			ExpectedQty: item.ExpectedQty,
			ReceivedQty: received,
			Difference:  received - item.ExpectedQty,
		})
		summary.TotalExpected += item.ExpectedQty
		summary.TotalReceived += received
	}
	return summary
}
