package reporting

import (
	"sort"
	"time"
)

// EntryKind classifies the documents feeding the rollup.
type EntryKind string

const (
	EntrySale     EntryKind = "VENTA"
	EntryPurchase EntryKind = "COMPRA"
	EntryPayroll  EntryKind = "NOMINA"
)

// DocumentEntry is the minimal projection of a document for aggregation.
// EffectiveAt is the sale date, or the payroll payment date for payroll
// periods.
type DocumentEntry struct {
	Kind        EntryKind
	EffectiveAt time.Time
	Amount      float64
}

// PeriodBucket accumulates inflows and outflows for one calendar month.
type PeriodBucket struct {
	Period   string  `json:"period"`
	Inflows  float64 `json:"inflows"`
	Outflows float64 `json:"outflows"`
}

// MonthlyRollup groups documents by calendar month, summing sales as inflows
// and purchases plus payroll as outflows. Pure and restartable: it is always
// recomputed from the full collection, so the result is chronologically
// ordered and deterministic.
func MonthlyRollup(entries []DocumentEntry) []PeriodBucket {
	totals := make(map[string]*PeriodBucket)
	for _, entry := range entries {
		period := entry.EffectiveAt.Format("2006-01")
		bucket, ok := totals[period]
		if !ok {
			bucket = &PeriodBucket{Period: period}
			totals[period] = bucket
		}
		switch entry.Kind {
		case EntrySale:
			bucket.Inflows += entry.Amount
		case EntryPurchase, EntryPayroll:
			bucket.Outflows += entry.Amount
		}
	}

	buckets := make([]PeriodBucket, 0, len(totals))
	for _, bucket := range totals {
		buckets = append(buckets, *bucket)
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Period < buckets[j].Period
	})
	return buckets
}
