package audits

import "time"

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Audit инвентаризация склада.
type Audit struct {
	ID          int64
	Status      Status
	Notes       string
	CreatedAt   time.Time
	CompletedAt *time.Time
	Items       []Item
}

// Item позиция инвентаризации: учётный остаток на момент старта и фактический подсчёт.
type Item struct {
	ID             int64
	AuditID        int64
	MaterialID     int64
	MaterialName   string
	Unit           string
	SystemQuantity float64
	ActualQuantity *float64
	Difference     *float64
}

// Count set actual и difference = actual - system.
func (it *Item) Count(actual float64) {
	a := actual
	d := actual - it.SystemQuantity
	it.ActualQuantity = &a
	it.Difference = &d
}

// NeedsAdjustment посчитано и расходится с учётом.
func (it Item) NeedsAdjustment() bool {
	return it.ActualQuantity != nil && it.Difference != nil && *it.Difference != 0
}
