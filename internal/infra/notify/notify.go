// Package notify уведомления администратора о низких остатках.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Spok95/florist-stock/internal/domain/materials"
)

type Notifier interface {
	LowStock(ctx context.Context, items []materials.Material) error
}

// Multi рассылает всем; ошибки собираются, остальные получатели не пропускаются.
type Multi []Notifier

func (m Multi) LowStock(ctx context.Context, items []materials.Material) error {
	var errs []error
	for _, n := range m {
		if err := n.LowStock(ctx, items); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Nop struct{}

func (Nop) LowStock(context.Context, []materials.Material) error { return nil }

const subject = "Заканчиваются материалы на складе"

func lowStockText(items []materials.Material) string {
	var sb strings.Builder
	sb.WriteString("⚠️ " + subject + ":\n")
	for _, m := range items {
		var minQty float64
		if m.MinQuantity != nil {
			minQty = *m.MinQuantity
		}
		fmt.Fprintf(&sb, "• %s: %g %s (минимум %g)\n", m.Name, m.Quantity, m.Unit, minQty)
	}
	return sb.String()
}
