package stock

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Spok95/florist-stock/internal/domain/audits"
	"github.com/Spok95/florist-stock/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// StartAudit начинает инвентаризацию: фиксирует учётные остатки всех материалов.
func (s *Service) StartAudit(ctx context.Context, notes string) (*audits.Audit, error) {
	a, err := s.audits.Start(ctx, notes)
	if errors.Is(err, audits.ErrInProgress) {
		return nil, fmt.Errorf("%w: audit already in progress", ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("start audit: %w", err)
	}
	s.log.Info("audit started", "audit_id", a.ID, "items", len(a.Items))
	return a, nil
}

func (s *Service) CurrentAudit(ctx context.Context) (*audits.Audit, error) {
	a, err := s.audits.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("current audit: %w", err)
	}
	if a == nil {
		return nil, notFoundf("no audit in progress")
	}
	return a, nil
}

func (s *Service) GetAudit(ctx context.Context, id int64) (*audits.Audit, error) {
	a, err := s.audits.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get audit: %w", err)
	}
	if a == nil {
		return nil, notFoundf("audit %d", id)
	}
	return a, nil
}

// RecordCounts сохраняет фактические остатки (material_id -> количество).
// Возвращает число обновлённых позиций.
func (s *Service) RecordCounts(ctx context.Context, auditID int64, counts map[int64]float64) (int, error) {
	if len(counts) == 0 {
		return 0, invalidf("no counts given")
	}
	for id, v := range counts {
		if !finite(v) || v < 0 {
			return 0, invalidf("material %d: actual_quantity must be >= 0", id)
		}
	}
	a, err := s.GetAudit(ctx, auditID)
	if err != nil {
		return 0, err
	}
	if a.Status != audits.StatusInProgress {
		return 0, fmt.Errorf("%w: audit %d is %s", ErrConflict, auditID, a.Status)
	}

	n, err := s.audits.SetCounts(ctx, auditID, counts)
	if err != nil {
		return 0, fmt.Errorf("record counts: %w", err)
	}
	s.log.Info("audit counts recorded", "audit_id", auditID, "updated", n)
	return n, nil
}

type AuditResult struct {
	AuditID     int64
	Adjustments int
}

// CompleteAudit выставляет остатки по фактическому подсчёту и закрывает инвентаризацию.
// Движение пишется на разницу с остатком в момент закрытия.
func (s *Service) CompleteAudit(ctx context.Context, auditID int64) (*AuditResult, error) {
	defer s.observe("complete_audit", time.Now())

	res := &AuditResult{AuditID: auditID}
	err := s.stock.WithinTx(ctx, func(tx inventory.Tx) error {
		res.Adjustments = 0

		a, err := tx.LockAudit(ctx, auditID)
		if err != nil {
			return fmt.Errorf("lock audit: %w", err)
		}
		if a == nil {
			return notFoundf("audit %d", auditID)
		}
		if a.Status != audits.StatusInProgress {
			return fmt.Errorf("%w: audit %d is %s", ErrConflict, auditID, a.Status)
		}

		var ids []int64
		for _, it := range a.Items {
			if it.NeedsAdjustment() {
				ids = append(ids, it.MaterialID)
			}
		}
		locked, err := tx.Lock(ctx, ids...)
		if err != nil {
			return fmt.Errorf("lock materials: %w", err)
		}

		ref := strconv.FormatInt(auditID, 10)
		for _, it := range a.Items {
			if !it.NeedsAdjustment() {
				continue
			}
			m, ok := locked[it.MaterialID]
			if !ok {
				continue // материал удалён после старта
			}
			delta := decimal.NewFromFloat(*it.ActualQuantity).Sub(decimal.NewFromFloat(m.Quantity))
			if delta.IsZero() {
				continue
			}
			if err := tx.SetQuantity(ctx, m.ID, *it.ActualQuantity); err != nil {
				return fmt.Errorf("set quantity: %w", err)
			}
			if err := tx.Record(ctx, inventory.Movement{
				MaterialID:    m.ID,
				Type:          inventory.MoveAudit,
				Quantity:      delta.InexactFloat64(),
				Comment:       fmt.Sprintf("Инвентаризация #%d: учёт %g, факт %g", auditID, it.SystemQuantity, *it.ActualQuantity),
				ReferenceType: inventory.RefAudit,
				ReferenceID:   ref,
			}); err != nil {
				return fmt.Errorf("record movement: %w", err)
			}
			res.Adjustments++
		}
		return tx.CloseAudit(ctx, auditID, audits.StatusCompleted)
	})
	if err != nil {
		return nil, s.txError("complete audit", err)
	}

	for range res.Adjustments {
		s.metrics.Movement(inventory.MoveAudit)
	}
	s.log.Info("audit completed", "audit_id", auditID, "adjustments", res.Adjustments)
	return res, nil
}
