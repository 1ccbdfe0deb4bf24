package stock

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("stock: not found")
	ErrInvalidArgument   = errors.New("stock: invalid argument")
	ErrInsufficientStock = errors.New("stock: insufficient stock")
	ErrConflict          = errors.New("stock: conflict")
)

// InsufficientStockError подробности нехватки для показа пользователю.
// CanMake и Requested заполняются только при проверке по продукту.
type InsufficientStockError struct {
	MaterialID int64
	Material   string
	Unit       string
	Needed     float64
	Available  float64
	CanMake    int
	Requested  int
}

func (e *InsufficientStockError) Shortfall() float64 {
	if s := e.Needed - e.Available; s > 0 {
		return s
	}
	return 0
}

func (e *InsufficientStockError) Error() string {
	if e.Requested > 0 {
		return fmt.Sprintf("недостаточно материалов: можно сделать только %d шт из %d, ограничивает %q (нужно %g %s, есть %g)",
			e.CanMake, e.Requested, e.Material, e.Needed, e.Unit, e.Available)
	}
	return fmt.Sprintf("недостаточно %q: нужно %g %s, есть %g", e.Material, e.Needed, e.Unit, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidArgument}, args...)...)
}

func notFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrNotFound}, args...)...)
}
