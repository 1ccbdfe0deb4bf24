package stock_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/Spok95/florist-stock/internal/domain/inventory"
	"github.com/Spok95/florist-stock/internal/domain/materials"
	"github.com/Spok95/florist-stock/internal/domain/products"
	"github.com/Spok95/florist-stock/internal/storage/memory"
	"github.com/Spok95/florist-stock/internal/stock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMaterial_Validation(t *testing.T) {
	f := newFixture(t, stock.DefaultPolicy())

	cases := []struct {
		name string
		m    materials.Material
	}{
		{"empty name", materials.Material{Name: "  ", Unit: materials.UnitPcs}},
		{"no unit", materials.Material{Name: "Роза"}},
		{"negative quantity", materials.Material{Name: "Роза", Unit: materials.UnitPcs, Quantity: -1}},
		{"nan quantity", materials.Material{Name: "Роза", Unit: materials.UnitPcs, Quantity: math.NaN()}},
		{"negative min", materials.Material{Name: "Роза", Unit: materials.UnitPcs, MinQuantity: ptr(-5)}},
		{"negative price", materials.Material{Name: "Роза", Unit: materials.UnitPcs, PricePerUnit: ptr(-1)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateMaterial(f.ctx, tc.m)
			assert.ErrorIs(t, err, stock.ErrInvalidArgument)
		})
	}

	m, err := f.svc.CreateMaterial(f.ctx, materials.Material{Name: " Роза ", Unit: materials.UnitPcs, Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, "Роза", m.Name)
	assert.NotZero(t, m.ID)
}

func TestListMaterials_Filters(t *testing.T) {
	f := newFixture(t, stock.DefaultPolicy())
	f.material("Роза красная", 100)
	f.material("Роза белая", 0)
	f.material("Эвкалипт", 3)

	all, err := f.svc.ListMaterials(f.ctx, materials.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Роза белая", all[0].Name)

	roses, err := f.svc.ListMaterials(f.ctx, materials.Filter{Search: "роза"})
	require.NoError(t, err)
	assert.Len(t, roses, 2)

	low, err := f.svc.ListMaterials(f.ctx, materials.Filter{OnlyLowStock: true})
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "Роза белая", low[0].Name)
}

func TestAddStock(t *testing.T) {
	f := newFixture(t, stock.DefaultPolicy())
	x := f.material("X", 10)

	m, err := f.svc.AddStock(f.ctx, x, 2.5, "")
	require.NoError(t, err)
	assert.Equal(t, 12.5, m.Quantity)
	assert.Equal(t, 12.5, f.qty(x))

	mv, err := f.svc.Movements(f.ctx, x)
	require.NoError(t, err)
	require.Len(t, mv, 1)
	assert.Equal(t, inventory.MoveSupply, mv[0].Type)
	assert.Equal(t, 2.5, mv[0].Quantity)
	assert.Equal(t, "Поступление", mv[0].Comment)
	assert.Equal(t, 1, f.metrics.movements[inventory.MoveSupply])

	for _, q := range []float64{0, -3, math.Inf(1)} {
		_, err = f.svc.AddStock(f.ctx, x, q, "")
		assert.ErrorIs(t, err, stock.ErrInvalidArgument)
	}
	_, err = f.svc.AddStock(f.ctx, 777, 1, "")
	assert.ErrorIs(t, err, stock.ErrNotFound)
	assert.Equal(t, 12.5, f.qty(x))
}

func TestAddStock_NonPositiveAllowed(t *testing.T) {
	f := newFixture(t, stock.Policy{AllowNonPositiveAdd: true})
	x := f.material("X", 10)

	m, err := f.svc.AddStock(f.ctx, x, -4, "возврат поставщику")
	require.NoError(t, err)
	assert.Equal(t, 6.0, m.Quantity)

	// ниже нуля без allow_negative_stock нельзя
	_, err = f.svc.AddStock(f.ctx, x, -7, "")
	assert.ErrorIs(t, err, stock.ErrInsufficientStock)
	assert.Equal(t, 6.0, f.qty(x))
}

func TestWriteOff(t *testing.T) {
	f := newFixture(t, stock.DefaultPolicy())
	x := f.material("Роза", 10)

	_, err := f.svc.WriteOff(f.ctx, x, 11, "")
	require.ErrorIs(t, err, stock.ErrInsufficientStock)
	assert.Equal(t, 10.0, f.qty(x))
	assert.Empty(t, f.notifier.calls)

	_, err = f.svc.WriteOff(f.ctx, x, 0, "")
	assert.ErrorIs(t, err, stock.ErrInvalidArgument)

	m, err := f.svc.WriteOff(f.ctx, x, 10, "завяли")
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.Quantity)

	mv, err := f.svc.Movements(f.ctx, x)
	require.NoError(t, err)
	require.Len(t, mv, 1)
	assert.Equal(t, inventory.MoveWaste, mv[0].Type)
	assert.Equal(t, -10.0, mv[0].Quantity)
	assert.Equal(t, "завяли", mv[0].Comment)

	require.Len(t, f.notifier.calls, 1)
	assert.Equal(t, x, f.notifier.calls[0][0].ID)
}

func TestUpdateMaterial(t *testing.T) {
	f := newFixture(t, stock.DefaultPolicy())
	x := f.material("Роза", 10)

	_, err := f.svc.UpdateMaterial(f.ctx, x, stock.MaterialUpdate{})
	assert.ErrorIs(t, err, stock.ErrInvalidArgument)

	_, err = f.svc.UpdateMaterial(f.ctx, x, stock.MaterialUpdate{Patch: materials.Patch{Name: ptrStr(" ")}})
	assert.ErrorIs(t, err, stock.ErrInvalidArgument)

	_, err = f.svc.UpdateMaterial(f.ctx, 999, stock.MaterialUpdate{Quantity: ptr(1)})
	assert.ErrorIs(t, err, stock.ErrNotFound)

	m, err := f.svc.UpdateMaterial(f.ctx, x, stock.MaterialUpdate{
		Patch:    materials.Patch{Name: ptrStr("Роза красная"), PricePerUnit: ptr(300)},
		Quantity: ptr(7),
	})
	require.NoError(t, err)
	assert.Equal(t, "Роза красная", m.Name)
	assert.Equal(t, 7.0, m.Quantity)
	require.NotNil(t, m.PricePerUnit)
	assert.Equal(t, 300.0, *m.PricePerUnit)

	mv, err := f.svc.Movements(f.ctx, x)
	require.NoError(t, err)
	require.Len(t, mv, 2)
	types := map[inventory.MoveType]inventory.Movement{}
	for _, it := range mv {
		types[it.Type] = it
	}
	assert.Equal(t, -3.0, types[inventory.MoveAdjustment].Quantity)
	assert.Contains(t, types[inventory.MovePriceChange].Comment, "300")

	// та же цена и тот же остаток: журнал не растёт
	_, err = f.svc.UpdateMaterial(f.ctx, x, stock.MaterialUpdate{
		Patch:    materials.Patch{PricePerUnit: ptr(300)},
		Quantity: ptr(7),
	})
	require.NoError(t, err)
	mv, err = f.svc.Movements(f.ctx, x)
	require.NoError(t, err)
	assert.Len(t, mv, 2)
}

// brokenLedgerStore журнал недоступен: любая запись движения падает.
type brokenLedgerStore struct{ *memory.Store }

type brokenLedgerTx struct{ inventory.Tx }

func (brokenLedgerTx) Record(context.Context, inventory.Movement) error {
	return errors.New("ledger unavailable")
}

func (s brokenLedgerStore) WithinTx(ctx context.Context, fn func(inventory.Tx) error) error {
	return s.Store.WithinTx(ctx, func(tx inventory.Tx) error { return fn(brokenLedgerTx{tx}) })
}

func TestUpdateMaterial_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	svc := stock.New(stock.Deps{
		Materials: st.Materials(),
		Products:  st.Products(),
		Audits:    st.Audits(),
		Stock:     brokenLedgerStore{st},
	}, stock.DefaultPolicy(), nil)

	m, err := svc.CreateMaterial(ctx, materials.Material{Name: "Роза", Quantity: 10, Unit: materials.UnitPcs, PricePerUnit: ptr(100)})
	require.NoError(t, err)

	_, err = svc.UpdateMaterial(ctx, m.ID, stock.MaterialUpdate{
		Patch:    materials.Patch{Name: ptrStr("Роза красная"), MinQuantity: ptr(5), PricePerUnit: ptr(300)},
		Quantity: ptr(7),
	})
	require.Error(t, err)

	got, err := svc.GetMaterial(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Роза", got.Name)
	assert.Nil(t, got.MinQuantity)
	require.NotNil(t, got.PricePerUnit)
	assert.Equal(t, 100.0, *got.PricePerUnit)
	assert.Equal(t, 10.0, got.Quantity)

	// без движений в журнале патч проходит
	upd, err := svc.UpdateMaterial(ctx, m.ID, stock.MaterialUpdate{Patch: materials.Patch{Name: ptrStr("Роза красная")}})
	require.NoError(t, err)
	assert.Equal(t, "Роза красная", upd.Name)
}

func TestDeleteMaterial(t *testing.T) {
	f := newFixture(t, stock.DefaultPolicy())
	used := f.material("Роза", 10)
	free := f.material("Пион", 0)
	f.product("P1", part{used, 1, false})

	assert.ErrorIs(t, f.svc.DeleteMaterial(f.ctx, used), stock.ErrConflict)
	require.NoError(t, f.svc.DeleteMaterial(f.ctx, free))
	assert.ErrorIs(t, f.svc.DeleteMaterial(f.ctx, free), stock.ErrNotFound)

	_, err := f.svc.GetMaterial(f.ctx, free)
	assert.ErrorIs(t, err, stock.ErrNotFound)
	_, err = f.svc.Movements(f.ctx, free)
	assert.ErrorIs(t, err, stock.ErrNotFound)
}

func TestSetComposition_Validation(t *testing.T) {
	f := newFixture(t, stock.DefaultPolicy())
	x := f.material("X", 10)
	pid := f.product("P")

	_, err := f.svc.SetComposition(f.ctx, pid, []products.ComponentInput{{MaterialID: x, QuantityNeeded: 0}})
	assert.ErrorIs(t, err, stock.ErrInvalidArgument)
	_, err = f.svc.SetComposition(f.ctx, pid, []products.ComponentInput{{MaterialID: 404, QuantityNeeded: 1}})
	assert.ErrorIs(t, err, stock.ErrNotFound)
	_, err = f.svc.SetComposition(f.ctx, 404, []products.ComponentInput{{MaterialID: x, QuantityNeeded: 1}})
	assert.ErrorIs(t, err, stock.ErrNotFound)

	cs, err := f.svc.SetComposition(f.ctx, pid, []products.ComponentInput{{MaterialID: x, QuantityNeeded: 2}})
	require.NoError(t, err)
	require.Len(t, cs, 1)
	assert.Equal(t, materials.UnitPcs, cs[0].Unit)
	assert.Equal(t, 10.0, cs[0].Material.Quantity)

	cs, err = f.svc.SetComposition(f.ctx, pid, nil)
	require.NoError(t, err)
	assert.Empty(t, cs)
}

func TestCreateProduct(t *testing.T) {
	f := newFixture(t, stock.DefaultPolicy())

	p, err := f.svc.CreateProduct(f.ctx, products.Product{SKU: "BUQ-9", Name: "Букет"})
	require.NoError(t, err)
	assert.Equal(t, products.TypeBouquet, p.Type)

	_, err = f.svc.CreateProduct(f.ctx, products.Product{SKU: "BUQ-9", Name: "Другой"})
	assert.ErrorIs(t, err, stock.ErrConflict)
	_, err = f.svc.CreateProduct(f.ctx, products.Product{SKU: "", Name: "Без артикула"})
	assert.ErrorIs(t, err, stock.ErrInvalidArgument)

	list, err := f.svc.ListProducts(f.ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func ptrStr(s string) *string { return &s }
