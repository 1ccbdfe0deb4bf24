package stock_test

import (
	"testing"

	"github.com/Spok95/florist-stock/internal/domain/materials"
	"github.com/Spok95/florist-stock/internal/stock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedSamples(t *testing.T) {
	f := newFixture(t, stock.DefaultPolicy())

	res, err := f.svc.SeedSamples(f.ctx)
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, 12, res.Flowers)
	assert.Equal(t, 9, res.Packaging)
	assert.Equal(t, 5, res.Composition)

	all, err := f.svc.ListMaterials(f.ctx, materials.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 21)

	av, err := f.svc.CheckAvailability(f.ctx, res.ProductID, 5)
	require.NoError(t, err)
	assert.Equal(t, 4, av.CanMake)
	require.NotNil(t, av.LimitingMaterial)
	assert.Equal(t, "Эустома белая", av.LimitingMaterial.Material)

	again, err := f.svc.SeedSamples(f.ctx)
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, 21, again.Existing)
}

func TestSeedSamples_SkipsNonEmptyStore(t *testing.T) {
	f := newFixture(t, stock.DefaultPolicy())
	f.material("Роза", 1)

	res, err := f.svc.SeedSamples(f.ctx)
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, 1, res.Existing)

	list, err := f.svc.ListProducts(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
