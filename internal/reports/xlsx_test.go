package reports

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Spok95/florist-stock/internal/domain/materials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func fptr(v float64) *float64 { return &v }

func TestExportImportRoundTrip(t *testing.T) {
	items := []materials.Material{
		{ID: 3, Name: "Роза красная", Quantity: 100, Unit: materials.UnitPcs, MinQuantity: fptr(20), PricePerUnit: fptr(300)},
		{ID: 7, Name: "Лента атласная", Quantity: 0.5, Unit: materials.UnitMeter, MinQuantity: fptr(20)},
		{ID: 9, Name: "Пион", Quantity: 0, Unit: materials.UnitPcs},
	}

	var buf bytes.Buffer
	require.NoError(t, ExportStock(&buf, items))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "material_id", rows[0][0])
	assert.Equal(t, "counted", rows[0][7])
	assert.Equal(t, "Роза красная", rows[1][1])
	assert.Equal(t, "да", rows[2][6])

	// пересчёт: роза и лента посчитаны, пион пропущен
	require.NoError(t, f.SetCellValue(sheet, "H2", 97))
	require.NoError(t, f.SetCellValue(sheet, "H3", "0,3"))
	var out bytes.Buffer
	require.NoError(t, f.Write(&out))
	require.NoError(t, f.Close())

	counts, err := ImportCounts(&out)
	require.NoError(t, err)
	assert.Equal(t, map[int64]float64{3: 97, 7: 0.3}, counts)
}

func TestImportCounts_ColumnOrderIndependent(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Counted", "name", "MATERIAL_ID"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{12.5, "Эвкалипт", 4}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	counts, err := ImportCounts(&buf)
	require.NoError(t, err)
	assert.Equal(t, map[int64]float64{4: 12.5}, counts)
}

func TestImportCounts_BadInput(t *testing.T) {
	_, err := ImportCounts(strings.NewReader("not a spreadsheet"))
	require.ErrorIs(t, err, ErrBadFormat)

	cases := map[string][][]any{
		"missing counted column": {{"material_id", "name"}, {1, "Роза"}},
		"bad id":                 {{"material_id", "counted"}, {"abc", 1}},
		"bad number":             {{"material_id", "counted"}, {1, "много"}},
	}
	for name, rows := range cases {
		t.Run(name, func(t *testing.T) {
			f := excelize.NewFile()
			sheet := f.GetSheetName(f.GetActiveSheetIndex())
			for i, r := range rows {
				cell, err := excelize.CoordinatesToCellName(1, i+1)
				require.NoError(t, err)
				require.NoError(t, f.SetSheetRow(sheet, cell, &r))
			}
			var buf bytes.Buffer
			require.NoError(t, f.Write(&buf))
			require.NoError(t, f.Close())

			_, err := ImportCounts(&buf)
			assert.ErrorIs(t, err, ErrBadFormat)
		})
	}
}
