// Package reports выгрузка остатков в Excel и загрузка результатов пересчёта.
package reports

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Spok95/florist-stock/internal/domain/materials"
	"github.com/xuri/excelize/v2"
)

const (
	colMaterialID = "material_id"
	colCounted    = "counted"
)

var ErrBadFormat = errors.New("reports: bad spreadsheet format")

var stockHeader = []any{
	colMaterialID,
	"name",
	"unit",
	"quantity",
	"min_quantity",
	"price_per_unit",
	"low_stock",
	colCounted, // заполняется при пересчёте
}

// ExportStock пишет xlsx с остатками: строка на материал, колонка counted пустая.
func ExportStock(w io.Writer, items []materials.Material) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if err := f.SetSheetRow(sheet, "A1", &stockHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, m := range items {
		row := []any{
			m.ID,
			m.Name,
			string(m.Unit),
			m.Quantity,
			optional(m.MinQuantity),
			optional(m.PricePerUnit),
			lowStockMark(m),
			"",
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := f.SetColWidth(sheet, "B", "B", 32); err != nil {
		return err
	}
	return f.Write(w)
}

func optional(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

func lowStockMark(m materials.Material) string {
	if m.IsLowStock() {
		return "да"
	}
	return ""
}

// ImportCounts читает material_id и counted с первого листа.
// Строки с пустым counted пропускаются.
func ImportCounts(r io.Reader) (map[int64]float64, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("%w: empty sheet", ErrBadFormat)
	}

	idCol, countCol := -1, -1
	for i, h := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case colMaterialID:
			idCol = i
		case colCounted:
			countCol = i
		}
	}
	if idCol < 0 || countCol < 0 {
		return nil, fmt.Errorf("%w: columns %q and %q are required", ErrBadFormat, colMaterialID, colCounted)
	}

	counts := make(map[int64]float64)
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if len(row) <= idCol || len(row) <= countCol {
			continue
		}
		idStr := strings.TrimSpace(row[idCol])
		qtyStr := strings.TrimSpace(row[countCol])
		if idStr == "" || qtyStr == "" {
			continue
		}

		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: bad material_id %q", ErrBadFormat, i+1, idStr)
		}
		// допускаем запятую как десятичный разделитель
		qty, err := strconv.ParseFloat(strings.ReplaceAll(qtyStr, ",", "."), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: bad counted %q", ErrBadFormat, i+1, qtyStr)
		}
		counts[id] = qty
	}
	return counts, nil
}
