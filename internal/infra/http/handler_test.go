package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Spok95/florist-stock/internal/reports"
	"github.com/Spok95/florist-stock/internal/storage/memory"
	"github.com/Spok95/florist-stock/internal/stock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type apiClient struct {
	t   *testing.T
	srv *httptest.Server
}

func newAPI(t *testing.T) *apiClient {
	t.Helper()
	st := memory.New()
	log := slog.New(slog.DiscardHandler)
	svc := stock.New(stock.Deps{
		Materials: st.Materials(),
		Products:  st.Products(),
		Audits:    st.Audits(),
		Stock:     st,
	}, stock.DefaultPolicy(), log)
	srv := httptest.NewServer(NewRouter(NewHandler(svc, log, time.UTC), false, log))
	t.Cleanup(srv.Close)
	return &apiClient{t: t, srv: srv}
}

func (c *apiClient) do(method, path string, body any) (int, []byte) {
	c.t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(c.t, err)
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, c.srv.URL+path, rd)
	require.NoError(c.t, err)
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req)
}

func (c *apiClient) send(req *http.Request) (int, []byte) {
	c.t.Helper()
	resp, err := c.srv.Client().Do(req)
	require.NoError(c.t, err)
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp.StatusCode, raw
}

func decodeAs[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func (c *apiClient) material(name string, qty float64, unit string) int64 {
	c.t.Helper()
	code, raw := c.do(http.MethodPost, "/api/inventory/items", map[string]any{
		"name": name, "quantity": qty, "unit": unit,
	})
	require.Equal(c.t, http.StatusCreated, code, string(raw))
	return decodeAs[materialResponse](c.t, raw).ID
}

func (c *apiClient) product(sku string, comps ...map[string]any) int64 {
	c.t.Helper()
	code, raw := c.do(http.MethodPost, "/api/products", map[string]any{"sku": sku, "name": "Букет " + sku})
	require.Equal(c.t, http.StatusCreated, code, string(raw))
	id := decodeAs[productResponse](c.t, raw).ID
	if comps != nil {
		code, raw = c.do(http.MethodPut, fmt.Sprintf("/api/products/%d/composition", id), comps)
		require.Equal(c.t, http.StatusOK, code, string(raw))
	}
	return id
}

func TestHealth(t *testing.T) {
	api := newAPI(t)
	code, raw := api.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "OK", string(raw))
}

func TestAvailabilityAndDeduction(t *testing.T) {
	api := newAPI(t)
	a := api.material("A", 80, "шт")
	b := api.material("B", 40, "шт")
	c := api.material("C", 25, "шт")
	pid := api.product("ABC",
		map[string]any{"inventory_id": a, "quantity_needed": 15},
		map[string]any{"inventory_id": b, "quantity_needed": 10},
		map[string]any{"inventory_id": c, "quantity_needed": 3},
	)

	code, raw := api.do(http.MethodGet, fmt.Sprintf("/api/products/%d/availability?quantity_requested=10", pid), nil)
	require.Equal(t, http.StatusOK, code)
	av := decodeAs[availabilityResponse](t, raw)
	assert.Equal(t, 4, av.CanMake)
	require.NotNil(t, av.LimitingMaterial)
	assert.Equal(t, "B", *av.LimitingMaterial)
	assert.Len(t, av.MaterialsStatus, 3)

	code, raw = api.do(http.MethodGet, fmt.Sprintf("/api/products/%d/availability", pid), nil)
	require.Equal(t, http.StatusOK, code)
	av = decodeAs[availabilityResponse](t, raw)
	assert.Equal(t, 1, av.QuantityRequested)
	assert.Nil(t, av.LimitingMaterial)

	code, raw = api.do(http.MethodPost, fmt.Sprintf("/api/products/%d/deduct-materials?quantity=10", pid), nil)
	require.Equal(t, http.StatusBadRequest, code)
	er := decodeAs[errorResponse](t, raw)
	assert.Equal(t, "insufficient_stock", er.Error)
	assert.Equal(t, "B", er.Material)
	require.NotNil(t, er.Shortfall)
	assert.Equal(t, 60.0, *er.Shortfall)
	require.NotNil(t, er.CanMake)
	assert.Equal(t, 4, *er.CanMake)

	code, raw = api.do(http.MethodPost, fmt.Sprintf("/api/products/%d/deduct-materials?quantity=2", pid), nil)
	require.Equal(t, http.StatusOK, code, string(raw))
	dr := decodeAs[deductionResponse](t, raw)
	assert.False(t, dr.Forced)
	require.Len(t, dr.DeductedMaterials, 3)
	assert.Equal(t, 20.0, dr.DeductedMaterials[1].Remaining)

	code, raw = api.do(http.MethodPost, fmt.Sprintf("/api/products/%d/deduct-materials?quantity=10&force=true", pid), nil)
	require.Equal(t, http.StatusOK, code, string(raw))
	assert.True(t, decodeAs[deductionResponse](t, raw).Forced)

	code, raw = api.do(http.MethodGet, fmt.Sprintf("/api/inventory/items/%d", b), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, -80.0, decodeAs[materialResponse](t, raw).Quantity)

	code, raw = api.do(http.MethodGet, fmt.Sprintf("/api/inventory/items/%d/transactions", b), nil)
	require.Equal(t, http.StatusOK, code)
	mv := decodeAs[[]movementResponse](t, raw)
	require.Len(t, mv, 2)
	assert.Equal(t, "consumption", mv[0].Type)
	assert.Equal(t, -100.0, mv[0].Quantity)
}

func TestRequestErrors(t *testing.T) {
	api := newAPI(t)
	x := api.material("X", 5, "шт")
	pid := api.product("P")

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"bad id", http.MethodGet, "/api/inventory/items/abc", nil, http.StatusBadRequest, "invalid_argument"},
		{"unknown material", http.MethodGet, "/api/inventory/items/999", nil, http.StatusNotFound, "not_found"},
		{"unknown product", http.MethodGet, "/api/products/999/availability", nil, http.StatusNotFound, "not_found"},
		{"zero requested", http.MethodGet, fmt.Sprintf("/api/products/%d/availability?quantity_requested=0", pid), nil, http.StatusBadRequest, "invalid_argument"},
		{"non-integer quantity", http.MethodPost, fmt.Sprintf("/api/products/%d/deduct-materials?quantity=1.5", pid), nil, http.StatusBadRequest, "invalid_argument"},
		{"bad force", http.MethodPost, fmt.Sprintf("/api/products/%d/deduct-materials?force=maybe", pid), nil, http.StatusBadRequest, "invalid_argument"},
		{"broken json", http.MethodPost, "/api/inventory/items", "{", http.StatusBadRequest, "invalid_request"},
		{"missing name", http.MethodPost, "/api/inventory/items", map[string]any{"unit": "шт"}, http.StatusBadRequest, "invalid_argument"},
		{"write-off too much", http.MethodPost, fmt.Sprintf("/api/inventory/items/%d/write-off", x), map[string]any{"quantity": 6}, http.StatusBadRequest, "insufficient_stock"},
		{"add zero", http.MethodPost, fmt.Sprintf("/api/inventory/items/%d/add-stock", x), map[string]any{"quantity": 0}, http.StatusBadRequest, "invalid_argument"},
		{"duplicate sku", http.MethodPost, "/api/products", map[string]any{"sku": "P", "name": "Дубль"}, http.StatusConflict, "conflict"},
		{"zero needed", http.MethodPut, fmt.Sprintf("/api/products/%d/composition", pid), []map[string]any{{"inventory_id": x, "quantity_needed": 0}}, http.StatusBadRequest, "invalid_argument"},
		{"no audit", http.MethodGet, "/api/inventory/audit/current", nil, http.StatusNotFound, "not_found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, raw := api.do(tc.method, tc.path, tc.body)
			assert.Equal(t, tc.status, code, string(raw))
			assert.Equal(t, tc.code, decodeAs[errorResponse](t, raw).Error)
		})
	}
}

func TestMaterialsCRUD(t *testing.T) {
	api := newAPI(t)
	rose := api.material("Роза", 10, "шт")
	api.material("Пион", 0, "шт")

	code, raw := api.do(http.MethodGet, "/api/inventory/items?only_low_stock=true", nil)
	require.Equal(t, http.StatusOK, code)
	low := decodeAs[[]materialResponse](t, raw)
	require.Len(t, low, 1)
	assert.Equal(t, "Пион", low[0].Name)

	code, raw = api.do(http.MethodPatch, fmt.Sprintf("/api/inventory/items/%d", rose), map[string]any{
		"quantity": 12, "min_quantity": 15,
	})
	require.Equal(t, http.StatusOK, code, string(raw))
	m := decodeAs[materialResponse](t, raw)
	assert.Equal(t, 12.0, m.Quantity)
	assert.True(t, m.IsLowStock)

	code, _ = api.do(http.MethodPost, fmt.Sprintf("/api/inventory/items/%d/add-stock", rose), map[string]any{"quantity": 8})
	require.Equal(t, http.StatusOK, code)

	code, raw = api.do(http.MethodGet, fmt.Sprintf("/api/inventory/items/%d/transactions", rose), nil)
	require.Equal(t, http.StatusOK, code)
	mv := decodeAs[[]movementResponse](t, raw)
	require.Len(t, mv, 2)
	assert.Equal(t, "supply", mv[0].Type)
	assert.Equal(t, "adjustment", mv[1].Type)

	code, _ = api.do(http.MethodDelete, fmt.Sprintf("/api/inventory/items/%d", rose), nil)
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = api.do(http.MethodGet, fmt.Sprintf("/api/inventory/items/%d", rose), nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSeedSamplesEndpoint(t *testing.T) {
	api := newAPI(t)

	code, raw := api.do(http.MethodPost, "/api/inventory/samples", nil)
	require.Equal(t, http.StatusCreated, code, string(raw))
	body := decodeAs[map[string]any](t, raw)
	assert.Equal(t, 12.0, body["flowers_count"])
	assert.Equal(t, 9.0, body["packaging_count"])

	code, raw = api.do(http.MethodPost, "/api/inventory/samples", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 21.0, decodeAs[map[string]any](t, raw)["count"])
}

func TestAuditFlowWithSpreadsheet(t *testing.T) {
	api := newAPI(t)
	rose := api.material("Роза", 50, "шт")
	api.material("Эвкалипт", 10, "веток")

	code, raw := api.do(http.MethodPost, "/api/inventory/audit/start", map[string]any{"notes": "месяц"})
	require.Equal(t, http.StatusCreated, code, string(raw))
	audit := decodeAs[auditResponse](t, raw)
	assert.Len(t, audit.Items, 2)

	code, _ = api.do(http.MethodPost, "/api/inventory/audit/start", nil)
	assert.Equal(t, http.StatusConflict, code)

	// выгрузка, заполнение counted, загрузка
	code, raw = api.do(http.MethodGet, "/api/inventory/export", nil)
	require.Equal(t, http.StatusOK, code)
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	for i, row := range rows[1:] {
		if row[1] == "Роза" {
			require.NoError(t, f.SetCellValue(sheet, fmt.Sprintf("H%d", i+2), 45))
		}
	}
	var xlsx bytes.Buffer
	require.NoError(t, f.Write(&xlsx))
	require.NoError(t, f.Close())

	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	fw, err := mw.CreateFormFile("file", "stock.xlsx")
	require.NoError(t, err)
	_, err = fw.Write(xlsx.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/api/inventory/audit/%d/import", api.srv.URL, audit.ID), &form)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	code, raw = api.send(req)
	require.Equal(t, http.StatusOK, code, string(raw))
	assert.Equal(t, 1.0, decodeAs[map[string]any](t, raw)["updated"])

	code, raw = api.do(http.MethodGet, "/api/inventory/audit/current", nil)
	require.Equal(t, http.StatusOK, code)
	for _, it := range decodeAs[auditResponse](t, raw).Items {
		if it.InventoryID == rose {
			require.NotNil(t, it.Difference)
			assert.Equal(t, -5.0, *it.Difference)
		}
	}

	code, raw = api.do(http.MethodPost, fmt.Sprintf("/api/inventory/audit/%d/complete", audit.ID), nil)
	require.Equal(t, http.StatusOK, code, string(raw))
	assert.Equal(t, 1.0, decodeAs[map[string]any](t, raw)["adjustments"])

	code, raw = api.do(http.MethodGet, fmt.Sprintf("/api/inventory/items/%d", rose), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 45.0, decodeAs[materialResponse](t, raw).Quantity)
}

func TestRecordCountsJSON(t *testing.T) {
	api := newAPI(t)
	rose := api.material("Роза", 50, "шт")

	code, raw := api.do(http.MethodPost, "/api/inventory/audit/start", nil)
	require.Equal(t, http.StatusCreated, code)
	id := decodeAs[auditResponse](t, raw).ID

	code, raw = api.do(http.MethodPost, fmt.Sprintf("/api/inventory/audit/%d/items", id),
		[]map[string]any{{"inventory_id": rose, "actual_quantity": 49}})
	require.Equal(t, http.StatusOK, code, string(raw))

	code, raw = api.do(http.MethodPost, fmt.Sprintf("/api/inventory/audit/%d/items", id),
		[]map[string]any{{"inventory_id": rose, "actual_quantity": -1}})
	require.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, decodeAs[errorResponse](t, raw).Message, "actual_quantity")

	_, err := reports.ImportCounts(strings.NewReader(""))
	assert.ErrorIs(t, err, reports.ErrBadFormat)
	code, _ = api.do(http.MethodPost, fmt.Sprintf("/api/inventory/audit/%d/import", id), "garbage")
	assert.Equal(t, http.StatusBadRequest, code)
}
