package http

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/Spok95/florist-stock/internal/domain/materials"
	"github.com/Spok95/florist-stock/internal/domain/products"
	"github.com/Spok95/florist-stock/internal/reports"
	"github.com/Spok95/florist-stock/internal/stock"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	svc      *stock.Service
	log      *slog.Logger
	validate *validator.Validate
	loc      *time.Location
}

func NewHandler(svc *stock.Service, log *slog.Logger, loc *time.Location) *Handler {
	v := validator.New()
	// в ошибках показываем имена полей из json
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{svc: svc, log: log, validate: v, loc: loc}
}

/* Материалы */

func (h *Handler) ListMaterials(w http.ResponseWriter, r *http.Request) {
	lowOnly, err := queryBool(r, "only_low_stock")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_argument", "only_low_stock must be a boolean")
		return
	}
	list, err := h.svc.ListMaterials(r.Context(), materials.Filter{
		OnlyLowStock: lowOnly,
		Search:       r.URL.Query().Get("search"),
	})
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	out := make([]materialResponse, 0, len(list))
	for _, m := range list {
		out = append(out, toMaterial(m))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) CreateMaterial(w http.ResponseWriter, r *http.Request) {
	var req createMaterialRequest
	if !h.decode(w, r, &req) || !h.valid(w, req) {
		return
	}
	m, err := h.svc.CreateMaterial(r.Context(), materials.Material{
		Name:         req.Name,
		Quantity:     req.Quantity,
		Unit:         materials.Unit(req.Unit),
		MinQuantity:  req.MinQuantity,
		PricePerUnit: req.PricePerUnit,
		CostPrice:    req.CostPrice,
	})
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMaterial(*m))
}

func (h *Handler) GetMaterial(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_argument", "bad id")
		return
	}
	m, err := h.svc.GetMaterial(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toMaterial(*m))
}

func (h *Handler) UpdateMaterial(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_argument", "bad id")
		return
	}
	var req updateMaterialRequest
	if !h.decode(w, r, &req) || !h.valid(w, req) {
		return
	}
	m, err := h.svc.UpdateMaterial(r.Context(), id, stock.MaterialUpdate{
		Patch: materials.Patch{
			Name:         req.Name,
			MinQuantity:  req.MinQuantity,
			PricePerUnit: req.PricePerUnit,
			CostPrice:    req.CostPrice,
		},
		Quantity: req.Quantity,
		Comment:  req.Comment,
	})
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toMaterial(*m))
}

func (h *Handler) DeleteMaterial(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_argument", "bad id")
		return
	}
	if err := h.svc.DeleteMaterial(r.Context(), id); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AddStock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_argument", "bad id")
		return
	}
	var req addStockRequest
	if !h.decode(w, r, &req) || !h.valid(w, req) {
		return
	}
	m, err := h.svc.AddStock(r.Context(), id, req.Quantity, req.Note)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toMaterial(*m))
}

func (h *Handler) WriteOff(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_argument", "bad id")
		return
	}
	var req writeOffRequest
	if !h.decode(w, r, &req) || !h.valid(w, req) {
		return
	}
	m, err := h.svc.WriteOff(r.Context(), id, req.Quantity, req.Comment)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toMaterial(*m))
}

func (h *Handler) Movements(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_argument", "bad id")
		return
	}
	list, err := h.svc.Movements(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	out := make([]movementResponse, 0, len(list))
	for _, mv := range list {
		out = append(out, toMovement(mv))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) ExportStock(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListMaterials(r.Context(), materials.Filter{})
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	var buf bytes.Buffer
	if err := reports.ExportStock(&buf, list); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	name := fmt.Sprintf("stock_%s.xlsx", time.Now().In(h.loc).Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) SeedSamples(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.SeedSamples(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	if !res.Created {
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "inventory already has items",
			"count":   res.Existing,
		})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":          "sample inventory created",
		"flowers_count":    res.Flowers,
		"packaging_count":  res.Packaging,
		"product_id":       res.ProductID,
		"composition_size": res.Composition,
	})
}

/* Инвентаризация */

func (h *Handler) StartAudit(w http.ResponseWriter, r *http.Request) {
	var req startAuditRequest
	if r.ContentLength != 0 {
		if !h.decode(w, r, &req) || !h.valid(w, req) {
			return
		}
	}
	a, err := h.svc.StartAudit(r.Context(), req.Notes)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAudit(a))
}

func (h *Handler) CurrentAudit(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.CurrentAudit(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toAudit(a))
}

func (h *Handler) RecordCounts(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_argument", "bad id")
		return
	}
	var req []auditCountRequest
	if !h.decode(w, r, &req) {
		return
	}
	counts := make(map[int64]float64, len(req))
	for _, c := range req {
		if !h.valid(w, c) {
			return
		}
		counts[c.InventoryID] = c.ActualQuantity
	}
	h.recordCounts(w, r, id, counts)
}

// ImportCounts принимает xlsx из выгрузки остатков с заполненной колонкой counted:
// либо телом запроса, либо multipart-полем file.
func (h *Handler) ImportCounts(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_argument", "bad id")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var src io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		f, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "multipart field file is required")
			return
		}
		defer func() { _ = f.Close() }()
		src = f
	}

	counts, err := reports.ImportCounts(src)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	h.recordCounts(w, r, id, counts)
}

func (h *Handler) recordCounts(w http.ResponseWriter, r *http.Request, auditID int64, counts map[int64]float64) {
	n, err := h.svc.RecordCounts(r.Context(), auditID, counts)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": n})
}

func (h *Handler) CompleteAudit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_argument", "bad id")
		return
	}
	res, err := h.svc.CompleteAudit(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "audit completed",
		"audit_id":    res.AuditID,
		"adjustments": res.Adjustments,
	})
}

/* Продукты */

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListProducts(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	out := make([]productResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toProduct(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if !h.decode(w, r, &req) || !h.valid(w, req) {
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	p, err := h.svc.CreateProduct(r.Context(), products.Product{
		SKU:         req.SKU,
		Name:        req.Name,
		Description: req.Description,
		Type:        products.Type(req.ProductType),
		BasePrice:   req.BasePrice,
		IsActive:    active,
	})
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProduct(*p))
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_argument", "bad id")
		return
	}
	p, err := h.svc.GetProduct(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toProduct(*p))
}

func (h *Handler) Composition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_argument", "bad id")
		return
	}
	cs, err := h.svc.Composition(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toComponents(cs))
}

func (h *Handler) SetComposition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_argument", "bad id")
		return
	}
	var req []componentRequest
	if !h.decode(w, r, &req) {
		return
	}
	in := make([]products.ComponentInput, 0, len(req))
	for _, c := range req {
		if !h.valid(w, c) {
			return
		}
		in = append(in, products.ComponentInput{
			MaterialID:     c.InventoryID,
			QuantityNeeded: c.QuantityNeeded,
			Unit:           materials.Unit(c.Unit),
			IsOptional:     c.IsOptional,
			Notes:          c.Notes,
		})
	}
	cs, err := h.svc.SetComposition(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toComponents(cs))
}

func (h *Handler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_argument", "bad id")
		return
	}
	qty, err := queryInt(r, "quantity_requested", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_argument", "quantity_requested must be an integer")
		return
	}
	av, err := h.svc.CheckAvailability(r.Context(), id, qty)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toAvailability(av))
}

func (h *Handler) DeductMaterials(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_argument", "bad id")
		return
	}
	qty, err := queryInt(r, "quantity", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_argument", "quantity must be an integer")
		return
	}
	force, err := queryBool(r, "force")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_argument", "force must be a boolean")
		return
	}
	rep, err := h.svc.DeductMaterials(r.Context(), id, qty, force)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toDeduction(rep))
}
