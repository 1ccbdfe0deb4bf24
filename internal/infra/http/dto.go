package http

import (
	"time"

	"github.com/Spok95/florist-stock/internal/domain/audits"
	"github.com/Spok95/florist-stock/internal/domain/inventory"
	"github.com/Spok95/florist-stock/internal/domain/materials"
	"github.com/Spok95/florist-stock/internal/domain/products"
	"github.com/Spok95/florist-stock/internal/stock"
)

/* Запросы */

type createMaterialRequest struct {
	Name         string   `json:"name" validate:"required,max=200"`
	Quantity     float64  `json:"quantity" validate:"gte=0"`
	Unit         string   `json:"unit" validate:"required,max=20"`
	MinQuantity  *float64 `json:"min_quantity" validate:"omitempty,gte=0"`
	PricePerUnit *float64 `json:"price_per_unit" validate:"omitempty,gte=0"`
	CostPrice    *float64 `json:"cost_price" validate:"omitempty,gte=0"`
}

type updateMaterialRequest struct {
	Name         *string  `json:"name" validate:"omitempty,min=1,max=200"`
	Quantity     *float64 `json:"quantity" validate:"omitempty,gte=0"`
	MinQuantity  *float64 `json:"min_quantity" validate:"omitempty,gte=0"`
	PricePerUnit *float64 `json:"price_per_unit" validate:"omitempty,gte=0"`
	CostPrice    *float64 `json:"cost_price" validate:"omitempty,gte=0"`
	Comment      string   `json:"comment" validate:"max=500"`
}

// знак количества проверяет сервис (зависит от политики)
type addStockRequest struct {
	Quantity float64 `json:"quantity"`
	Note     string  `json:"note" validate:"max=500"`
}

type writeOffRequest struct {
	Quantity float64 `json:"quantity" validate:"gt=0"`
	Comment  string  `json:"comment" validate:"max=500"`
}

type createProductRequest struct {
	SKU         string  `json:"sku" validate:"required,max=64"`
	Name        string  `json:"name" validate:"required,max=200"`
	Description string  `json:"description" validate:"max=2000"`
	ProductType string  `json:"product_type" validate:"max=50"`
	BasePrice   float64 `json:"base_price" validate:"gte=0"`
	IsActive    *bool   `json:"is_active"`
}

type componentRequest struct {
	InventoryID    int64   `json:"inventory_id" validate:"required,gt=0"`
	QuantityNeeded float64 `json:"quantity_needed" validate:"gt=0"`
	Unit           string  `json:"unit" validate:"max=20"`
	IsOptional     bool    `json:"is_optional"`
	Notes          string  `json:"notes" validate:"max=500"`
}

type startAuditRequest struct {
	Notes string `json:"notes" validate:"max=1000"`
}

type auditCountRequest struct {
	InventoryID    int64   `json:"inventory_id" validate:"required,gt=0"`
	ActualQuantity float64 `json:"actual_quantity" validate:"gte=0"`
}

/* Ответы */

type materialResponse struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Quantity     float64   `json:"quantity"`
	Unit         string    `json:"unit"`
	MinQuantity  float64   `json:"min_quantity"`
	PricePerUnit *float64  `json:"price_per_unit"`
	CostPrice    *float64  `json:"cost_price"`
	IsLowStock   bool      `json:"is_low_stock"`
	CreatedAt    time.Time `json:"created_at"`
}

func toMaterial(m materials.Material) materialResponse {
	var minQty float64
	if m.MinQuantity != nil {
		minQty = *m.MinQuantity
	}
	return materialResponse{
		ID:           m.ID,
		Name:         m.Name,
		Quantity:     m.Quantity,
		Unit:         string(m.Unit),
		MinQuantity:  minQty,
		PricePerUnit: m.PricePerUnit,
		CostPrice:    m.CostPrice,
		IsLowStock:   m.IsLowStock(),
		CreatedAt:    m.CreatedAt,
	}
}

type movementResponse struct {
	ID            int64     `json:"id"`
	Type          string    `json:"type"`
	Quantity      float64   `json:"quantity"`
	Comment       string    `json:"comment,omitempty"`
	ReferenceType string    `json:"reference_type,omitempty"`
	ReferenceID   string    `json:"reference_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func toMovement(mv inventory.Movement) movementResponse {
	return movementResponse{
		ID:            mv.ID,
		Type:          string(mv.Type),
		Quantity:      mv.Quantity,
		Comment:       mv.Comment,
		ReferenceType: mv.ReferenceType,
		ReferenceID:   mv.ReferenceID,
		CreatedAt:     mv.CreatedAt,
	}
}

type productResponse struct {
	ID          int64     `json:"id"`
	SKU         string    `json:"sku"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ProductType string    `json:"product_type"`
	BasePrice   float64   `json:"base_price"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

func toProduct(p products.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		SKU:         p.SKU,
		Name:        p.Name,
		Description: p.Description,
		ProductType: string(p.Type),
		BasePrice:   p.BasePrice,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
	}
}

type componentResponse struct {
	ID             int64    `json:"id"`
	InventoryID    int64    `json:"inventory_id"`
	InventoryName  string   `json:"inventory_name"`
	QuantityNeeded float64  `json:"quantity_needed"`
	Unit           string   `json:"unit"`
	IsOptional     bool     `json:"is_optional"`
	Notes          string   `json:"notes,omitempty"`
	CurrentStock   float64  `json:"current_stock"`
	Cost           *float64 `json:"cost"`
}

func toComponents(cs []products.Component) []componentResponse {
	out := make([]componentResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, componentResponse{
			ID:             c.ID,
			InventoryID:    c.MaterialID,
			InventoryName:  c.Material.Name,
			QuantityNeeded: c.QuantityNeeded,
			Unit:           string(c.EffectiveUnit()),
			IsOptional:     c.IsOptional,
			Notes:          c.Notes,
			CurrentStock:   c.Material.Quantity,
			Cost:           c.Cost(),
		})
	}
	return out
}

type materialStatusResponse struct {
	MaterialID    int64   `json:"material_id"`
	Material      string  `json:"material"`
	NeededPerUnit float64 `json:"needed_per_unit"`
	Available     float64 `json:"available"`
	Unit          string  `json:"unit"`
	CanMake       int     `json:"can_make"`
	IsLimiting    bool    `json:"is_limiting"`
}

type availabilityResponse struct {
	ProductID         int64                    `json:"product_id"`
	ProductName       string                   `json:"product_name"`
	QuantityRequested int                      `json:"quantity_requested"`
	CanMake           int                      `json:"can_make"`
	LimitingMaterial  *string                  `json:"limiting_material"`
	MaterialsStatus   []materialStatusResponse `json:"materials_status"`
}

func toAvailability(av *stock.Availability) availabilityResponse {
	resp := availabilityResponse{
		ProductID:         av.ProductID,
		ProductName:       av.ProductName,
		QuantityRequested: av.Requested,
		CanMake:           av.CanMake,
		MaterialsStatus:   make([]materialStatusResponse, 0, len(av.Materials)),
	}
	if av.LimitingMaterial != nil {
		name := av.LimitingMaterial.Material
		resp.LimitingMaterial = &name
	}
	for _, m := range av.Materials {
		resp.MaterialsStatus = append(resp.MaterialsStatus, materialStatusResponse{
			MaterialID:    m.MaterialID,
			Material:      m.Material,
			NeededPerUnit: m.NeededPerUnit,
			Available:     m.Available,
			Unit:          string(m.Unit),
			CanMake:       m.CanMake,
			IsLimiting:    m.IsLimiting,
		})
	}
	return resp
}

type deductedResponse struct {
	MaterialID int64   `json:"material_id"`
	Material   string  `json:"material"`
	Deducted   float64 `json:"deducted"`
	Unit       string  `json:"unit"`
	Remaining  float64 `json:"remaining"`
}

type deductionResponse struct {
	Message           string             `json:"message"`
	ProductID         int64              `json:"product_id"`
	Quantity          int                `json:"quantity"`
	Forced            bool               `json:"forced"`
	Reference         string             `json:"reference"`
	DeductedMaterials []deductedResponse `json:"deducted_materials"`
}

func toDeduction(rep *stock.DeductionReport) deductionResponse {
	resp := deductionResponse{
		Message:           "materials deducted",
		ProductID:         rep.ProductID,
		Quantity:          rep.Quantity,
		Forced:            rep.Forced,
		Reference:         rep.Reference,
		DeductedMaterials: make([]deductedResponse, 0, len(rep.Deducted)),
	}
	for _, d := range rep.Deducted {
		resp.DeductedMaterials = append(resp.DeductedMaterials, deductedResponse{
			MaterialID: d.MaterialID,
			Material:   d.Material,
			Deducted:   d.Deducted,
			Unit:       string(d.Unit),
			Remaining:  d.Remaining,
		})
	}
	return resp
}

type auditItemResponse struct {
	ID             int64    `json:"id"`
	InventoryID    int64    `json:"inventory_id"`
	Name           string   `json:"name"`
	Unit           string   `json:"unit"`
	SystemQuantity float64  `json:"system_quantity"`
	ActualQuantity *float64 `json:"actual_quantity"`
	Difference     *float64 `json:"difference"`
}

type auditResponse struct {
	ID          int64               `json:"id"`
	Status      string              `json:"status"`
	Notes       string              `json:"notes,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	CompletedAt *time.Time          `json:"completed_at"`
	Items       []auditItemResponse `json:"items"`
}

func toAudit(a *audits.Audit) auditResponse {
	resp := auditResponse{
		ID:          a.ID,
		Status:      string(a.Status),
		Notes:       a.Notes,
		CreatedAt:   a.CreatedAt,
		CompletedAt: a.CompletedAt,
		Items:       make([]auditItemResponse, 0, len(a.Items)),
	}
	for _, it := range a.Items {
		resp.Items = append(resp.Items, auditItemResponse{
			ID:             it.ID,
			InventoryID:    it.MaterialID,
			Name:           it.MaterialName,
			Unit:           it.Unit,
			SystemQuantity: it.SystemQuantity,
			ActualQuantity: it.ActualQuantity,
			Difference:     it.Difference,
		})
	}
	return resp
}
