package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Spok95/florist-stock/internal/stock"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 10 << 20

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`

	// только для insufficient_stock
	Material  string   `json:"material,omitempty"`
	Needed    *float64 `json:"needed,omitempty"`
	Available *float64 `json:"available,omitempty"`
	Shortfall *float64 `json:"shortfall,omitempty"`
	CanMake   *int     `json:"can_make,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

// writeServiceError переводит ошибки сервиса в HTTP-статусы.
func writeServiceError(w http.ResponseWriter, log *slog.Logger, err error) {
	var ins *stock.InsufficientStockError
	switch {
	case errors.As(err, &ins):
		needed, available, shortfall := ins.Needed, ins.Available, ins.Shortfall()
		resp := errorResponse{
			Error:     "insufficient_stock",
			Message:   ins.Error(),
			Material:  ins.Material,
			Needed:    &needed,
			Available: &available,
			Shortfall: &shortfall,
		}
		if ins.Requested > 0 {
			canMake := ins.CanMake
			resp.CanMake = &canMake
		}
		writeJSON(w, http.StatusBadRequest, resp)
	case errors.Is(err, stock.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, stock.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "invalid_argument", err.Error())
	case errors.Is(err, stock.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	default:
		log.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// queryInt целое из query; пустое значение = def.
func queryInt(r *http.Request, key string, def int) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

func queryBool(r *http.Request, key string) (bool, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(s)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

func (h *Handler) valid(w http.ResponseWriter, v any) bool {
	if err := h.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			writeError(w, http.StatusBadRequest, "invalid_argument",
				"field "+fe.Field()+" failed on '"+fe.Tag()+"'")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid_argument", err.Error())
		return false
	}
	return true
}
