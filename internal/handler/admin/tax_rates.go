package admin

import (
	"net/http"
	"time"

	"github.com/aydintd/carsi/internal/domain"
	"github.com/aydintd/carsi/internal/handler"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

type taxRateRequest struct {
	TaxClassID     string          `json:"tax_class_id" validate:"required,uuid"`
	Name           string          `json:"name" validate:"required,max=255"`
	Code           string          `json:"code" validate:"required,max=64"`
	Rate           decimal.Decimal `json:"rate"`
	Type           string          `json:"type" validate:"required,oneof=percentage fixed"`
	CountryCode    string          `json:"country_code" validate:"required,iso3166_1_alpha2"`
	Region         *string         `json:"region" validate:"omitempty,max=100"`
	IsCompound     bool            `json:"is_compound"`
	Priority       int32           `json:"priority"`
	EffectiveFrom  *time.Time      `json:"effective_from"`
	EffectiveUntil *time.Time      `json:"effective_until"`
	IsActive       *bool           `json:"is_active"`
}

type taxRateResponse struct {
	ID             string          `json:"id"`
	TaxClassID     string          `json:"tax_class_id"`
	Name           string          `json:"name"`
	Code           string          `json:"code"`
	Rate           decimal.Decimal `json:"rate"`
	Type           string          `json:"type"`
	CountryCode    string          `json:"country_code"`
	Region         *string         `json:"region,omitempty"`
	IsCompound     bool            `json:"is_compound"`
	Priority       int32           `json:"priority"`
	EffectiveFrom  *time.Time      `json:"effective_from,omitempty"`
	EffectiveUntil *time.Time      `json:"effective_until,omitempty"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func toTaxRateResponse(rate *domain.TaxRate) taxRateResponse {
	return taxRateResponse{
		ID:             handler.UUIDString(rate.ID),
		TaxClassID:     handler.UUIDString(rate.TaxClassID),
		Name:           rate.Name,
		Code:           rate.Code,
		Rate:           rate.Rate,
		Type:           string(rate.Type),
		CountryCode:    rate.CountryCode,
		Region:         rate.Region,
		IsCompound:     rate.IsCompound,
		Priority:       rate.Priority,
		EffectiveFrom:  rate.EffectiveFrom,
		EffectiveUntil: rate.EffectiveUntil,
		IsActive:       rate.IsActive,
		CreatedAt:      rate.CreatedAt,
		UpdatedAt:      rate.UpdatedAt,
	}
}

func (req *taxRateRequest) toDomain(op string) (*domain.TaxRate, error) {
	classID, err := handler.ParseUUID(op, "tax_class_id", req.TaxClassID)
	if err != nil {
		return nil, err
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return &domain.TaxRate{
		TaxClassID:     classID,
		Name:           req.Name,
		Code:           req.Code,
		Rate:           req.Rate,
		Type:           domain.RateType(req.Type),
		CountryCode:    req.CountryCode,
		Region:         req.Region,
		IsCompound:     req.IsCompound,
		Priority:       req.Priority,
		EffectiveFrom:  req.EffectiveFrom,
		EffectiveUntil: req.EffectiveUntil,
		IsActive:       active,
	}, nil
}

// ListTaxRates handles GET /admin/tax/rates.
// An optional ?tax_class_id= query parameter filters by owning class.
func (h *Handler) ListTaxRates(w http.ResponseWriter, r *http.Request) {
	const op = "taxrate.list"

	var classID *pgtype.UUID
	if raw := r.URL.Query().Get("tax_class_id"); raw != "" {
		id, err := handler.ParseUUID(op, "tax_class_id", raw)
		if err != nil {
			handler.RespondError(w, r, err)
			return
		}
		classID = &id
	}

	rates, err := h.service.ListTaxRates(r.Context(), classID)
	if err != nil {
		handler.RespondError(w, r, err)
		return
	}

	out := make([]taxRateResponse, 0, len(rates))
	for i := range rates {
		out = append(out, toTaxRateResponse(&rates[i]))
	}
	handler.RespondJSON(w, http.StatusOK, map[string]interface{}{"tax_rates": out})
}

// CreateTaxRate handles POST /admin/tax/rates.
func (h *Handler) CreateTaxRate(w http.ResponseWriter, r *http.Request) {
	const op = "taxrate.create"

	var req taxRateRequest
	if err := handler.DecodeJSON(r, op, &req); err != nil {
		handler.RespondError(w, r, err)
		return
	}
	if err := handler.Validate(op, &req); err != nil {
		handler.RespondError(w, r, err)
		return
	}

	rate, err := req.toDomain(op)
	if err != nil {
		handler.RespondError(w, r, err)
		return
	}

	created, err := h.service.CreateTaxRate(r.Context(), rate)
	if err != nil {
		handler.RespondError(w, r, err)
		return
	}

	h.metrics.RecordConfigWrite("tax_rate", "create")
	handler.RespondJSON(w, http.StatusCreated, toTaxRateResponse(created))
}

// GetTaxRate handles GET /admin/tax/rates/{id}.
func (h *Handler) GetTaxRate(w http.ResponseWriter, r *http.Request) {
	const op = "taxrate.get"

	id, err := handler.ParseUUID(op, "id", r.PathValue("id"))
	if err != nil {
		handler.RespondError(w, r, err)
		return
	}

	rate, err := h.service.GetTaxRate(r.Context(), id)
	if err != nil {
		handler.RespondError(w, r, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, toTaxRateResponse(rate))
}

// UpdateTaxRate handles PUT /admin/tax/rates/{id}.
func (h *Handler) UpdateTaxRate(w http.ResponseWriter, r *http.Request) {
	const op = "taxrate.update"

	id, err := handler.ParseUUID(op, "id", r.PathValue("id"))
	if err != nil {
		handler.RespondError(w, r, err)
		return
	}

	var req taxRateRequest
	if err := handler.DecodeJSON(r, op, &req); err != nil {
		handler.RespondError(w, r, err)
		return
	}
	if err := handler.Validate(op, &req); err != nil {
		handler.RespondError(w, r, err)
		return
	}

	rate, err := req.toDomain(op)
	if err != nil {
		handler.RespondError(w, r, err)
		return
	}
	rate.ID = id

	updated, err := h.service.UpdateTaxRate(r.Context(), rate)
	if err != nil {
		handler.RespondError(w, r, err)
		return
	}

	h.metrics.RecordConfigWrite("tax_rate", "update")
	handler.RespondJSON(w, http.StatusOK, toTaxRateResponse(updated))
}

// DeleteTaxRate handles DELETE /admin/tax/rates/{id}.
// Deletion is refused with a conflict while tax rules still reference the rate.
func (h *Handler) DeleteTaxRate(w http.ResponseWriter, r *http.Request) {
	const op = "taxrate.delete"

	id, err := handler.ParseUUID(op, "id", r.PathValue("id"))
	if err != nil {
		handler.RespondError(w, r, err)
		return
	}

	if err := h.service.DeleteTaxRate(r.Context(), id); err != nil {
		handler.RespondError(w, r, err)
		return
	}

	h.metrics.RecordConfigWrite("tax_rate", "delete")
	w.WriteHeader(http.StatusNoContent)
}
