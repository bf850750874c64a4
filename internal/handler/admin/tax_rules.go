package admin

import (
	"net/http"
	"time"

	"github.com/aydintd/carsi/internal/domain"
	"github.com/aydintd/carsi/internal/handler"
	"github.com/shopspring/decimal"
)

type taxRuleRequest struct {
	TaxRateID       string           `json:"tax_rate_id" validate:"required,uuid"`
	EntityType      string           `json:"entity_type" validate:"required,oneof=product category customer shipping payment"`
	EntityID        *string          `json:"entity_id" validate:"omitempty,uuid"`
	CountryCode     string           `json:"country_code" validate:"required,iso3166_1_alpha2"`
	Region          *string          `json:"region" validate:"omitempty,max=100"`
	PostalCodeFrom  *string          `json:"postal_code_from" validate:"omitempty,max=10"`
	PostalCodeTo    *string          `json:"postal_code_to" validate:"omitempty,max=10"`
	CustomerType    string           `json:"customer_type" validate:"omitempty,oneof=individual company"`
	OrderAmountFrom *decimal.Decimal `json:"order_amount_from"`
	OrderAmountTo   *decimal.Decimal `json:"order_amount_to"`
	Priority        int32            `json:"priority"`
	StopProcessing  bool             `json:"stop_processing"`
	DateFrom        *time.Time       `json:"date_from"`
	DateTo          *time.Time       `json:"date_to"`
	IsActive        *bool            `json:"is_active"`
}

type taxRuleResponse struct {
	ID              string           `json:"id"`
	TaxRateID       string           `json:"tax_rate_id"`
	EntityType      string           `json:"entity_type"`
	EntityID        string           `json:"entity_id,omitempty"`
	CountryCode     string           `json:"country_code"`
	Region          *string          `json:"region,omitempty"`
	PostalCodeFrom  *string          `json:"postal_code_from,omitempty"`
	PostalCodeTo    *string          `json:"postal_code_to,omitempty"`
	CustomerType    string           `json:"customer_type,omitempty"`
	OrderAmountFrom *decimal.Decimal `json:"order_amount_from,omitempty"`
	OrderAmountTo   *decimal.Decimal `json:"order_amount_to,omitempty"`
	Priority        int32            `json:"priority"`
	StopProcessing  bool             `json:"stop_processing"`
	DateFrom        *time.Time       `json:"date_from,omitempty"`
	DateTo          *time.Time       `json:"date_to,omitempty"`
	IsActive        bool             `json:"is_active"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func toTaxRuleResponse(rule *domain.TaxRule) taxRuleResponse {
	return taxRuleResponse{
		ID:              handler.UUIDString(rule.ID),
		TaxRateID:       handler.UUIDString(rule.TaxRateID),
		EntityType:      string(rule.EntityType),
		EntityID:        handler.UUIDString(rule.EntityID),
		CountryCode:     rule.CountryCode,
		Region:          rule.Region,
		PostalCodeFrom:  rule.PostalCodeFrom,
		PostalCodeTo:    rule.PostalCodeTo,
		CustomerType:    string(rule.CustomerType),
		OrderAmountFrom: rule.OrderAmountFrom,
		OrderAmountTo:   rule.OrderAmountTo,
		Priority:        rule.Priority,
		StopProcessing:  rule.StopProcessing,
		DateFrom:        rule.DateFrom,
		DateTo:          rule.DateTo,
		IsActive:        rule.IsActive,
		CreatedAt:       rule.CreatedAt,
		UpdatedAt:       rule.UpdatedAt,
	}
}

func (req *taxRuleRequest) toDomain(op string) (*domain.TaxRule, error) {
	rateID, err := handler.ParseUUID(op, "tax_rate_id", req.TaxRateID)
	if err != nil {
		return nil, err
	}

	rule := &domain.TaxRule{
		TaxRateID:       rateID,
		EntityType:      domain.EntityType(req.EntityType),
		CountryCode:     req.CountryCode,
		Region:          req.Region,
		PostalCodeFrom:  req.PostalCodeFrom,
		PostalCodeTo:    req.PostalCodeTo,
		CustomerType:    domain.CustomerType(req.CustomerType),
		OrderAmountFrom: req.OrderAmountFrom,
		OrderAmountTo:   req.OrderAmountTo,
		Priority:        req.Priority,
		StopProcessing:  req.StopProcessing,
		DateFrom:        req.DateFrom,
		DateTo:          req.DateTo,
		IsActive:        true,
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}
	if req.EntityID != nil && *req.EntityID != "" {
		id, err := handler.ParseUUID(op, "entity_id", *req.EntityID)
		if err != nil {
			return nil, err
		}
		rule.EntityID = id
	}
	return rule, nil
}

// ListTaxRules handles GET /admin/tax/rules.
func (h *Handler) ListTaxRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.service.ListTaxRules(r.Context())
	if err != nil {
		handler.RespondError(w, r, err)
		return
	}

	out := make([]taxRuleResponse, 0, len(rules))
	for i := range rules {
		out = append(out, toTaxRuleResponse(&rules[i]))
	}
	handler.RespondJSON(w, http.StatusOK, map[string]interface{}{"tax_rules": out})
}

// CreateTaxRule handles POST /admin/tax/rules.
func (h *Handler) CreateTaxRule(w http.ResponseWriter, r *http.Request) {
	const op = "taxrule.create"

	var req taxRuleRequest
	if err := handler.DecodeJSON(r, op, &req); err != nil {
		handler.RespondError(w, r, err)
		return
	}
	if err := handler.Validate(op, &req); err != nil {
		handler.RespondError(w, r, err)
		return
	}

	rule, err := req.toDomain(op)
	if err != nil {
		handler.RespondError(w, r, err)
		return
	}

	created, err := h.service.CreateTaxRule(r.Context(), rule)
	if err != nil {
		handler.RespondError(w, r, err)
		return
	}

	h.metrics.RecordConfigWrite("tax_rule", "create")
	handler.RespondJSON(w, http.StatusCreated, toTaxRuleResponse(created))
}

// GetTaxRule handles GET /admin/tax/rules/{id}.
func (h *Handler) GetTaxRule(w http.ResponseWriter, r *http.Request) {
	const op = "taxrule.get"

	id, err := handler.ParseUUID(op, "id", r.PathValue("id"))
	if err != nil {
		handler.RespondError(w, r, err)
		return
	}

	rule, err := h.service.GetTaxRule(r.Context(), id)
	if err != nil {
		handler.RespondError(w, r, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, toTaxRuleResponse(rule))
}

// UpdateTaxRule handles PUT /admin/tax/rules/{id}.
func (h *Handler) UpdateTaxRule(w http.ResponseWriter, r *http.Request) {
	const op = "taxrule.update"

	id, err := handler.ParseUUID(op, "id", r.PathValue("id"))
	if err != nil {
		handler.RespondError(w, r, err)
		return
	}

	var req taxRuleRequest
	if err := handler.DecodeJSON(r, op, &req); err != nil {
		handler.RespondError(w, r, err)
		return
	}
	if err := handler.Validate(op, &req); err != nil {
		handler.RespondError(w, r, err)
		return
	}

	rule, err := req.toDomain(op)
	if err != nil {
		handler.RespondError(w, r, err)
		return
	}
	rule.ID = id

	updated, err := h.service.UpdateTaxRule(r.Context(), rule)
	if err != nil {
		handler.RespondError(w, r, err)
		return
	}

	h.metrics.RecordConfigWrite("tax_rule", "update")
	handler.RespondJSON(w, http.StatusOK, toTaxRuleResponse(updated))
}

// DeleteTaxRule handles DELETE /admin/tax/rules/{id}.
func (h *Handler) DeleteTaxRule(w http.ResponseWriter, r *http.Request) {
	const op = "taxrule.delete"

	id, err := handler.ParseUUID(op, "id", r.PathValue("id"))
	if err != nil {
		handler.RespondError(w, r, err)
		return
	}

	if err := h.service.DeleteTaxRule(r.Context(), id); err != nil {
		handler.RespondError(w, r, err)
		return
	}

	h.metrics.RecordConfigWrite("tax_rule", "delete")
	w.WriteHeader(http.StatusNoContent)
}
