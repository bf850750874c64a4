package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aydintd/carsi/internal/domain"
	"github.com/aydintd/carsi/internal/handler"
	"github.com/aydintd/carsi/internal/service"
	"github.com/aydintd/carsi/internal/tax"
	"github.com/aydintd/carsi/internal/telemetry"
	"github.com/shopspring/decimal"
)

// TaxHandler serves the public tax calculation endpoint.
type TaxHandler struct {
	calculator tax.Calculator
	logger     *slog.Logger
	metrics    *telemetry.BusinessMetrics
}

// NewTaxHandler creates the calculation handler. metrics may be nil.
func NewTaxHandler(calculator tax.Calculator, logger *slog.Logger, metrics *telemetry.BusinessMetrics) *TaxHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaxHandler{
		calculator: calculator,
		logger:     logger,
		metrics:    metrics,
	}
}

type calculateRequest struct {
	Amount *decimal.Decimal `json:"amount"`

	// Scenario and Conditions are mutually exclusive. Omitting both
	// calculates with the engine defaults (domestic, standard class).
	Scenario   string             `json:"scenario,omitempty"`
	Conditions *conditionsRequest `json:"conditions,omitempty"`
}

type conditionsRequest struct {
	CountryCode    string           `json:"country_code" validate:"omitempty,iso3166_1_alpha2"`
	Region         string           `json:"region" validate:"omitempty,max=100"`
	PostalCode     string           `json:"postal_code" validate:"omitempty,max=10"`
	CustomerType   string           `json:"customer_type" validate:"omitempty,oneof=individual company"`
	OrderAmount    *decimal.Decimal `json:"order_amount"`
	EntityType     string           `json:"entity_type" validate:"omitempty,oneof=product category customer shipping payment"`
	EntityID       string           `json:"entity_id" validate:"omitempty,uuid"`
	IsExport       bool             `json:"is_export"`
	EvaluationDate *time.Time       `json:"evaluation_date"`
	TaxClassCode   string           `json:"tax_class_code" validate:"omitempty,max=64"`
}

type appliedRateResponse struct {
	RateID            string          `json:"rate_id,omitempty"`
	Name              string          `json:"name"`
	RateValue         decimal.Decimal `json:"rate_value"`
	Type              string          `json:"type"`
	AmountContributed decimal.Decimal `json:"amount_contributed"`
	IsCompound        bool            `json:"is_compound"`
}

type calculateResponse struct {
	BaseAmount    decimal.Decimal       `json:"base_amount"`
	TaxAmount     decimal.Decimal       `json:"tax_amount"`
	TotalWithTax  decimal.Decimal       `json:"total_with_tax"`
	EffectiveRate decimal.Decimal       `json:"effective_rate"`
	TaxClassName  string                `json:"tax_class_name"`
	AppliedRates  []appliedRateResponse `json:"applied_rates"`
	Tier          string                `json:"tier"`
	Signal        string                `json:"signal,omitempty"`
}

// Calculate handles POST /api/tax/calculate.
func (h *TaxHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	const op = "tax.calculate"

	var req calculateRequest
	if err := handler.DecodeJSON(r, op, &req); err != nil {
		h.rejected(w, r, err)
		return
	}

	if req.Amount == nil {
		h.rejected(w, r, domain.NewValidationError(op, "amount", "this field is required"))
		return
	}
	if req.Scenario != "" && req.Conditions != nil {
		h.rejected(w, r, domain.Invalid(op, "provide either scenario or conditions, not both"))
		return
	}

	conditions, err := h.resolveConditions(op, &req)
	if err != nil {
		h.rejected(w, r, err)
		return
	}

	computation, err := h.calculator.CalculateTax(r.Context(), *req.Amount, conditions)
	if err != nil {
		h.rejected(w, r, err)
		return
	}

	h.metrics.RecordCalculation(string(computation.Tier), string(computation.Signal))
	if computation.Signal != domain.SignalNone {
		h.logger.Warn("tax configuration gap",
			"signal", string(computation.Signal),
			"tax_class_code", conditions.TaxClassCode,
			"country_code", conditions.CountryCode,
		)
	}

	handler.RespondJSON(w, http.StatusOK, toCalculateResponse(computation))
}

// Scenarios handles GET /api/tax/scenarios.
func (h *TaxHandler) Scenarios(w http.ResponseWriter, r *http.Request) {
	handler.RespondJSON(w, http.StatusOK, map[string][]string{
		"scenarios": service.ScenarioNames(),
	})
}

func (h *TaxHandler) rejected(w http.ResponseWriter, r *http.Request, err error) {
	if h.metrics != nil {
		h.metrics.CalculationsRejected.Inc()
	}
	handler.RespondError(w, r, err)
}

func (h *TaxHandler) resolveConditions(op string, req *calculateRequest) (domain.Conditions, error) {
	if req.Scenario != "" {
		return service.ScenarioConditions(req.Scenario)
	}
	if req.Conditions == nil {
		return domain.Conditions{}, nil
	}

	if err := handler.Validate(op, req.Conditions); err != nil {
		return domain.Conditions{}, err
	}

	c := domain.Conditions{
		CountryCode:  req.Conditions.CountryCode,
		Region:       req.Conditions.Region,
		PostalCode:   req.Conditions.PostalCode,
		CustomerType: domain.CustomerType(req.Conditions.CustomerType),
		OrderAmount:  req.Conditions.OrderAmount,
		EntityType:   domain.EntityType(req.Conditions.EntityType),
		IsExport:     req.Conditions.IsExport,
		TaxClassCode: req.Conditions.TaxClassCode,
	}
	if req.Conditions.EvaluationDate != nil {
		c.EvaluationDate = *req.Conditions.EvaluationDate
	}
	if req.Conditions.EntityID != "" {
		id, err := handler.ParseUUID(op, "entity_id", req.Conditions.EntityID)
		if err != nil {
			return domain.Conditions{}, err
		}
		c.EntityID = id
	}
	return c, nil
}

func toCalculateResponse(c *domain.TaxComputation) calculateResponse {
	rates := make([]appliedRateResponse, 0, len(c.AppliedRates))
	for _, ar := range c.AppliedRates {
		rates = append(rates, appliedRateResponse{
			RateID:            handler.UUIDString(ar.RateID),
			Name:              ar.Name,
			RateValue:         ar.RateValue,
			Type:              string(ar.Type),
			AmountContributed: ar.AmountContributed,
			IsCompound:        ar.IsCompound,
		})
	}
	return calculateResponse{
		BaseAmount:    c.BaseAmount,
		TaxAmount:     c.TaxAmount,
		TotalWithTax:  c.TotalWithTax,
		EffectiveRate: c.EffectiveRate,
		TaxClassName:  c.TaxClassName,
		AppliedRates:  rates,
		Tier:          string(c.Tier),
		Signal:        string(c.Signal),
	}
}
