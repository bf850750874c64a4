package admin

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aydintd/carsi/internal/domain"
	"github.com/aydintd/carsi/internal/handler"
	"github.com/aydintd/carsi/internal/service"
	"github.com/aydintd/carsi/internal/telemetry"
	"github.com/shopspring/decimal"
)

// Handler serves the admin tax configuration endpoints.
type Handler struct {
	service service.TaxConfigService
	logger  *slog.Logger
	metrics *telemetry.BusinessMetrics
}

// NewHandler creates the admin handler. metrics may be nil.
func NewHandler(svc service.TaxConfigService, logger *slog.Logger, metrics *telemetry.BusinessMetrics) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service: svc,
		logger:  logger,
		metrics: metrics,
	}
}

type taxClassRequest struct {
	Name        string          `json:"name" validate:"required,max=255"`
	Code        string          `json:"code" validate:"required,max=64"`
	Description string          `json:"description" validate:"omitempty,max=1000"`
	DefaultRate decimal.Decimal `json:"default_rate"`
	IsActive    *bool           `json:"is_active"`
}

type taxClassResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Code        string          `json:"code"`
	Description string          `json:"description,omitempty"`
	DefaultRate decimal.Decimal `json:"default_rate"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func toTaxClassResponse(c *domain.TaxClass) taxClassResponse {
	return taxClassResponse{
		ID:          handler.UUIDString(c.ID),
		Name:        c.Name,
		Code:        c.Code,
		Description: c.Description,
		DefaultRate: c.DefaultRate,
		IsActive:    c.IsActive,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func (req *taxClassRequest) toDomain() *domain.TaxClass {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return &domain.TaxClass{
		Name:        req.Name,
		Code:        req.Code,
		Description: req.Description,
		DefaultRate: req.DefaultRate,
		IsActive:    active,
	}
}

// ListTaxClasses handles GET /admin/tax/classes.
func (h *Handler) ListTaxClasses(w http.ResponseWriter, r *http.Request) {
	classes, err := h.service.ListTaxClasses(r.Context())
	if err != nil {
		handler.RespondError(w, r, err)
		return
	}

	out := make([]taxClassResponse, 0, len(classes))
	for i := range classes {
		out = append(out, toTaxClassResponse(&classes[i]))
	}
	handler.RespondJSON(w, http.StatusOK, map[string]interface{}{"tax_classes": out})
}

// CreateTaxClass handles POST /admin/tax/classes.
func (h *Handler) CreateTaxClass(w http.ResponseWriter, r *http.Request) {
	const op = "taxclass.create"

	var req taxClassRequest
	if err := handler.DecodeJSON(r, op, &req); err != nil {
		handler.RespondError(w, r, err)
		return
	}
	if err := handler.Validate(op, &req); err != nil {
		handler.RespondError(w, r, err)
		return
	}

	created, err := h.service.CreateTaxClass(r.Context(), req.toDomain())
	if err != nil {
		handler.RespondError(w, r, err)
		return
	}

	h.metrics.RecordConfigWrite("tax_class", "create")
	handler.RespondJSON(w, http.StatusCreated, toTaxClassResponse(created))
}

// GetTaxClass handles GET /admin/tax/classes/{id}.
func (h *Handler) GetTaxClass(w http.ResponseWriter, r *http.Request) {
	const op = "taxclass.get"

	id, err := handler.ParseUUID(op, "id", r.PathValue("id"))
	if err != nil {
		handler.RespondError(w, r, err)
		return
	}

	class, err := h.service.GetTaxClass(r.Context(), id)
	if err != nil {
		handler.RespondError(w, r, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, toTaxClassResponse(class))
}

// UpdateTaxClass handles PUT /admin/tax/classes/{id}.
func (h *Handler) UpdateTaxClass(w http.ResponseWriter, r *http.Request) {
	const op = "taxclass.update"

	id, err := handler.ParseUUID(op, "id", r.PathValue("id"))
	if err != nil {
		handler.RespondError(w, r, err)
		return
	}

	var req taxClassRequest
	if err := handler.DecodeJSON(r, op, &req); err != nil {
		handler.RespondError(w, r, err)
		return
	}
	if err := handler.Validate(op, &req); err != nil {
		handler.RespondError(w, r, err)
		return
	}

	class := req.toDomain()
	class.ID = id

	updated, err := h.service.UpdateTaxClass(r.Context(), class)
	if err != nil {
		handler.RespondError(w, r, err)
		return
	}

	h.metrics.RecordConfigWrite("tax_class", "update")
	handler.RespondJSON(w, http.StatusOK, toTaxClassResponse(updated))
}

// DeleteTaxClass handles DELETE /admin/tax/classes/{id}.
// Deletion is refused with a conflict while tax rates still reference the class.
func (h *Handler) DeleteTaxClass(w http.ResponseWriter, r *http.Request) {
	const op = "taxclass.delete"

	id, err := handler.ParseUUID(op, "id", r.PathValue("id"))
	if err != nil {
		handler.RespondError(w, r, err)
		return
	}

	if err := h.service.DeleteTaxClass(r.Context(), id); err != nil {
		handler.RespondError(w, r, err)
		return
	}

	h.metrics.RecordConfigWrite("tax_class", "delete")
	w.WriteHeader(http.StatusNoContent)
}
