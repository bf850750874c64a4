package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/aydintd/carsi/internal/domain"
	"github.com/aydintd/carsi/internal/middleware"
	"github.com/aydintd/carsi/internal/telemetry"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// maxBodyBytes caps JSON request bodies at 1 MiB.
const maxBodyBytes = 1 << 20

// ErrorBody is the JSON error envelope returned by every endpoint.
type ErrorBody struct {
	Error     string            `json:"error"`
	Code      string            `json:"code"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// RespondJSON writes v as a JSON response with the given status.
func RespondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already out; nothing to do but log at the caller.
		_ = err
	}
}

// RespondError maps an error to an HTTP status and writes the JSON error
// envelope. Validation errors carry per-field messages; internal errors
// are logged and reported to Sentry with their details hidden from the
// response body.
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())

	if fields := domain.GetValidationFields(err); fields != nil {
		RespondJSON(w, http.StatusBadRequest, ErrorBody{
			Error:     "validation failed",
			Code:      domain.EINVALID,
			Fields:    fields,
			RequestID: requestID,
		})
		return
	}

	code := domain.ErrorCode(err)
	status := StatusFromCode(code)

	if status >= http.StatusInternalServerError {
		middleware.GetLogger(r.Context()).Error("request failed",
			"op", domain.ErrorOp(err),
			"error", err,
		)
		telemetry.CaptureErrorFromContext(r.Context(), err, map[string]interface{}{
			"op": domain.ErrorOp(err),
		})
	}

	RespondJSON(w, status, ErrorBody{
		Error:     domain.ErrorMessage(err),
		Code:      code,
		RequestID: requestID,
	})
}

// StatusFromCode maps a domain error code to an HTTP status code.
func StatusFromCode(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest
	case domain.ENOTFOUND:
		return http.StatusNotFound
	case domain.ECONFLICT:
		return http.StatusConflict
	case domain.EUNAUTHORIZED:
		return http.StatusUnauthorized
	case domain.EFORBIDDEN:
		return http.StatusForbidden
	case domain.ERATELIMIT:
		return http.StatusTooManyRequests
	case domain.ENOTIMPL:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// DecodeJSON decodes the request body into dst, rejecting oversized or
// malformed payloads with an EINVALID error.
func DecodeJSON(r *http.Request, op string, dst interface{}) error {
	body := io.LimitReader(r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return domain.WrapError(err, domain.EINVALID, op, "invalid JSON body")
	}
	return nil
}

// validate is the shared validator instance. Field names in error
// messages come from json tags, not Go field names.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate runs struct-tag validation on v and converts failures to a
// domain.ValidationError keyed by json field name.
func Validate(op string, v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		var out error
		for _, fe := range verrs {
			out = domain.AddFieldError(out, fe.Field(), validationMessage(fe))
		}
		var ve *domain.ValidationError
		if errors.As(out, &ve) {
			ve.Op = op
		}
		return out
	}

	return domain.Internal(err, op, "request validation failed")
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "iso3166_1_alpha2":
		return "must be a two-letter country code"
	case "uuid":
		return "must be a valid UUID"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// ParseUUID converts a path or body UUID string to pgtype.UUID.
func ParseUUID(op, field, s string) (pgtype.UUID, error) {
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{}, domain.NewValidationError(op, field, "must be a valid UUID")
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}, nil
}

// UUIDString renders a pgtype.UUID for JSON responses. Invalid (unset)
// UUIDs render as the empty string.
func UUIDString(id pgtype.UUID) string {
	if !id.Valid {
		return ""
	}
	return uuid.UUID(id.Bytes).String()
}
