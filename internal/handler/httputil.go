package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/matthewbaird/propmanage/internal/billing"
	"github.com/matthewbaird/propmanage/internal/logging"
	"github.com/matthewbaird/propmanage/internal/policy"
	"github.com/matthewbaird/propmanage/internal/types"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Amounts validate as numbers so gt/gte tags apply to them.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(types.Date); ok && !d.IsZero() {
			return d.String()
		}
		return ""
	}, types.Date{})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Logger.WithError(err).Error("writeJSON encode error")
	}
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}

// decodeJSON decodes the request body into v.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// decodeAndValidate decodes the body into v and validates its struct tags,
// writing the error response itself when either step fails.
func decodeAndValidate(ctx context.Context, w http.ResponseWriter, r *http.Request, v any) bool {
	if err := decodeJSON(r, v); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "invalid JSON body: "+err.Error())
		return false
	}
	if err := validate.StructCtx(ctx, v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			writeError(w, http.StatusUnprocessableEntity, "INVALID_REQUEST", validationMessage(verrs))
			return false
		}
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return false
	}
	return true
}

func validationMessage(verrs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed on %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}

// parseID extracts an integer path parameter.
func parseID(w http.ResponseWriter, r *http.Request, paramName string) (int64, bool) {
	raw := chi.URLParam(r, paramName)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "invalid id: "+raw)
		return 0, false
	}
	return id, true
}

// writeDomainError maps billing and policy errors to HTTP responses.
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		notFound  *billing.NotFoundError
		state     *billing.StateError
		rng       *billing.RangeError
		invalid   *billing.ValidationError
		violation *policy.Violation
	)
	switch {
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", notFoundMessage(notFound.Entity))
	case errors.Is(err, billing.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.As(err, &state):
		writeError(w, http.StatusBadRequest, "INVALID_STATE", state.Message)
	case errors.As(err, &rng):
		writeError(w, http.StatusBadRequest, "INVALID_RANGE", rng.Message)
	case errors.As(err, &invalid):
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", invalid.Message)
	case errors.As(err, &violation):
		writeError(w, http.StatusBadRequest, "POLICY_VIOLATION", violation.Error())
	default:
		logging.Logger.WithError(err).Error("internal error")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// notFoundMessage renders "room" as "Room not found".
func notFoundMessage(entity string) string {
	if entity == "" {
		return "Not found"
	}
	return strings.ToUpper(entity[:1]) + entity[1:] + " not found"
}

// parseIntQuery reads an optional positive integer query parameter.
func parseIntQuery(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		writeError(w, http.StatusBadRequest, "INVALID_PARAM", fmt.Sprintf("%s must be a positive integer", name))
		return 0, false
	}
	return n, true
}

// parseTimeQuery reads an optional RFC 3339 query parameter. A nil time
// with ok true means the parameter was absent.
func parseTimeQuery(w http.ResponseWriter, r *http.Request, name string) (*time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_PARAM", fmt.Sprintf("%s must be an RFC 3339 time", name))
		return nil, false
	}
	return &t, true
}
