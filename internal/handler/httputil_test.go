package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/propmanage/internal/billing"
	"github.com/matthewbaird/propmanage/internal/logging"
	"github.com/matthewbaird/propmanage/internal/policy"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logging.InitWithOutput(&buf, "debug", "")
	t.Cleanup(func() { logging.Logger.SetLevel(logrus.InfoLevel) })
	return &buf
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestWriteDomainError(t *testing.T) {
	captureLogs(t)
	over := policy.DepositLimit{MaxMonths: decimal.NewFromInt(2)}.Check(decimal.NewFromInt(1000), decimal.NewFromInt(3000))
	require.Error(t, over)

	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"not found", fmt.Errorf("creating lease: %w", billing.NotFound("room", 7)), http.StatusNotFound, "NOT_FOUND", "Room not found"},
		{"sentinel not found", fmt.Errorf("tenant 3 has no active lease: %w", billing.ErrNotFound), http.StatusNotFound, "NOT_FOUND", "tenant 3 has no active lease: not found"},
		{"state", billing.InvalidState("Room is not vacant"), http.StatusBadRequest, "INVALID_STATE", "Room is not vacant"},
		{"range", &billing.RangeError{Message: "End date must be after start date"}, http.StatusBadRequest, "INVALID_RANGE", "End date must be after start date"},
		{"validation", &billing.ValidationError{Field: "current_water", Message: "below last"}, http.StatusBadRequest, "VALIDATION_ERROR", "below last"},
		{"policy", over, http.StatusBadRequest, "POLICY_VIOLATION", over.Error()},
		{"internal", errors.New("disk on fire"), http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeDomainError(rec, tt.err)
			assert.Equal(t, tt.status, rec.Code)
			body := errorBody(t, rec)
			assert.Equal(t, tt.code, body["code"])
			assert.Equal(t, tt.message, body["error"])
		})
	}
}

func TestRequireLandlord(t *testing.T) {
	h := RequireLandlord(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Forbidden: Landlord access required", errorBody(t, rec)["error"])

	req.Header.Set("X-Role", "landlord")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestRequireTenant(t *testing.T) {
	var got int64
	h := RequireTenant(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = tenantIDFrom(r.Context())
	}))

	tests := []struct {
		header string
		status int
		msg    string
	}{
		{"", http.StatusBadRequest, "X-Tenant-Id header is required"},
		{"seven", http.StatusBadRequest, "X-Tenant-Id must be a positive integer"},
		{"0", http.StatusBadRequest, "X-Tenant-Id must be a positive integer"},
		{"-3", http.StatusBadRequest, "X-Tenant-Id must be a positive integer"},
		{"7", http.StatusOK, ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("X-Tenant-Id", tt.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, tt.status, rec.Code, tt.header)
		if tt.msg != "" {
			assert.Equal(t, tt.msg, errorBody(t, rec)["error"])
		}
	}
	assert.Equal(t, int64(7), got)
}

func TestRecovery(t *testing.T) {
	logs := captureLogs(t)
	h := Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", errorBody(t, rec)["code"])
	assert.Contains(t, logs.String(), "handler panicked")
}

func TestRequestLogger(t *testing.T) {
	logs := captureLogs(t)
	var seen string
	h := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/tenants", nil))

	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-Id"))
	assert.Contains(t, logs.String(), "status=201")
	assert.Contains(t, logs.String(), "path=/api/tenants")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "given")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "given", seen)
}

func TestDecodeAndValidate(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		ok     bool
		status int
	}{
		{"valid", `{"current_water_reading": 12.5, "current_elec_reading": "7"}`, true, 0},
		{"negative", `{"current_water_reading": -1, "current_elec_reading": 0}`, false, http.StatusUnprocessableEntity},
		{"malformed", `{"current_water_reading":`, false, http.StatusBadRequest},
		{"zero readings", `{"current_water_reading": 12.5, "current_elec_reading": 0}`, true, 0},
		{"missing water", `{"current_elec_reading": 7}`, false, http.StatusUnprocessableEntity},
		{"null elec", `{"current_water_reading": 12.5, "current_elec_reading": null}`, false, http.StatusUnprocessableEntity},
		{"empty body", `{}`, false, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req meterReadingRequest
			rec := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(tt.body))
			ok := decodeAndValidate(context.Background(), rec, r, &req)
			assert.Equal(t, tt.ok, ok)
			if !tt.ok {
				assert.Equal(t, tt.status, rec.Code)
			} else {
				assert.True(t, req.reading().Water.Equal(decimal.RequireFromString("12.5")))
			}
		})
	}
}

func TestLeaseRequestRequiresDates(t *testing.T) {
	var req createLeaseRequest
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"room_id":1,"tenant_id":1,"rent_amount":100}`))
	assert.False(t, decodeAndValidate(context.Background(), rec, r, &req))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, errorBody(t, rec)["error"], "start_date failed on required")
}

func TestParseTimeQuery(t *testing.T) {
	t.Run("absent", func(t *testing.T) {
		rec := httptest.NewRecorder()
		got, ok := parseTimeQuery(rec, httptest.NewRequest(http.MethodGet, "/feed", nil), "since")
		assert.True(t, ok)
		assert.Nil(t, got)
	})
	t.Run("valid", func(t *testing.T) {
		rec := httptest.NewRecorder()
		got, ok := parseTimeQuery(rec, httptest.NewRequest(http.MethodGet, "/feed?since=2024-02-01T00:00:00Z", nil), "since")
		require.True(t, ok)
		assert.Equal(t, 2024, got.Year())
	})
	t.Run("invalid", func(t *testing.T) {
		rec := httptest.NewRecorder()
		_, ok := parseTimeQuery(rec, httptest.NewRequest(http.MethodGet, "/feed?until=tomorrow", nil), "until")
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "until must be an RFC 3339 time")
	})
}
