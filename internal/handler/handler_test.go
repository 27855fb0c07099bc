package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/MuhammadIbneRafiq/rehome-backend-sub001/internal/admission"
	"github.com/MuhammadIbneRafiq/rehome-backend-sub001/internal/middleware"
	"github.com/MuhammadIbneRafiq/rehome-backend-sub001/internal/model"
	"github.com/MuhammadIbneRafiq/rehome-backend-sub001/internal/pricing"
	"github.com/MuhammadIbneRafiq/rehome-backend-sub001/internal/validation"
)

type stubService struct {
	calcRes  *model.PricingResult
	calcErr  error
	batch    []pricing.BatchItem
	batchErr error
	stats    model.CacheStats

	warmErr       error
	invalidateErr error
	updateErr     error

	gotConfig *model.PricingConfig
	gotCity   string
	gotDate   string
}

func (s *stubService) Calculate(ctx context.Context, req *model.PricingRequest) (*model.PricingResult, error) {
	return s.calcRes, s.calcErr
}

func (s *stubService) CalculateBatch(ctx context.Context, reqs []model.PricingRequest) ([]pricing.BatchItem, error) {
	return s.batch, s.batchErr
}

func (s *stubService) Stats() model.CacheStats {
	return s.stats
}

func (s *stubService) WarmUpCache(ctx context.Context) error {
	return s.warmErr
}

func (s *stubService) InvalidateCache(city, date string) error {
	s.gotCity, s.gotDate = city, date
	return s.invalidateErr
}

func (s *stubService) UpdateConfig(ctx context.Context, cfg model.PricingConfig) error {
	s.gotConfig = &cfg
	return s.updateErr
}

func newTestRouter(s Service) (http.Handler, *middleware.AuthMiddleware) {
	auth := middleware.NewAuthMiddleware("test-secret")
	limiter := middleware.NewRateLimiter(1000, 1000)
	h := NewHandler(s, zap.NewNop(), auth, limiter)
	return h.SetupRouter(), auth
}

func calculateBody(t *testing.T) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(model.PricingRequest{
		ServiceType: model.ServiceItemTransport,
		PickupCity:  "Eindhoven",
		DropoffCity: "Eindhoven",
		Date:        "2026-09-01",
	})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	return bytes.NewReader(body)
}

func TestHandler_Calculate_OK(t *testing.T) {
	svc := &stubService{calcRes: &model.PricingResult{Total: 186, Tier: model.TierCheap}}
	router, _ := newTestRouter(svc)

	r := httptest.NewRequest(http.MethodPost, "/api/pricing/calculate", calculateBody(t))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var res model.PricingResult
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.Total != 186 || res.Tier != model.TierCheap {
		t.Fatalf("result = %+v, want Total 186, Tier cheap", res)
	}
}

func TestHandler_Calculate_BadJSON(t *testing.T) {
	router, _ := newTestRouter(&stubService{})

	r := httptest.NewRequest(http.MethodPost, "/api/pricing/calculate", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHandler_Calculate_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation error", &validation.Error{Field: "date", Reason: "required"}, http.StatusBadRequest},
		{"queue timeout", admission.ErrQueueTimeout, http.StatusGatewayTimeout},
		{"provider unavailable", pricing.ErrProviderUnavailable, http.StatusServiceUnavailable},
		{"calculation error", pricing.ErrCalculation, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := newTestRouter(&stubService{calcErr: tt.err})

			r := httptest.NewRequest(http.MethodPost, "/api/pricing/calculate", calculateBody(t))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, r)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestHandler_CalculateBatch(t *testing.T) {
	svc := &stubService{batch: []pricing.BatchItem{
		{Result: &model.PricingResult{Total: 45}},
		{Error: "validation failed: pickup_city: required"},
	}}
	router, _ := newTestRouter(svc)

	body, _ := json.Marshal([]model.PricingRequest{{}, {}})
	r := httptest.NewRequest(http.MethodPost, "/api/pricing/batch", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var items []pricing.BatchItem
	if err := json.NewDecoder(w.Body).Decode(&items); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}
	if items[0].Result == nil || items[1].Error == "" {
		t.Fatalf("items = %+v, want first success, second failure", items)
	}
}

func TestHandler_CalculateBatch_TooLarge(t *testing.T) {
	router, _ := newTestRouter(&stubService{batchErr: pricing.ErrBatchTooLarge})

	r := httptest.NewRequest(http.MethodPost, "/api/pricing/batch", strings.NewReader("[]"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHandler_CacheStats(t *testing.T) {
	svc := &stubService{stats: model.CacheStats{Hits: 10, Misses: 3, Size: 7}}
	router, _ := newTestRouter(svc)

	r := httptest.NewRequest(http.MethodGet, "/api/pricing/cache/stats", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var stats model.CacheStats
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if stats.Hits != 10 || stats.Misses != 3 || stats.Size != 7 {
		t.Fatalf("stats = %+v, want hits 10, misses 3, size 7", stats)
	}
}

func TestHandler_Admin_RequiresAuth(t *testing.T) {
	router, _ := newTestRouter(&stubService{})

	for _, tc := range []struct{ method, path string }{
		{http.MethodPut, "/api/admin/config"},
		{http.MethodPost, "/api/admin/cache/warmup"},
		{http.MethodPost, "/api/admin/cache/invalidate"},
	} {
		r := httptest.NewRequest(tc.method, tc.path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: status = %d, want %d", tc.method, tc.path, w.Code, http.StatusUnauthorized)
		}
	}
}

func adminCookie(t *testing.T, auth *middleware.AuthMiddleware) *http.Cookie {
	t.Helper()
	w := httptest.NewRecorder()
	auth.SetAuthCookie(w, 1)
	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("no auth cookie set")
	}
	return cookies[0]
}

func TestHandler_UpdateConfig(t *testing.T) {
	svc := &stubService{}
	router, auth := newTestRouter(svc)

	cfg := model.PricingConfig{WeekendMultiplier: 1.25, MinimumCharge: 35}
	body, _ := json.Marshal(cfg)

	r := httptest.NewRequest(http.MethodPut, "/api/admin/config", bytes.NewReader(body))
	r.AddCookie(adminCookie(t, auth))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if svc.gotConfig == nil || svc.gotConfig.MinimumCharge != 35 {
		t.Fatalf("config not passed to service: %+v", svc.gotConfig)
	}
}

func TestHandler_UpdateConfig_Invalid(t *testing.T) {
	svc := &stubService{updateErr: &validation.Error{Field: "elevator_discount", Reason: "must be in (0, 1]"}}
	router, auth := newTestRouter(svc)

	r := httptest.NewRequest(http.MethodPut, "/api/admin/config", strings.NewReader("{}"))
	r.AddCookie(adminCookie(t, auth))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHandler_InvalidateCache(t *testing.T) {
	svc := &stubService{}
	router, auth := newTestRouter(svc)

	body := strings.NewReader(`{"city":"Eindhoven","date":"2026-09-01"}`)
	r := httptest.NewRequest(http.MethodPost, "/api/admin/cache/invalidate", body)
	r.AddCookie(adminCookie(t, auth))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if svc.gotCity != "Eindhoven" || svc.gotDate != "2026-09-01" {
		t.Fatalf("got city=%q date=%q, want Eindhoven/2026-09-01", svc.gotCity, svc.gotDate)
	}
}

func TestHandler_WarmUpCache(t *testing.T) {
	svc := &stubService{}
	router, auth := newTestRouter(svc)

	r := httptest.NewRequest(http.MethodPost, "/api/admin/cache/warmup", nil)
	r.AddCookie(adminCookie(t, auth))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusAccepted)
	}
}

func TestHandler_Health(t *testing.T) {
	router, _ := newTestRouter(&stubService{})

	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestHandler_UnknownRoute(t *testing.T) {
	router, _ := newTestRouter(&stubService{})

	r := httptest.NewRequest(http.MethodGet, "/api/unknown", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
