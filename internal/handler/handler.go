// Package handler содержит HTTP-обработчики API сервиса расчёта стоимости.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/MuhammadIbneRafiq/rehome-backend-sub001/internal/admission"
	"github.com/MuhammadIbneRafiq/rehome-backend-sub001/internal/middleware"
	"github.com/MuhammadIbneRafiq/rehome-backend-sub001/internal/model"
	"github.com/MuhammadIbneRafiq/rehome-backend-sub001/internal/pricing"
	"github.com/MuhammadIbneRafiq/rehome-backend-sub001/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Calculate(ctx context.Context, req *model.PricingRequest) (*model.PricingResult, error)
	CalculateBatch(ctx context.Context, reqs []model.PricingRequest) ([]pricing.BatchItem, error)
	Stats() model.CacheStats
	WarmUpCache(ctx context.Context) error
	InvalidateCache(city, date string) error
	UpdateConfig(ctx context.Context, cfg model.PricingConfig) error
}

// Handler реализует HTTP-обработчики API сервиса расчёта стоимости.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	rateLimiter    *middleware.RateLimiter
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, limiter *middleware.RateLimiter) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		rateLimiter:    limiter,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response error", zap.Error(err))
	}
}

// writeError переводит ошибку бизнес-логики в HTTP-статус. Ошибки валидации
// возвращаются клиенту с текстом причины, прочие — без деталей.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		http.Error(w, verr.Error(), http.StatusBadRequest)
	case errors.Is(err, pricing.ErrBatchTooLarge):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, admission.ErrQueueTimeout):
		http.Error(w, http.StatusText(http.StatusGatewayTimeout), http.StatusGatewayTimeout)
	case errors.Is(err, pricing.ErrProviderUnavailable):
		h.logger.Error("provider unavailable", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
	default:
		h.logger.Error("internal error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// Calculate рассчитывает стоимость одной заявки.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req model.PricingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	res, err := h.service.Calculate(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, res)
}

// CalculateBatch рассчитывает стоимость пакета заявок. Ошибка отдельной
// позиции не влияет на статус ответа: результат каждой позиции возвращается
// в её элементе массива.
func (h *Handler) CalculateBatch(w http.ResponseWriter, r *http.Request) {
	var reqs []model.PricingRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	items, err := h.service.CalculateBatch(r.Context(), reqs)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, items)
}

// CacheStats возвращает счётчики кэша и очереди допуска.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.Stats())
}

// WarmUpCache запускает прогрев кэша по требованию администратора.
// Прогрев выполняется в фоне и не привязан к времени жизни запроса.
func (h *Handler) WarmUpCache(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())
	go func() {
		if err := h.service.WarmUpCache(ctx); err != nil {
			h.logger.Error("cache warmup error", zap.Error(err))
		}
	}()
	w.WriteHeader(http.StatusAccepted)
}

type invalidateRequest struct {
	City string `json:"city"`
	Date string `json:"date"`
}

// InvalidateCache сбрасывает кэш целиком либо одну запись (город, дата).
func (h *Handler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	var req invalidateRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
	}
	defer r.Body.Close()

	if err := h.service.InvalidateCache(req.City, req.Date); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateConfig сохраняет новую конфигурацию расчёта.
func (h *Handler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var cfg model.PricingConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if err := h.service.UpdateConfig(r.Context(), cfg); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Health отвечает на проверку живости сервиса.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
