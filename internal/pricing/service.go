package pricing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/MuhammadIbneRafiq/rehome-backend-sub001/internal/admission"
	"github.com/MuhammadIbneRafiq/rehome-backend-sub001/internal/cache"
	"github.com/MuhammadIbneRafiq/rehome-backend-sub001/internal/calendar"
	"github.com/MuhammadIbneRafiq/rehome-backend-sub001/internal/model"
	"github.com/MuhammadIbneRafiq/rehome-backend-sub001/internal/repository"
	"github.com/MuhammadIbneRafiq/rehome-backend-sub001/internal/validation"
)

// houseMovingItemFactor — фиксированный множитель оценки вещей для переезда
// целого дома относительно перевозки отдельных предметов.
const houseMovingItemFactor = 2.0

// earlyBookingHorizon — минимальный срок до первой даты заявки, начиная
// с которого действует скидка за раннее бронирование.
const earlyBookingHorizon = 14 * 24 * time.Hour

// Repository описывает контракт доступа к справочным данным, используемый сервисом.
type Repository interface {
	CityCharge(ctx context.Context, city string) (model.CityCharge, error)
	Cities(ctx context.Context) ([]string, error)
	UpdatePricingConfig(ctx context.Context, cfg model.PricingConfig) error
}

// Options содержит настройки сервиса расчёта.
type Options struct {
	BatchLimit int
	WarmupDays int
}

// Service реализует расчёт стоимости перевозок поверх кэша статусов
// и контроллера допуска.
type Service struct {
	repo       Repository
	cache      *cache.Cache
	gate       *admission.Controller
	batchLimit int
	warmupDays int
	now        func() time.Time
}

// NewService создаёт сервис расчёта стоимости.
func NewService(repo Repository, c *cache.Cache, gate *admission.Controller, opts Options) *Service {
	if opts.BatchLimit <= 0 {
		opts.BatchLimit = 10
	}
	if opts.WarmupDays <= 0 {
		opts.WarmupDays = 14
	}
	return &Service{
		repo:       repo,
		cache:      c,
		gate:       gate,
		batchLimit: opts.BatchLimit,
		warmupDays: opts.WarmupDays,
		now:        time.Now,
	}
}

// Calculate вычисляет стоимость одной заявки. Невалидные заявки отклоняются
// до постановки в очередь допуска; расчёт после получения слота выполняется
// синхронно, без промежуточных приостановок.
func (s *Service) Calculate(ctx context.Context, req *model.PricingRequest) (*model.PricingResult, error) {
	if err := validation.ValidateRequest(req); err != nil {
		return nil, err
	}

	if err := s.gate.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.gate.Release()

	return s.calculate(ctx, req)
}

// BatchItem содержит результат одной позиции пакетного запроса.
// Ошибка позиции не прерывает обработку остальных.
type BatchItem struct {
	Result *model.PricingResult `json:"result,omitempty"`
	Error  string               `json:"error,omitempty"`
}

// CalculateBatch обрабатывает до batchLimit заявок. Позиции выполняются
// параллельно, каждая проходит тот же контроль допуска, что и одиночный
// запрос; успех определяется для каждой позиции отдельно.
func (s *Service) CalculateBatch(ctx context.Context, reqs []model.PricingRequest) ([]BatchItem, error) {
	if len(reqs) > s.batchLimit {
		return nil, fmt.Errorf("%w: %d items, limit %d", ErrBatchTooLarge, len(reqs), s.batchLimit)
	}

	items := make([]BatchItem, len(reqs))

	var wg sync.WaitGroup
	for i := range reqs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := s.Calculate(ctx, &reqs[i])
			if err != nil {
				items[i].Error = err.Error()
				return
			}
			items[i].Result = res
		}(i)
	}
	wg.Wait()

	return items, nil
}

func (s *Service) calculate(ctx context.Context, req *model.PricingRequest) (*model.PricingResult, error) {
	cfg, err := s.cache.Config(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: pricing config: %v", ErrProviderUnavailable, err)
	}

	sameCity := strings.EqualFold(req.PickupCity, req.DropoffCity)

	pickupCharge, err := s.cityCharge(ctx, req.PickupCity, "pickup_city")
	if err != nil {
		return nil, err
	}
	dropoffCharge := pickupCharge
	if !sameCity {
		dropoffCharge, err = s.cityCharge(ctx, req.DropoffCity, "dropoff_city")
		if err != nil {
			return nil, err
		}
	}

	var (
		base      float64
		tier      string
		refDay    time.Time
		isCityDay bool
	)

	switch {
	case req.Date != "":
		day, _ := validation.ParseDate(req.Date)
		st, err := s.pairStatus(ctx, req.PickupCity, req.DropoffCity, day, sameCity)
		if err != nil {
			return nil, err
		}
		base, tier = SameDayPrice(st, pickupCharge, dropoffCharge, sameCity, req.ServiceType)
		refDay = day
		isCityDay = !st.IsBlocked && (st.PickupScheduled || st.DropoffScheduled)

	case req.DateRange != nil:
		start, _ := validation.ParseDate(req.DateRange.Start)
		end, _ := validation.ParseDate(req.DateRange.End)
		base, tier, err = FlexiblePrice(start, end, func(day time.Time) (model.DayStatus, error) {
			return s.pairStatus(ctx, req.PickupCity, req.DropoffCity, day, sameCity)
		}, pickupCharge, dropoffCharge, sameCity)
		if err != nil {
			return nil, err
		}
		refDay = start
		isCityDay = tier == model.TierCheap

	default:
		pickupDay, _ := validation.ParseDate(req.PickupDate)
		dropoffDay, _ := validation.ParseDate(req.DropoffDate)
		pst, err := s.pairStatus(ctx, req.PickupCity, req.DropoffCity, pickupDay, sameCity)
		if err != nil {
			return nil, err
		}
		dst, err := s.pairStatus(ctx, req.PickupCity, req.DropoffCity, dropoffDay, sameCity)
		if err != nil {
			return nil, err
		}
		base, tier = TwoDayPrice(pst, dst, pickupCharge, dropoffCharge, sameCity)
		refDay = pickupDay
		isCityDay = tier == model.TierCheap
	}

	if tier == model.TierBlocked {
		return &model.PricingResult{Tier: model.TierBlocked}, nil
	}

	return s.buildResult(req, cfg, base, tier, refDay, isCityDay, sameCity)
}

// buildResult собирает итоговую цену из базового тарифа и составляющих заявки.
func (s *Service) buildResult(req *model.PricingRequest, cfg model.PricingConfig, base float64, tier string, refDay time.Time, isCityDay, sameCity bool) (*model.PricingResult, error) {
	isWeekend := refDay.Weekday() == time.Saturday || refDay.Weekday() == time.Sunday

	basePrice := base
	if isWeekend {
		basePrice *= cfg.WeekendMultiplier
	}
	if isCityDay {
		basePrice *= cfg.CityDayMultiplier
	}

	var itemPoints float64
	var assemblyCount, totalQuantity int
	for _, it := range req.Items {
		itemPoints += it.Points * float64(it.Quantity)
		totalQuantity += it.Quantity
		if it.Assembly {
			assemblyCount += it.Quantity
		}
	}

	itemValue := itemPoints
	if req.ServiceType == model.ServiceHouseMoving {
		itemValue *= houseMovingItemFactor
	}

	var distanceCost float64
	if !sameCity {
		distanceCost = req.DistanceKm * cfg.DistanceRatePerKm
	}

	carryingCost := carryingSide(req.PickupFloor, req.PickupElevator, cfg) +
		carryingSide(req.DropoffFloor, req.DropoffElevator, cfg)

	assemblyCost := float64(assemblyCount) * cfg.AssemblyChargePerItem

	var helperCost float64
	if req.ExtraHelper {
		helperCost = float64(totalQuantity) * cfg.ExtraHelperChargePerItem
	}

	subtotal := basePrice + itemValue + distanceCost + carryingCost + assemblyCost + helperCost

	var studentDiscount float64
	if req.Student {
		studentDiscount = subtotal * cfg.StudentDiscount
	}

	var earlyDiscount float64
	if refDay.Sub(s.now()) >= earlyBookingHorizon {
		earlyDiscount = subtotal * cfg.EarlyBookingDiscount
	}

	total := subtotal - studentDiscount - earlyDiscount
	if total < cfg.MinimumCharge {
		total = cfg.MinimumCharge
	}
	if total < 0 || math.IsNaN(total) {
		return nil, fmt.Errorf("%w: total %v", ErrCalculation, total)
	}

	return &model.PricingResult{
		BasePrice:            round2(basePrice),
		ItemValue:            round2(itemValue),
		DistanceCost:         round2(distanceCost),
		CarryingCost:         round2(carryingCost),
		AssemblyCost:         round2(assemblyCost),
		ExtraHelperCost:      round2(helperCost),
		StudentDiscount:      round2(studentDiscount),
		EarlyBookingDiscount: round2(earlyDiscount),
		Subtotal:             round2(subtotal),
		Total:                round2(total),
		IsCityDay:            isCityDay,
		IsWeekend:            isWeekend,
		Tier:                 tier,
	}, nil
}

// carryingSide считает стоимость подъёма для одной стороны перевозки.
// Лифт снижает стоимость на коэффициент ElevatorDiscount.
func carryingSide(floors int, elevator bool, cfg model.PricingConfig) float64 {
	cost := float64(floors) * cfg.FloorChargePerLevel
	if elevator {
		cost *= cfg.ElevatorDiscount
	}
	return cost
}

func (s *Service) pairStatus(ctx context.Context, pickupCity, dropoffCity string, day time.Time, sameCity bool) (model.DayStatus, error) {
	ps, err := s.cache.Status(ctx, pickupCity, day)
	if err != nil {
		return model.DayStatus{}, fmt.Errorf("%w: status %s %s: %v", ErrProviderUnavailable, pickupCity, day.Format(model.DateLayout), err)
	}
	if sameCity {
		return calendar.Combine(ps, ps), nil
	}

	ds, err := s.cache.Status(ctx, dropoffCity, day)
	if err != nil {
		return model.DayStatus{}, fmt.Errorf("%w: status %s %s: %v", ErrProviderUnavailable, dropoffCity, day.Format(model.DateLayout), err)
	}
	return calendar.Combine(ps, ds), nil
}

func (s *Service) cityCharge(ctx context.Context, city, field string) (model.CityCharge, error) {
	charge, err := s.repo.CityCharge(ctx, city)
	if err != nil {
		if errors.Is(err, repository.ErrCityNotFound) {
			return model.CityCharge{}, &validation.Error{Field: field, Reason: fmt.Sprintf("unknown city %q", city)}
		}
		return model.CityCharge{}, fmt.Errorf("%w: city charge %s: %v", ErrProviderUnavailable, city, err)
	}
	return charge, nil
}

// WarmUpCache наполняет кэш статусами всех городов на горизонт прогрева.
func (s *Service) WarmUpCache(ctx context.Context) error {
	cities, err := s.repo.Cities(ctx)
	if err != nil {
		return fmt.Errorf("%w: cities: %v", ErrProviderUnavailable, err)
	}
	return s.cache.WarmUp(ctx, cities, s.now(), s.warmupDays)
}

// StartWarmup запускает фоновый прогрев кэша: сразу после старта и далее
// с указанным интервалом, пока не отменён контекст.
func (s *Service) StartWarmup(ctx context.Context, interval time.Duration) {
	go func() {
		_ = s.WarmUpCache(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = s.WarmUpCache(ctx)
			}
		}
	}()
}

// InvalidateCache сбрасывает кэш: одну запись, если указаны город и дата,
// иначе весь кэш целиком.
func (s *Service) InvalidateCache(city, date string) error {
	if city == "" && date == "" {
		s.cache.InvalidateAll()
		return nil
	}
	if city == "" || date == "" {
		return &validation.Error{Field: "city", Reason: "city and date must be set together"}
	}
	day, err := validation.ParseDate(date)
	if err != nil {
		return &validation.Error{Field: "date", Reason: "expected format " + model.DateLayout}
	}
	s.cache.Invalidate(city, day)
	return nil
}

// UpdateConfig сохраняет новую конфигурацию расчёта и явно сбрасывает её кэш,
// чтобы изменение стало видно немедленно.
func (s *Service) UpdateConfig(ctx context.Context, cfg model.PricingConfig) error {
	if err := validateConfig(cfg); err != nil {
		return err
	}
	if err := s.repo.UpdatePricingConfig(ctx, cfg); err != nil {
		return fmt.Errorf("%w: update config: %v", ErrProviderUnavailable, err)
	}
	s.cache.InvalidateConfig()
	return nil
}

func validateConfig(cfg model.PricingConfig) error {
	switch {
	case cfg.WeekendMultiplier <= 0:
		return &validation.Error{Field: "weekend_multiplier", Reason: "must be positive"}
	case cfg.CityDayMultiplier <= 0:
		return &validation.Error{Field: "city_day_multiplier", Reason: "must be positive"}
	case cfg.ElevatorDiscount <= 0 || cfg.ElevatorDiscount > 1:
		return &validation.Error{Field: "elevator_discount", Reason: "must be in (0, 1]"}
	case cfg.StudentDiscount < 0 || cfg.StudentDiscount >= 1:
		return &validation.Error{Field: "student_discount", Reason: "must be in [0, 1)"}
	case cfg.EarlyBookingDiscount < 0 || cfg.EarlyBookingDiscount >= 1:
		return &validation.Error{Field: "early_booking_discount", Reason: "must be in [0, 1)"}
	case cfg.FloorChargePerLevel < 0, cfg.AssemblyChargePerItem < 0, cfg.ExtraHelperChargePerItem < 0, cfg.DistanceRatePerKm < 0, cfg.MinimumCharge < 0:
		return &validation.Error{Field: "charges", Reason: "must not be negative"}
	}
	return nil
}

// Stats возвращает счётчики кэша и очереди допуска для мониторинга.
func (s *Service) Stats() model.CacheStats {
	hits, misses, size := s.cache.Stats()
	return model.CacheStats{
		Hits:        hits,
		Misses:      misses,
		Size:        size,
		QueueLength: s.gate.Waiting(),
		ActiveCount: s.gate.Active(),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
