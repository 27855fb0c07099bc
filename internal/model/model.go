// Package model содержит доменные сущности сервиса расчёта стоимости перевозок.
package model

import "time"

// DateLayout — формат дат во входных запросах и ключах кэша.
const DateLayout = "2006-01-02"

// ServiceType описывает тип услуги перевозки.
type ServiceType string

const (
	ServiceItemTransport ServiceType = "item-transport"
	ServiceHouseMoving   ServiceType = "house-moving"
)

// CityCharge содержит тарифы города: сниженный тариф «городского дня» и обычный.
// Справочные данные, обновляются только внешним поставщиком.
type CityCharge struct {
	City         string
	CheapRate    float64
	StandardRate float64
}

// CityDayStatus описывает состояние одного города на конкретную дату.
// Scheduled и Empty взаимоисключающие: запланированный город означает непустой день.
type CityDayStatus struct {
	Scheduled bool
	Empty     bool
	Blocked   bool
}

// DayStatus описывает состояние даты для пары городов забора и доставки.
// IsBlocked имеет приоритет над остальными флагами во всех последующих решениях.
type DayStatus struct {
	PickupScheduled  bool
	DropoffScheduled bool
	IsEmpty          bool
	IsBlocked        bool
}

// BlockedEntry описывает заблокированную дату.
// Пустой список городов означает блокировку всех городов на эту дату.
type BlockedEntry struct {
	Date   time.Time
	Cities []string
}

// PricingConfig содержит глобальные множители и скидки расчёта стоимости.
type PricingConfig struct {
	WeekendMultiplier        float64 `json:"weekend_multiplier"`
	CityDayMultiplier        float64 `json:"city_day_multiplier"`
	FloorChargePerLevel      float64 `json:"floor_charge_per_level"`
	ElevatorDiscount         float64 `json:"elevator_discount"`
	AssemblyChargePerItem    float64 `json:"assembly_charge_per_item"`
	ExtraHelperChargePerItem float64 `json:"extra_helper_charge_per_item"`
	StudentDiscount          float64 `json:"student_discount"`
	EarlyBookingDiscount     float64 `json:"early_booking_discount"`
	DistanceRatePerKm        float64 `json:"distance_rate_per_km"`
	MinimumCharge            float64 `json:"minimum_charge"`
}

// Item описывает одну позицию перевозимых вещей.
type Item struct {
	Name     string  `json:"name"`
	Points   float64 `json:"points"`
	Quantity int     `json:"quantity"`
	Assembly bool    `json:"assembly"`
}

// DateRange задаёт гибкий диапазон дат, включительный с обеих сторон.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// PricingRequest описывает заявку на расчёт стоимости.
// Должен быть заполнен ровно один из вариантов дат: Date (фиксированная дата),
// DateRange (гибкий диапазон) либо пара PickupDate/DropoffDate (разные даты
// забора и доставки, только для item-transport).
type PricingRequest struct {
	ServiceType     ServiceType `json:"service_type"`
	PickupCity      string      `json:"pickup_city"`
	DropoffCity     string      `json:"dropoff_city"`
	Date            string      `json:"date,omitempty"`
	DateRange       *DateRange  `json:"date_range,omitempty"`
	PickupDate      string      `json:"pickup_date,omitempty"`
	DropoffDate     string      `json:"dropoff_date,omitempty"`
	Items           []Item      `json:"items,omitempty"`
	PickupFloor     int         `json:"pickup_floor"`
	DropoffFloor    int         `json:"dropoff_floor"`
	PickupElevator  bool        `json:"pickup_elevator"`
	DropoffElevator bool        `json:"dropoff_elevator"`
	ExtraHelper     bool        `json:"extra_helper"`
	Student         bool        `json:"student"`
	DistanceKm      float64     `json:"distance_km,omitempty"`
}

// Названия ценовых уровней в метаданных результата.
const (
	TierCheap    = "cheap"
	TierStandard = "standard"
	TierMixed    = "mixed"
	TierReduced  = "reduced"
	TierBlocked  = "blocked"
)

// PricingResult содержит составляющие стоимости и итоговую цену.
// Все денежные значения округлены до двух знаков. Нулевой Total с уровнем
// TierBlocked означает «дата недоступна», а не бесплатную перевозку.
type PricingResult struct {
	BasePrice            float64 `json:"base_price"`
	ItemValue            float64 `json:"item_value"`
	DistanceCost         float64 `json:"distance_cost"`
	CarryingCost         float64 `json:"carrying_cost"`
	AssemblyCost         float64 `json:"assembly_cost"`
	ExtraHelperCost      float64 `json:"extra_helper_cost"`
	StudentDiscount      float64 `json:"student_discount"`
	EarlyBookingDiscount float64 `json:"early_booking_discount"`
	Subtotal             float64 `json:"subtotal"`
	Total                float64 `json:"total"`
	IsCityDay            bool    `json:"is_city_day"`
	IsWeekend            bool    `json:"is_weekend"`
	Tier                 string  `json:"tier"`
}

// CacheStats содержит счётчики кэша и очереди допуска для мониторинга.
type CacheStats struct {
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Size        int   `json:"size"`
	QueueLength int64 `json:"queue_length"`
	ActiveCount int64 `json:"active_count"`
}
