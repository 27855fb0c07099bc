// Package pricing реализует бизнес-логику расчёта стоимости перевозок:
// ценовые уровни по статусу календаря, разрешение гибких диапазонов дат
// и итоговую сборку цены.
package pricing

import (
	"math"

	"github.com/MuhammadIbneRafiq/rehome-backend-sub001/internal/model"
)

// emptyDayFactor — понижающий коэффициент тарифа для полностью пустого дня.
const emptyDayFactor = 0.75

// SameDayPrice возвращает базовую цену и ценовой уровень для заявки,
// у которой забор и доставка происходят в один день.
// Для заблокированной даты возвращается нулевая цена-сигнал: вызывающая
// сторона обязана трактовать её как «дата недоступна».
func SameDayPrice(st model.DayStatus, pickup, dropoff model.CityCharge, sameCity bool, service model.ServiceType) (float64, string) {
	if st.IsBlocked {
		return 0, model.TierBlocked
	}

	if sameCity {
		switch {
		case st.PickupScheduled:
			return pickup.CheapRate, model.TierCheap
		case st.IsEmpty:
			return pickup.StandardRate * emptyDayFactor, model.TierReduced
		default:
			return pickup.StandardRate, model.TierStandard
		}
	}

	switch {
	case st.PickupScheduled && st.DropoffScheduled:
		return (pickup.CheapRate + dropoff.CheapRate) / 2, model.TierCheap
	case st.PickupScheduled:
		return (pickup.CheapRate + dropoff.StandardRate) / 2, model.TierMixed
	case st.DropoffScheduled:
		return (pickup.StandardRate + dropoff.CheapRate) / 2, model.TierMixed
	case st.IsEmpty:
		// Формулы пустого дня у двух типов услуг исторически различаются,
		// расхождение зафиксировано владельцем бизнес-правил.
		if service == model.ServiceHouseMoving {
			return math.Max(pickup.StandardRate, dropoff.StandardRate) * emptyDayFactor, model.TierReduced
		}
		return (pickup.StandardRate + dropoff.StandardRate) / 2, model.TierReduced
	default:
		return math.Max(pickup.StandardRate, dropoff.StandardRate), model.TierStandard
	}
}

// TwoDayPrice возвращает базовую цену для заявки с разными датами забора
// и доставки (только item-transport). pickupDay — статус даты забора,
// dropoffDay — статус даты доставки.
func TwoDayPrice(pickupDay, dropoffDay model.DayStatus, pickup, dropoff model.CityCharge, sameCity bool) (float64, string) {
	if pickupDay.IsBlocked || dropoffDay.IsBlocked {
		return 0, model.TierBlocked
	}

	if sameCity {
		onPickupDay := pickupDay.PickupScheduled
		onDropoffDay := dropoffDay.PickupScheduled
		switch {
		case onPickupDay && onDropoffDay:
			return pickup.CheapRate, model.TierCheap
		case onPickupDay || onDropoffDay:
			return (pickup.CheapRate + pickup.StandardRate) / 2, model.TierMixed
		case pickupDay.IsEmpty && dropoffDay.IsEmpty:
			return pickup.StandardRate * emptyDayFactor, model.TierReduced
		default:
			return pickup.StandardRate, model.TierStandard
		}
	}

	pickupSide := pickupDay.PickupScheduled
	dropoffSide := dropoffDay.DropoffScheduled
	switch {
	case pickupSide && dropoffSide:
		return (pickup.CheapRate + dropoff.CheapRate) / 2, model.TierCheap
	case pickupSide:
		return (pickup.CheapRate + dropoff.StandardRate) / 2, model.TierMixed
	case dropoffSide:
		return (pickup.StandardRate + dropoff.CheapRate) / 2, model.TierMixed
	case pickupDay.IsEmpty && dropoffDay.IsEmpty:
		return (pickup.StandardRate + dropoff.StandardRate) / 2, model.TierReduced
	default:
		return math.Max(pickup.StandardRate, dropoff.StandardRate), model.TierStandard
	}
}
