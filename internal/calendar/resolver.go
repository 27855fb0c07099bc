// Package calendar разрешает статус дат по данным расписания и блокировок.
package calendar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MuhammadIbneRafiq/rehome-backend-sub001/internal/model"
)

// Provider описывает контракт чтения данных расписания, используемый резолвером.
type Provider interface {
	IsCityScheduled(ctx context.Context, city string, day time.Time) (bool, error)
	HasAnySchedule(ctx context.Context, day time.Time) (bool, error)
	BlockedEntries(ctx context.Context, from, to time.Time) ([]model.BlockedEntry, error)
}

// Resolver вычисляет статус города на дату из сырых данных поставщика.
type Resolver struct {
	provider Provider
}

// NewResolver создаёт резолвер над указанным поставщиком данных расписания.
func NewResolver(p Provider) *Resolver {
	return &Resolver{provider: p}
}

// CityStatus возвращает статус одного города на указанную дату.
// Блокировка проверяется первой: для заблокированной даты остальные флаги
// не вычисляются. Отсутствие записей расписания трактуется как
// «не запланировано, не заблокировано», а не как ошибка.
func (r *Resolver) CityStatus(ctx context.Context, city string, day time.Time) (model.CityDayStatus, error) {
	entries, err := r.provider.BlockedEntries(ctx, day, day)
	if err != nil {
		return model.CityDayStatus{}, fmt.Errorf("blocked entries: %w", err)
	}
	if cityBlocked(entries, city) {
		return model.CityDayStatus{Blocked: true}, nil
	}

	scheduled, err := r.provider.IsCityScheduled(ctx, city, day)
	if err != nil {
		return model.CityDayStatus{}, fmt.Errorf("city schedule: %w", err)
	}
	if scheduled {
		return model.CityDayStatus{Scheduled: true}, nil
	}

	any, err := r.provider.HasAnySchedule(ctx, day)
	if err != nil {
		return model.CityDayStatus{}, fmt.Errorf("day schedule: %w", err)
	}

	return model.CityDayStatus{Empty: !any}, nil
}

// cityBlocked проверяет, блокирует ли хотя бы одна запись указанный город.
// Запись с пустым списком городов блокирует все города. Сравнение названий
// регистронезависимое.
func cityBlocked(entries []model.BlockedEntry, city string) bool {
	for _, e := range entries {
		if len(e.Cities) == 0 {
			return true
		}
		for _, c := range e.Cities {
			if strings.EqualFold(c, city) {
				return true
			}
		}
	}
	return false
}

// Combine собирает статус пары городов из статусов каждого города на одну дату.
// Для заявок в пределах одного города оба аргумента совпадают.
func Combine(pickup, dropoff model.CityDayStatus) model.DayStatus {
	return model.DayStatus{
		PickupScheduled:  pickup.Scheduled,
		DropoffScheduled: dropoff.Scheduled,
		IsEmpty:          pickup.Empty && dropoff.Empty,
		IsBlocked:        pickup.Blocked || dropoff.Blocked,
	}
}
