// Package validation содержит функции валидации входных данных.
package validation

import (
	"fmt"
	"time"

	"github.com/MuhammadIbneRafiq/rehome-backend-sub001/internal/model"
)

// Error описывает ошибку валидации заявки. Такие ошибки означают
// «исправьте запрос» и отклоняются до постановки заявки в очередь допуска.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Reason)
}

// ParseDate разбирает дату в формате model.DateLayout.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(model.DateLayout, s)
}

// ValidateRequest проверяет заявку на расчёт стоимости.
// Возвращает *Error с указанием поля и причины либо nil.
func ValidateRequest(req *model.PricingRequest) error {
	if req == nil {
		return &Error{Field: "request", Reason: "empty body"}
	}

	switch req.ServiceType {
	case model.ServiceItemTransport, model.ServiceHouseMoving:
	case "":
		return &Error{Field: "service_type", Reason: "required"}
	default:
		return &Error{Field: "service_type", Reason: fmt.Sprintf("unknown value %q", req.ServiceType)}
	}

	if req.PickupCity == "" {
		return &Error{Field: "pickup_city", Reason: "required"}
	}
	if req.DropoffCity == "" {
		return &Error{Field: "dropoff_city", Reason: "required"}
	}

	if err := validateDates(req); err != nil {
		return err
	}

	for i, it := range req.Items {
		if it.Quantity <= 0 {
			return &Error{Field: fmt.Sprintf("items[%d].quantity", i), Reason: "must be positive"}
		}
		if it.Points < 0 {
			return &Error{Field: fmt.Sprintf("items[%d].points", i), Reason: "must not be negative"}
		}
	}

	if req.PickupFloor < 0 {
		return &Error{Field: "pickup_floor", Reason: "must not be negative"}
	}
	if req.DropoffFloor < 0 {
		return &Error{Field: "dropoff_floor", Reason: "must not be negative"}
	}
	if req.DistanceKm < 0 {
		return &Error{Field: "distance_km", Reason: "must not be negative"}
	}

	return nil
}

func validateDates(req *model.PricingRequest) error {
	variants := 0
	if req.Date != "" {
		variants++
	}
	if req.DateRange != nil {
		variants++
	}
	if req.PickupDate != "" || req.DropoffDate != "" {
		variants++
	}
	if variants == 0 {
		return &Error{Field: "date", Reason: "one of date, date_range or pickup_date/dropoff_date is required"}
	}
	if variants > 1 {
		return &Error{Field: "date", Reason: "date, date_range and pickup_date/dropoff_date are mutually exclusive"}
	}

	switch {
	case req.Date != "":
		if _, err := ParseDate(req.Date); err != nil {
			return &Error{Field: "date", Reason: "expected format " + model.DateLayout}
		}

	case req.DateRange != nil:
		start, err := ParseDate(req.DateRange.Start)
		if err != nil {
			return &Error{Field: "date_range.start", Reason: "expected format " + model.DateLayout}
		}
		end, err := ParseDate(req.DateRange.End)
		if err != nil {
			return &Error{Field: "date_range.end", Reason: "expected format " + model.DateLayout}
		}
		if end.Before(start) {
			return &Error{Field: "date_range", Reason: "end must not precede start"}
		}

	default:
		if req.PickupDate == "" || req.DropoffDate == "" {
			return &Error{Field: "pickup_date", Reason: "pickup_date and dropoff_date must be set together"}
		}
		pd, err := ParseDate(req.PickupDate)
		if err != nil {
			return &Error{Field: "pickup_date", Reason: "expected format " + model.DateLayout}
		}
		dd, err := ParseDate(req.DropoffDate)
		if err != nil {
			return &Error{Field: "dropoff_date", Reason: "expected format " + model.DateLayout}
		}
		if !dd.After(pd) {
			return &Error{Field: "dropoff_date", Reason: "must be after pickup_date"}
		}
		if req.ServiceType == model.ServiceHouseMoving {
			return &Error{Field: "service_type", Reason: "house-moving does not support separate pickup and dropoff dates"}
		}
	}

	return nil
}
