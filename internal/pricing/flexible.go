package pricing

import (
	"fmt"
	"math"
	"time"

	"github.com/MuhammadIbneRafiq/rehome-backend-sub001/internal/model"
)

// wideRangeDays — ширина гибкого окна, начиная с которой диапазон считается
// заведомо разрешимым по сниженному тарифу и посуточный обход не выполняется.
const wideRangeDays = 7

// StatusFunc возвращает статус пары городов на указанную дату.
type StatusFunc func(day time.Time) (model.DayStatus, error)

// FlexiblePrice возвращает одну репрезентативную цену для гибкого диапазона
// дат [start, end] включительно. Функция не имеет внутреннего состояния:
// повторный вызов с теми же входными данными даёт тот же результат.
func FlexiblePrice(start, end time.Time, status StatusFunc, pickup, dropoff model.CityCharge, sameCity bool) (float64, string, error) {
	if end.Before(start) {
		return 0, "", fmt.Errorf("invalid range: end %s precedes start %s", end.Format(model.DateLayout), start.Format(model.DateLayout))
	}

	rangeDays := int(end.Sub(start).Hours()/24) + 1
	if rangeDays > wideRangeDays {
		if sameCity {
			return pickup.CheapRate, model.TierCheap, nil
		}
		return (pickup.CheapRate + dropoff.CheapRate) / 2, model.TierCheap, nil
	}

	found := false
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		st, err := status(day)
		if err != nil {
			return 0, "", err
		}
		if st.IsBlocked {
			continue
		}
		if sameCity {
			if st.PickupScheduled {
				found = true
				break
			}
			continue
		}
		if st.PickupScheduled && st.DropoffScheduled {
			found = true
			break
		}
	}

	if found {
		if sameCity {
			return pickup.CheapRate, model.TierCheap, nil
		}
		return (pickup.CheapRate + dropoff.CheapRate) / 2, model.TierCheap, nil
	}

	if sameCity {
		return pickup.StandardRate, model.TierStandard, nil
	}
	return math.Max(pickup.StandardRate, dropoff.StandardRate), model.TierStandard, nil
}
