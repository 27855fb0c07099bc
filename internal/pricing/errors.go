package pricing

import "errors"

// ErrProviderUnavailable возвращается, если данные расписания или конфигурации
// не удалось получить. Результат с такой ошибкой не кэшируется; вызывающая
// сторона может повторить запрос позже.
var (
	ErrProviderUnavailable = errors.New("schedule provider unavailable")
	// ErrBatchTooLarge возвращается, если пакетный запрос превышает лимит позиций.
	ErrBatchTooLarge = errors.New("batch size exceeds limit")
	// ErrCalculation возвращается при некорректном внутреннем состоянии расчёта,
	// например отрицательной производной величине.
	ErrCalculation = errors.New("internal calculation error")
)
