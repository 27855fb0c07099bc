// Package cache мемоизирует дорогие обращения к данным календаря
// и чтение конфигурации расчёта стоимости.
package cache

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MuhammadIbneRafiq/rehome-backend-sub001/internal/model"
)

// StatusLoader вычисляет статус города на дату при промахе кэша.
type StatusLoader func(ctx context.Context, city string, day time.Time) (model.CityDayStatus, error)

// ConfigLoader читает актуальную конфигурацию расчёта при промахе кэша.
type ConfigLoader func(ctx context.Context) (model.PricingConfig, error)

type statusEntry struct {
	status    model.CityDayStatus
	expiresAt time.Time
}

// Cache хранит статусы (город, дата) с TTL и конфигурацию расчёта.
// Конфигурация не устаревает по времени: она сбрасывается явно при
// административной записи. Ошибка загрузки никогда не попадает в кэш.
type Cache struct {
	mu       sync.RWMutex
	statuses map[string]statusEntry
	config   *model.PricingConfig

	ttl time.Duration
	now func() time.Time

	hits   atomic.Int64
	misses atomic.Int64

	loadStatus StatusLoader
	loadConfig ConfigLoader
}

// New создаёт кэш с указанным TTL статусов и загрузчиками значений.
func New(ttl time.Duration, loadStatus StatusLoader, loadConfig ConfigLoader) *Cache {
	return &Cache{
		statuses:   make(map[string]statusEntry),
		ttl:        ttl,
		now:        time.Now,
		loadStatus: loadStatus,
		loadConfig: loadConfig,
	}
}

func statusKey(city string, day time.Time) string {
	return strings.ToLower(city) + "|" + day.Format(model.DateLayout)
}

// Status возвращает статус города на дату: из кэша, если запись не устарела,
// иначе через загрузчик с сохранением результата.
func (c *Cache) Status(ctx context.Context, city string, day time.Time) (model.CityDayStatus, error) {
	key := statusKey(city, day)

	c.mu.RLock()
	e, ok := c.statuses[key]
	c.mu.RUnlock()

	if ok && c.now().Before(e.expiresAt) {
		c.hits.Add(1)
		return e.status, nil
	}

	c.misses.Add(1)

	st, err := c.loadStatus(ctx, city, day)
	if err != nil {
		return model.CityDayStatus{}, err
	}

	c.mu.Lock()
	c.statuses[key] = statusEntry{status: st, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()

	return st, nil
}

// Config возвращает конфигурацию расчёта, загружая её при первом обращении
// и после явного сброса.
func (c *Cache) Config(ctx context.Context) (model.PricingConfig, error) {
	c.mu.RLock()
	cfg := c.config
	c.mu.RUnlock()

	if cfg != nil {
		c.hits.Add(1)
		return *cfg, nil
	}

	c.misses.Add(1)

	loaded, err := c.loadConfig(ctx)
	if err != nil {
		return model.PricingConfig{}, err
	}

	c.mu.Lock()
	c.config = &loaded
	c.mu.Unlock()

	return loaded, nil
}

// InvalidateConfig сбрасывает кэшированную конфигурацию. Вызывается после
// каждой административной записи конфигурации.
func (c *Cache) InvalidateConfig() {
	c.mu.Lock()
	c.config = nil
	c.mu.Unlock()
}

// Invalidate удаляет запись статуса для одной пары (город, дата).
func (c *Cache) Invalidate(city string, day time.Time) {
	c.mu.Lock()
	delete(c.statuses, statusKey(city, day))
	c.mu.Unlock()
}

// InvalidateAll очищает весь кэш, включая конфигурацию.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.statuses = make(map[string]statusEntry)
	c.config = nil
	c.mu.Unlock()
}

// WarmUp заранее наполняет кэш статусами всех указанных городов на days дней
// вперёд, начиная с from, чтобы избежать всплеска задержек на холодном старте.
func (c *Cache) WarmUp(ctx context.Context, cities []string, from time.Time, days int) error {
	for offset := 0; offset < days; offset++ {
		day := from.AddDate(0, 0, offset)
		for _, city := range cities {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, err := c.Status(ctx, city, day); err != nil {
				return err
			}
		}
	}
	return nil
}

// Stats возвращает счётчики попаданий, промахов и число записей.
func (c *Cache) Stats() (hits, misses int64, size int) {
	c.mu.RLock()
	size = len(c.statuses)
	if c.config != nil {
		size++
	}
	c.mu.RUnlock()

	return c.hits.Load(), c.misses.Load(), size
}
