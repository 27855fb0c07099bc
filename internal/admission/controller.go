// Package admission ограничивает число одновременно выполняемых расчётов
// и выстраивает избыточные запросы в очередь в порядке поступления.
package admission

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrQueueTimeout возвращается, если запрос прождал свободный слот дольше
// допустимого. Вызывающая сторона может повторить запрос позже.
var ErrQueueTimeout = errors.New("queue wait timeout")

// Controller выдаёт ограниченное число слотов на выполнение расчётов.
// Ожидающие запросы обслуживаются в порядке поступления; отменённый во время
// ожидания запрос покидает очередь, не получив слот.
type Controller struct {
	sem          *semaphore.Weighted
	queueTimeout time.Duration

	active  atomic.Int64
	waiting atomic.Int64
}

// NewController создаёт контроллер на maxConcurrent одновременных расчётов.
// Нулевой queueTimeout отключает ограничение времени ожидания в очереди.
func NewController(maxConcurrent int64, queueTimeout time.Duration) *Controller {
	return &Controller{
		sem:          semaphore.NewWeighted(maxConcurrent),
		queueTimeout: queueTimeout,
	}
}

// Acquire блокирует вызывающего до получения слота. Свободный слот выдаётся
// сразу; иначе запрос встаёт в FIFO-очередь семафора. Возвращает ошибку
// контекста при отмене ожидания и ErrQueueTimeout при его истечении.
func (c *Controller) Acquire(ctx context.Context) error {
	if c.sem.TryAcquire(1) {
		c.active.Add(1)
		return nil
	}

	c.waiting.Add(1)
	defer c.waiting.Add(-1)

	waitCtx := ctx
	if c.queueTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, c.queueTimeout)
		defer cancel()
	}

	if err := c.sem.Acquire(waitCtx, 1); err != nil {
		if errors.Is(waitCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return ErrQueueTimeout
		}
		return err
	}

	c.active.Add(1)
	return nil
}

// Release освобождает слот. Вызывается ровно один раз на успешный Acquire,
// независимо от исхода расчёта.
func (c *Controller) Release() {
	c.active.Add(-1)
	c.sem.Release(1)
}

// Active возвращает число занятых слотов.
func (c *Controller) Active() int64 {
	return c.active.Load()
}

// Waiting возвращает число запросов, ожидающих слот.
func (c *Controller) Waiting() int64 {
	return c.waiting.Load()
}
