package syncevent

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Event — single-producer/single-consumer одноразовый сигнал.
type Event struct {
	ch   chan Fired
	once sync.Once
	set  atomic.Bool

	// waiting — Wait сейчас выполняется; observed — сигнал уже получен.
	waiting  atomic.Bool
	observed atomic.Bool
}

// New создаёт несработавшее событие.
func New() *Event {
	return &Event{ch: make(chan Fired, 1)}
}

// Fired — доказательство того, что событие наблюдалось.
// Нулевое значение невалидно; получить валидный токен можно только из Wait.
type Fired struct {
	at  time.Time
	err error
	ok  bool
}

// Valid возвращает true для токена, полученного из Wait.
func (f Fired) Valid() bool {
	return f.ok
}

// At возвращает момент срабатывания события.
func (f Fired) At() time.Time {
	return f.at
}

// Err возвращает ошибку, с которой сработало событие
// (statement worker-а отклонён). Nil — statement принят.
func (f Fired) Err() error {
	return f.err
}

// Set поднимает событие. err != nil означает, что worker не смог
// отправить операцию. Возвращает false, если событие уже было поднято.
func (e *Event) Set(err error) bool {
	fired := false
	e.once.Do(func() {
		e.set.Store(true)
		e.ch <- Fired{at: time.Now(), err: err, ok: true}
		fired = true
	})
	return fired
}

// IsSet возвращает true, если событие поднято.
func (e *Event) IsSet() bool {
	return e.set.Load()
}

// Wait блокируется до срабатывания события или отмены ctx.
//
// Возвращает:
//   - Fired, nil — событие получено (проверьте Fired.Err)
//   - ErrAlreadyObserved — событие уже получено или ждёт другой наблюдатель
//   - ctx.Err() — ctx отменён; событие остаётся доступным
func (e *Event) Wait(ctx context.Context) (Fired, error) {
	if e.observed.Load() || !e.waiting.CompareAndSwap(false, true) {
		return Fired{}, ErrAlreadyObserved
	}
	defer e.waiting.Store(false)

	select {
	case f := <-e.ch:
		e.observed.Store(true)
		return f, nil
	case <-ctx.Done():
		return Fired{}, ctx.Err()
	}
}

// WaitTimeout — Wait, ограниченный d. По истечении возвращает ErrTimeout.
func (e *Event) WaitTimeout(ctx context.Context, d time.Duration) (Fired, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	f, err := e.Wait(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		return Fired{}, ErrTimeout
	}
	return f, err
}
