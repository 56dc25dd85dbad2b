package client

import (
	"context"
	"sync"
	"time"
)

// flightCache — дедупликация одинаковых GET-запросов.
//
// Ключ — метод|URL|тело. Запись живёт фиксированное окно от момента
// создания независимо от исхода запроса: конкурентные (и очень свежие
// повторные) одинаковые GET получают результат одного сетевого вызова.
// Часы инъектируются, вытеснение ленивое — тесты не ждут стенных часов.
type flightCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]*flightEntry
}

type flightEntry struct {
	created time.Time
	done    chan struct{}

	// Заполняются до закрытия done, после — только чтение.
	body []byte
	err  error
}

func newFlightCache(ttl time.Duration, now func() time.Time) *flightCache {
	return &flightCache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]*flightEntry),
	}
}

// do возвращает результат живой записи с тем же ключом либо выполняет fn,
// публикуя результат для конкурентных вызовов.
func (c *flightCache) do(ctx context.Context, key string, fn func() ([]byte, error)) ([]byte, error) {
	c.mu.Lock()
	c.evictLocked()

	if e, ok := c.entries[key]; ok {
		c.mu.Unlock()

		select {
		case <-e.done:
			return e.body, e.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	e := &flightEntry{created: c.now(), done: make(chan struct{})}
	c.entries[key] = e
	c.mu.Unlock()

	e.body, e.err = fn()
	close(e.done)

	return e.body, e.err
}

func (c *flightCache) evictLocked() {
	cutoff := c.now()
	for k, e := range c.entries {
		if cutoff.Sub(e.created) >= c.ttl {
			delete(c.entries, k)
		}
	}
}

// len — текущее число записей (для тестов).
func (c *flightCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}
