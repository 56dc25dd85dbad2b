package client

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeClock — управляемые часы для проверки вытеснения без ожидания.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestFlightCache_SharesResultWithinTTL(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{t: time.Unix(1000, 0)}
	fc := newFlightCache(time.Second, clock.now)

	calls := 0
	fn := func() ([]byte, error) {
		calls++
		return []byte(`{"n":1}`), nil
	}

	ctx := context.Background()
	body, err := fc.do(ctx, "GET|/x|", fn)
	require.NoError(t, err)
	require.JSONEq(t, `{"n":1}`, string(body))

	// Повтор внутри окна — без нового вызова.
	body, err = fc.do(ctx, "GET|/x|", fn)
	require.NoError(t, err)
	require.JSONEq(t, `{"n":1}`, string(body))
	require.Equal(t, 1, calls)
}

func TestFlightCache_EvictsAfterTTL(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{t: time.Unix(1000, 0)}
	fc := newFlightCache(time.Second, clock.now)

	calls := 0
	fn := func() ([]byte, error) {
		calls++
		return []byte(`{}`), nil
	}

	ctx := context.Background()
	_, err := fc.do(ctx, "k", fn)
	require.NoError(t, err)
	require.Equal(t, 1, fc.len())

	clock.advance(time.Second)

	_, err = fc.do(ctx, "k", fn)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

// Запись вытесняется по TTL независимо от исхода — ошибка не кэшируется дольше окна.
func TestFlightCache_ErrorAlsoExpires(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{t: time.Unix(1000, 0)}
	fc := newFlightCache(time.Second, clock.now)

	boom := []error{ErrNetwork, nil}
	calls := 0
	fn := func() ([]byte, error) {
		err := boom[calls]
		calls++
		return []byte(`{}`), err
	}

	ctx := context.Background()
	_, err := fc.do(ctx, "k", fn)
	require.ErrorIs(t, err, ErrNetwork)

	// Внутри окна — та же ошибка без нового вызова.
	_, err = fc.do(ctx, "k", fn)
	require.ErrorIs(t, err, ErrNetwork)
	require.Equal(t, 1, calls)

	clock.advance(2 * time.Second)

	_, err = fc.do(ctx, "k", fn)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestFlightCache_DifferentKeysIndependent(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{t: time.Unix(1000, 0)}
	fc := newFlightCache(time.Second, clock.now)

	calls := 0
	fn := func() ([]byte, error) {
		calls++
		return nil, nil
	}

	ctx := context.Background()
	_, _ = fc.do(ctx, "GET|/a|", fn)
	_, _ = fc.do(ctx, "GET|/b|", fn)
	require.Equal(t, 2, calls)
}

func TestFlightCache_ConcurrentCallersCollapse(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{t: time.Unix(1000, 0)}
	fc := newFlightCache(time.Second, clock.now)

	started := make(chan struct{})
	release := make(chan struct{})
	calls := 0
	fn := func() ([]byte, error) {
		calls++
		close(started)
		<-release
		return []byte(`{"ok":true}`), nil
	}

	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([][]byte, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = fc.do(ctx, "k", fn)
	}()

	<-started

	wg.Add(1)
	go func() {
		defer wg.Done()
		// fn уже в полёте: второй вызов обязан дождаться его результата.
		results[1], _ = fc.do(ctx, "k", func() ([]byte, error) {
			t.Error("second network call issued for identical in-flight GET")
			return nil, nil
		})
	}()

	// Небольшая пауза, чтобы второй вызов встал в ожидание.
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, 1, calls)
	require.JSONEq(t, `{"ok":true}`, string(results[0]))
	require.JSONEq(t, `{"ok":true}`, string(results[1]))
}

func TestFlightCache_WaiterRespectsContext(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{t: time.Unix(1000, 0)}
	fc := newFlightCache(time.Second, clock.now)

	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_, _ = fc.do(context.Background(), "k", func() ([]byte, error) {
			close(started)
			<-release
			return nil, nil
		})
	}()

	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fc.do(ctx, "k", func() ([]byte, error) { return nil, nil })
	require.ErrorIs(t, err, context.Canceled)

	close(release)
}
