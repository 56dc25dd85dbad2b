package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/fairpay-app/fairpay-client-go/internal/tokenstore"
)

func newTokens(t *testing.T) *tokenstore.Store {
	t.Helper()
	return tokenstore.New(filepath.Join(t.TempDir(), "tokens.json"))
}

// liveToken — валидный HS256-токен с exp в будущем.
func liveToken(t *testing.T) string {
	t.Helper()

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := tok.SignedString([]byte("unit-secret"))
	require.NoError(t, err)
	return signed
}

// noSleep — мгновенный «сон» между ретраями.
func noSleep(context.Context, time.Duration) error { return nil }

func newClient(t *testing.T, tokens *tokenstore.Store, baseURL string) *Client {
	t.Helper()
	c := New(tokens, Options{BaseURL: baseURL})
	c.sleep = noSleep
	return c
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestGet_AttachesBearerForLiveToken(t *testing.T) {
	t.Parallel()

	tokens := newTokens(t)
	access := liveToken(t)
	require.NoError(t, tokens.SetTokens(access, "r"))

	var gotAuth, gotCT string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCT = r.Header.Get("Content-Type")
		_, _ = w.Write([]byte(`{"id":7,"name":"A","email":"a@x.com"}`))
	}))
	defer srv.Close()

	c := newClient(t, tokens, srv.URL)

	var out struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, c.Get(context.Background(), "/api/users/me", &out))
	require.Equal(t, int64(7), out.ID)
	require.Equal(t, "Bearer "+access, gotAuth)
	require.Equal(t, "application/json", gotCT)
}

func TestGet_NoBearerForExpiredOrMissingToken(t *testing.T) {
	t.Parallel()

	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	// Нет токена.
	tokens := newTokens(t)
	c := newClient(t, tokens, srv.URL)
	require.NoError(t, c.Get(context.Background(), "/api/groups", nil))
	require.Empty(t, gotAuth)

	// Малформированный токен эквивалентен истекшему.
	require.NoError(t, tokens.SetTokens("h.p.s", "r"))
	c2 := newClient(t, tokens, srv.URL)
	require.NoError(t, c2.Get(context.Background(), "/api/groups-2", nil))
	require.Empty(t, gotAuth)
}

// Частичная пара (живой access без refresh) для авторизации
// эквивалентна отсутствию пары: Bearer не добавляется.
func TestGet_NoBearerForPartialPair(t *testing.T) {
	t.Parallel()

	tokens := newTokens(t)
	require.NoError(t, tokens.SetTokens(liveToken(t), ""))

	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := newClient(t, tokens, srv.URL)
	require.NoError(t, c.Get(context.Background(), "/api/groups", nil))
	require.Empty(t, gotAuth)
}

func TestRequestPublic_NeverAttachesBearer(t *testing.T) {
	t.Parallel()

	tokens := newTokens(t)
	require.NoError(t, tokens.SetTokens(liveToken(t), "r"))

	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newClient(t, tokens, srv.URL)
	require.NoError(t, c.RequestPublic(context.Background(), http.MethodPost, "/api/auth/login", map[string]string{"email": "a@x.com"}, nil))
	require.Empty(t, gotAuth)
}

// Два конкурентных одинаковых GET сворачиваются в один сетевой вызов.
func TestGet_DeduplicatesConcurrentIdenticalRequests(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		_, _ = w.Write([]byte(`[{"id":1,"name":"g","totalExpenses":0,"membersCount":1}]`))
	}))
	defer srv.Close()

	c := newClient(t, newTokens(t), srv.URL)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var out []map[string]any
			errs[i] = c.Get(context.Background(), "/api/groups", &out)
		}(i)
	}

	// Даём обоим вызовам дойти до кэша, затем отпускаем сервер.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.Equal(t, int32(1), calls.Load())
}

// Request не дедуплицирует GET: мгновенный повтор уходит в сеть,
// а не получает кэшированный результат первого вызова.
func TestRequest_GetBypassesDedupCache(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, `{"message":"not ready"}`, http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"id":7}`))
	}))
	defer srv.Close()

	c := newClient(t, newTokens(t), srv.URL)

	require.Error(t, c.Request(context.Background(), http.MethodGet, "/api/users/me", nil, nil))

	var out struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, c.Request(context.Background(), http.MethodGet, "/api/users/me", nil, &out))
	require.Equal(t, int64(7), out.ID)
	require.Equal(t, int32(2), calls.Load())
}

func TestRequest_401ClearsTokensAndTagsUnauthorized(t *testing.T) {
	t.Parallel()

	tokens := newTokens(t)
	require.NoError(t, tokens.SetTokens(liveToken(t), "r"))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"expired"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newClient(t, tokens, srv.URL)
	err := c.Get(context.Background(), "/api/users/me", nil)
	require.ErrorIs(t, err, ErrUnauthorized)

	require.Empty(t, tokens.AccessToken())
	require.Empty(t, tokens.RefreshToken())
}

// 401 на публичном вызове — обычная HTTP-ошибка, токены не трогаются.
func TestRequestPublic_401KeepsTokens(t *testing.T) {
	t.Parallel()

	tokens := newTokens(t)
	require.NoError(t, tokens.SetTokens(liveToken(t), "r"))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"bad credentials"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newClient(t, tokens, srv.URL)
	err := c.RequestPublic(context.Background(), http.MethodPost, "/api/auth/login", nil, nil)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusUnauthorized, httpErr.Status)
	require.Equal(t, "bad credentials", httpErr.Message)
	require.NotErrorIs(t, err, ErrUnauthorized)

	require.NotEmpty(t, tokens.AccessToken())
}

// HTTP 500 не ретраится и всплывает сразу.
func TestRequest_HTTPErrorNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newClient(t, newTokens(t), srv.URL)
	err := c.Post(context.Background(), "/api/expenses", map[string]string{}, nil)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusInternalServerError, httpErr.Status)
	require.Equal(t, "boom", httpErr.Message)
	require.Equal(t, int32(1), calls.Load())
}

// Транспортный сбой ретраится до 3 попыток, затем NETWORK_ERROR.
func TestRequest_TransportFailureRetriedThreeTimes(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	httpc := &http.Client{Transport: roundTripperFunc(func(*http.Request) (*http.Response, error) {
		calls.Add(1)
		return nil, syscall.ETIMEDOUT
	})}

	c := New(newTokens(t), Options{BaseURL: "http://backend.invalid", HTTPClient: httpc})
	c.sleep = noSleep

	err := c.Get(context.Background(), "/api/groups", nil)
	require.ErrorIs(t, err, ErrNetwork)
	require.Equal(t, int32(3), calls.Load())
}

// Сбой на первых двух попытках не фатален, если третья успешна.
func TestRequest_TransientFailureRecovered(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	base := http.DefaultTransport
	httpc := &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		if calls.Add(1) <= 2 {
			return nil, syscall.ETIMEDOUT
		}
		return base.RoundTrip(r)
	})}

	c := New(newTokens(t), Options{BaseURL: srv.URL, HTTPClient: httpc})
	c.sleep = noSleep

	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, c.Get(context.Background(), "/x", &out))
	require.True(t, out.OK)
	require.Equal(t, int32(3), calls.Load())
}

// Отклонённое соединение — BACKEND_OFFLINE.
func TestRequest_ConnectionRefusedTaggedOffline(t *testing.T) {
	t.Parallel()

	httpc := &http.Client{Transport: roundTripperFunc(func(*http.Request) (*http.Response, error) {
		return nil, syscall.ECONNREFUSED
	})}

	c := New(newTokens(t), Options{BaseURL: "http://backend.invalid", HTTPClient: httpc})
	c.sleep = noSleep

	err := c.Get(context.Background(), "/api/groups", nil)
	require.ErrorIs(t, err, ErrBackendOffline)
	require.True(t, IsUnreachable(err))
}

func TestRequest_InvalidJSONBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	c := newClient(t, newTokens(t), srv.URL)
	err := c.Get(context.Background(), "/api/groups", nil)
	require.ErrorIs(t, err, ErrInvalidResponse)
}

func TestRequest_EmptyBodyIsNotAnError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newClient(t, newTokens(t), srv.URL)
	require.NoError(t, c.Post(context.Background(), "/api/auth/logout", nil, nil))
}

// Клиент без базового URL отказывает сразу, не выходя в сеть.
func TestRequest_NoBaseURLFailsFast(t *testing.T) {
	t.Parallel()

	c := New(newTokens(t), Options{})
	err := c.Get(context.Background(), "/api/groups", nil)
	require.ErrorIs(t, err, ErrNetwork)
}
