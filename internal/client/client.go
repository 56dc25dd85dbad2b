// client — HTTP-клиент бэкенда FairPay.
//
// Обязанности:
//   - резолв эндпойнта относительно базового URL, заголовки по умолчанию;
//   - Bearer-авторизация по полной живой паре токенов из tokenstore
//     (заголовок Authorization контролирует только клиент);
//   - ретраи транспортных сбоев с линейным бэкоффом;
//   - дедупликация одинаковых конкурентных GET-запросов;
//   - приведение сбоев к закрытой таксономии ошибок (см. errors.go).
//
// HTTP-статусы ретраям не подлежат; 401 на авторизованном вызове снимает
// локальную пару токенов.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fairpay-app/fairpay-client-go/internal/pkg/log"
	"github.com/fairpay-app/fairpay-client-go/internal/tokenstore"
)

const (
	defaultTimeout  = 15 * time.Second
	defaultAttempts = 3
	defaultBackoff  = 500 * time.Millisecond
	defaultCacheTTL = time.Second
)

// Options — параметры сборки клиента. Нулевые значения заменяются дефолтами.
type Options struct {
	BaseURL  string
	Timeout  time.Duration
	Attempts int
	Backoff  time.Duration
	CacheTTL time.Duration

	// HTTPClient — транспорт для тестов; nil — собственный http.Client.
	HTTPClient *http.Client
}

type Client struct {
	baseURL  string
	httpc    *http.Client
	tokens   *tokenstore.Store
	attempts int
	backoff  time.Duration
	flight   *flightCache

	// Хуки для тестов.
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// New создаёт клиент поверх tokenstore.
func New(tokens *tokenstore.Store, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Attempts <= 0 {
		opts.Attempts = defaultAttempts
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaultBackoff
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}

	httpc := opts.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: opts.Timeout}
	}

	now := time.Now

	return &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		httpc:    httpc,
		tokens:   tokens,
		attempts: opts.Attempts,
		backoff:  opts.Backoff,
		flight:   newFlightCache(opts.CacheTTL, now),
		sleep:    sleepCtx,
		now:      now,
	}
}

// Get — авторизованный GET с дедупликацией конкурентных повторов.
func (c *Client) Get(ctx context.Context, endpoint string, out any) error {
	return c.call(ctx, http.MethodGet, endpoint, nil, out, true, true)
}

// Post — авторизованный POST.
func (c *Client) Post(ctx context.Context, endpoint string, in, out any) error {
	return c.Request(ctx, http.MethodPost, endpoint, in, out)
}

// Request — авторизованный вызов: при живой паре токенов добавляется
// Authorization: Bearer, 401 снимает локальные токены. В отличие от Get
// дедупликации нет — каждый вызов уходит в сеть.
func (c *Client) Request(ctx context.Context, method, endpoint string, in, out any) error {
	return c.call(ctx, method, endpoint, in, out, true, false)
}

// RequestPublic — вызов без авторизации: Authorization не добавляется,
// 401 не трогает локальные токены.
func (c *Client) RequestPublic(ctx context.Context, method, endpoint string, in, out any) error {
	return c.call(ctx, method, endpoint, in, out, false, false)
}

func (c *Client) call(ctx context.Context, method, endpoint string, in, out any, authorized, dedup bool) error {
	const op = "client.call"

	// Клиент без базового URL не может выполнить вызов — сразу сетевая ошибка.
	if c.baseURL == "" {
		return fmt.Errorf("%s: no base url: %w", op, ErrNetwork)
	}

	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
	}

	url := c.baseURL + endpoint

	var raw []byte
	var err error
	if dedup {
		key := method + "|" + url + "|" + string(payload)
		raw, err = c.flight.do(ctx, key, func() ([]byte, error) {
			return c.send(ctx, method, url, payload, authorized)
		})
	} else {
		raw, err = c.send(ctx, method, url, payload, authorized)
	}
	if err != nil {
		return fmt.Errorf("%s: %s %s: %w", op, method, endpoint, err)
	}

	return decodeInto(raw, out)
}

// send — один логический вызов с ретраями транспортных сбоев.
// Пауза между попытками линейно растёт: attempt × backoff.
func (c *Client) send(ctx context.Context, method, url string, payload []byte, authorized bool) ([]byte, error) {
	lg := log.From(ctx)

	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		body, err := c.once(ctx, method, url, payload, authorized)
		if err == nil {
			return body, nil
		}

		if !isTransport(err) {
			return nil, err
		}

		lastErr = err
		if attempt < c.attempts {
			lg.Warn("transport_retry",
				slog.String("method", method),
				slog.Int("attempt", attempt),
				slog.String("err", err.Error()),
			)

			if serr := c.sleep(ctx, time.Duration(attempt)*c.backoff); serr != nil {
				return nil, serr
			}
		}
	}

	return nil, lastErr
}

// once — единичный сетевой вызов без ретраев.
func (c *Client) once(ctx context.Context, method, url string, payload []byte, authorized bool) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if authorized {
		// Частичная пара (один токен без второго) для авторизации
		// эквивалентна отсутствию пары.
		if tok, _, ok := c.tokens.Pair(); ok && !tokenstore.IsExpired(tok) {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	// Тело читается ровно один раз.
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(err)
	}

	if resp.StatusCode == http.StatusUnauthorized && authorized {
		// Сессия недействительна: локальная пара снимается здесь же,
		// чтобы любой следующий вызов ушёл неавторизованным.
		_ = c.tokens.RemoveTokens()
		return nil, ErrUnauthorized
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &HTTPError{Status: resp.StatusCode, Message: serverMessage(raw)}
	}

	if len(bytes.TrimSpace(raw)) > 0 && !json.Valid(raw) {
		return nil, fmt.Errorf("%w: %.80s", ErrInvalidResponse, raw)
	}

	return raw, nil
}

// decodeInto разбирает тело ответа в out; пустое тело оставляет out как есть.
func decodeInto(raw []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	return nil
}

// serverMessage достаёт message из тела ошибки, если бэкенд его прислал.
func serverMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}

	return body.Message
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
