// session — явный объект сессии, создаваемый один раз при старте
// приложения. Держит текущего пользователя и флаг загрузки; переходы
// состояния: uninitialized -> loading -> {authenticated, anonymous}.
//
// Объект передаётся зависимостью, глобального состояния нет.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fairpay-app/fairpay-client-go/internal/auth"
	"github.com/fairpay-app/fairpay-client-go/internal/client"
	"github.com/fairpay-app/fairpay-client-go/internal/models"
	"github.com/fairpay-app/fairpay-client-go/internal/pkg/log"
	"github.com/fairpay-app/fairpay-client-go/internal/pkg/redact"
	"github.com/fairpay-app/fairpay-client-go/internal/tokenstore"
)

// State — состояние сессии.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateLoading       State = "loading"
	StateAuthenticated State = "authenticated"
	StateAnonymous     State = "anonymous"
)

const (
	defaultStartDelay    = 100 * time.Millisecond
	defaultLoginAttempts = 5
	defaultLoginBackoff  = time.Second
)

// placeholderName — имя пользователя-заглушки, когда профиль так и не
// удалось получить после свежего логина.
const placeholderName = "Usuário"

// Options — параметры жизненного цикла сессии.
type Options struct {
	// StartDelay — пауза перед первичной проверкой токенов, чтобы
	// остальная инициализация приложения успела завершиться.
	StartDelay time.Duration
	// LoginAttempts — сколько раз запрашивать профиль после логина.
	LoginAttempts int
	// LoginBackoff — база линейно растущей паузы между попытками.
	LoginBackoff time.Duration
}

type Session struct {
	auth   *auth.Service
	tokens *tokenstore.Store
	opts   Options

	// sleep подменяется в тестах.
	sleep func(ctx context.Context, d time.Duration) error

	mu    sync.RWMutex
	state State
	user  *models.User
}

// New создаёт сессию в состоянии uninitialized.
func New(authSvc *auth.Service, tokens *tokenstore.Store, opts Options) *Session {
	if opts.StartDelay <= 0 {
		opts.StartDelay = defaultStartDelay
	}
	if opts.LoginAttempts <= 0 {
		opts.LoginAttempts = defaultLoginAttempts
	}
	if opts.LoginBackoff <= 0 {
		opts.LoginBackoff = defaultLoginBackoff
	}

	return &Session{
		auth:   authSvc,
		tokens: tokens,
		opts:   opts,
		sleep:  sleepCtx,
		state:  StateUninitialized,
	}
}

// Init выполняет первичную проверку: после стартовой паузы смотрит
// tokenstore и при живом токене запрашивает профиль. Живой токен с
// успешным профилем даёт authenticated, всё остальное — anonymous.
func (s *Session) Init(ctx context.Context) error {
	const op = "session.Init"

	s.setLoading()

	if err := s.sleep(ctx, s.opts.StartDelay); err != nil {
		s.setAnonymous()
		return fmt.Errorf("%s: %w", op, err)
	}

	tok := s.tokens.AccessToken()
	if tok == "" || (!auth.IsDemoToken(tok) && tokenstore.IsExpired(tok)) {
		s.setAnonymous()
		return nil
	}

	user, err := s.auth.CurrentUser(ctx)
	if err != nil {
		// Бэкенд недоступен: токены целы, но показать пользователя нечем.
		log.From(ctx).Warn("session_init_lookup_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)

		s.setAnonymous()
		return nil
	}

	if user == nil {
		s.setAnonymous()
		return nil
	}

	s.setAuthenticated(user)
	return nil
}

// Login выполняет вход и дожидается профиля.
//
// Сразу после логина бэкенд может ещё не видеть свежую пару, поэтому
// профиль запрашивается до LoginAttempts раз с растущей паузой.
// Unauthorized прерывает цикл и всплывает; исчерпание попыток даёт
// пользователя-заглушку {0, "Usuário", email} вместо полупустой сессии.
func (s *Session) Login(ctx context.Context, email, password string) (*models.User, error) {
	const op = "session.Login"

	s.setLoading()

	resp, err := s.auth.Login(ctx, email, password)
	if err != nil {
		s.setAnonymous()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// Демо-логин локален, сетевой профиль запрашивать не у кого.
	if resp.User != nil && auth.IsDemoToken(resp.AccessToken) {
		s.setAuthenticated(resp.User)
		return resp.User, nil
	}

	lg := log.From(ctx)

	for attempt := 1; attempt <= s.opts.LoginAttempts; attempt++ {
		user, err := s.auth.FetchUser(ctx)
		if err == nil {
			s.setAuthenticated(user)
			return user, nil
		}

		if errors.Is(err, client.ErrUnauthorized) {
			s.setAnonymous()
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		lg.Warn("post_login_lookup_failed",
			slog.String("op", op),
			slog.String("email", redact.Email(email)),
			slog.Int("attempt", attempt),
			slog.String("err", err.Error()),
		)

		if attempt < s.opts.LoginAttempts {
			if err := s.sleep(ctx, time.Duration(attempt)*s.opts.LoginBackoff); err != nil {
				s.setAnonymous()
				return nil, fmt.Errorf("%s: %w", op, err)
			}
		}
	}

	placeholder := &models.User{ID: 0, Name: placeholderName, Email: email}
	s.setAuthenticated(placeholder)

	return placeholder, nil
}

// Logout завершает сессию. Пользователь сбрасывается безусловно, даже
// если отзыв на бэкенде не удался.
func (s *Session) Logout(ctx context.Context) error {
	const op = "session.Logout"

	err := s.auth.Logout(ctx)

	s.setAnonymous()

	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// User возвращает текущего пользователя либо nil.
func (s *Session) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Loading — идёт ли первичная проверка или логин.
func (s *Session) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == StateLoading
}

// IsAuthenticated — производный признак user != nil.
func (s *Session) IsAuthenticated() bool {
	return s.User() != nil
}

// State возвращает текущее состояние машины.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) setLoading() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateLoading
}

func (s *Session) setAuthenticated(u *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateAuthenticated
	s.user = u
}

func (s *Session) setAnonymous() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateAnonymous
	s.user = nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
