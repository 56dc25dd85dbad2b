// auth — клиентская сторона аутентификации FairPay: логин/логаут,
// текущий пользователь и обновление пары токенов поверх API-клиента
// и tokenstore.
//
// Сервис не хранит состояние запроса; экземпляр безопасен для
// конкурентного использования.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/fairpay-app/fairpay-client-go/internal/client"
	"github.com/fairpay-app/fairpay-client-go/internal/models"
	"github.com/fairpay-app/fairpay-client-go/internal/pkg/log"
	"github.com/fairpay-app/fairpay-client-go/internal/pkg/redact"
	"github.com/fairpay-app/fairpay-client-go/internal/tokenstore"
)

// DemoMode — офлайн/демо-режим: при недоступном бэкенде Login выпускает
// локально подписанную пару. Синтетическая пара — не доказательство
// личности, а способ не ронять UI на демонстрации.
type DemoMode struct {
	Enabled bool
	Secret  string
}

type Service struct {
	api    *client.Client
	tokens *tokenstore.Store
	demo   DemoMode
}

// New создаёт сервис аутентификации.
func New(api *client.Client, tokens *tokenstore.Store, demo DemoMode) *Service {
	return &Service{
		api:    api,
		tokens: tokens,
		demo:   demo,
	}
}

// Login выполняет вход и сохраняет пару токенов.
// При недоступном бэкенде и включённом демо-режиме выпускается
// локальная пара (см. demo.go); с выключенным — ошибка всплывает.
func (s *Service) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	const op = "auth.Login"

	lg := log.From(ctx)

	var resp models.LoginResponse
	err := s.api.RequestPublic(ctx, http.MethodPost, "/api/auth/login",
		models.LoginRequest{Email: email, Password: password}, &resp)
	if err == nil {
		if err := s.tokens.SetTokens(resp.AccessToken, resp.RefreshToken); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		return &resp, nil
	}

	if s.demo.Enabled && client.IsUnreachable(err) {
		lg.Warn("login_demo_fallback",
			slog.String("op", op),
			slog.String("email", redact.Email(email)),
			slog.String("err", err.Error()),
		)

		return s.demoLogin(email)
	}

	return nil, fmt.Errorf("%s: %w", op, err)
}

// Register регистрирует пользователя и сохраняет выданную пару.
func (s *Service) Register(ctx context.Context, name, email, password string) (*models.LoginResponse, error) {
	const op = "auth.Register"

	var resp models.LoginResponse
	err := s.api.RequestPublic(ctx, http.MethodPost, "/api/auth/register",
		models.RegisterRequest{Name: name, Email: email, Password: password}, &resp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.tokens.SetTokens(resp.AccessToken, resp.RefreshToken); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &resp, nil
}

// Logout best-effort отзывает refresh-токен на бэкенде и всегда
// снимает локальную пару.
func (s *Service) Logout(ctx context.Context) error {
	const op = "auth.Logout"

	var req models.LogoutRequest
	if rt := s.tokens.RefreshToken(); rt != "" {
		req.RefreshToken = rt
	}

	if err := s.api.Post(ctx, "/api/auth/logout", req, nil); err != nil {
		log.From(ctx).Warn("logout_remote_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
	}

	if err := s.tokens.RemoveTokens(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// CurrentUser возвращает текущего пользователя либо nil, nil для
// анонимного состояния.
//
// Поведение:
//   - нет полной пары токенов или access-токен истёк - nil без
//     сетевого вызова (частичная пара считается отсутствующей);
//   - демо-токен - фиксированный демо-пользователь без сетевого вызова;
//   - 401 - токены уже сняты клиентом, nil;
//   - бэкенд недоступен - ошибка всплывает: вызывающий сам решает,
//     повторять ли, вместо тихой де-авторизации;
//   - любой другой сбой - токены снимаются, nil.
func (s *Service) CurrentUser(ctx context.Context) (*models.User, error) {
	const op = "auth.CurrentUser"

	tok, _, ok := s.tokens.Pair()
	if !ok {
		return nil, nil
	}

	if IsDemoToken(tok) {
		u := demoUser()
		return &u, nil
	}

	if tokenstore.IsExpired(tok) {
		return nil, nil
	}

	user, err := s.FetchUser(ctx)
	if err != nil {
		if client.IsUnreachable(err) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		if !errors.Is(err, client.ErrUnauthorized) {
			_ = s.tokens.RemoveTokens()
		}

		log.From(ctx).Warn("current_user_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)

		return nil, nil
	}

	return user, nil
}

// FetchUser запрашивает профиль напрямую, без политики подавления
// CurrentUser: ошибка всплывает как есть. Нужен циклу дозапроса
// профиля после логина, которому важно отличать 401 от переходного
// сбоя. Идёт мимо GET-кэша: повторная попытка должна увидеть свежий
// ответ бэкенда, а не кэшированную ошибку предыдущей.
func (s *Service) FetchUser(ctx context.Context) (*models.User, error) {
	const op = "auth.FetchUser"

	var user models.User
	if err := s.api.Request(ctx, http.MethodGet, "/api/users/me", nil, &user); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &user, nil
}

// RefreshAccessToken обновляет пару по refresh-токену.
// Возвращает новый access-токен; "" без ошибки — пары нет либо
// обновление не удалось (токены при этом сняты).
func (s *Service) RefreshAccessToken(ctx context.Context) (string, error) {
	const op = "auth.RefreshAccessToken"

	rt := s.tokens.RefreshToken()
	if rt == "" {
		return "", nil
	}

	var resp models.RefreshResponse
	err := s.api.RequestPublic(ctx, http.MethodPost, "/api/auth/refresh",
		models.RefreshRequest{RefreshToken: rt}, &resp)
	if err != nil {
		log.From(ctx).Warn("refresh_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)

		_ = s.tokens.RemoveTokens()

		return "", nil
	}

	if err := s.tokens.SetTokens(resp.AccessToken, resp.RefreshToken); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return resp.AccessToken, nil
}
