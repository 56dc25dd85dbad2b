// stubserver — локальный стаб-бэкенд FairPay: полный HTTP/JSON
// контракт клиента поверх хранилища в памяти. Предназначен для
// разработки и интеграционных тестов клиента; данные живут до
// перезапуска процесса.
package stubserver

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fairpay-app/fairpay-client-go/internal/config"
	apierrors "github.com/fairpay-app/fairpay-client-go/internal/stubserver/errors"
	"github.com/fairpay-app/fairpay-client-go/internal/stubserver/middleware"
)

type Server struct {
	cfg    config.StubConfig
	log    *slog.Logger
	store  *store
	tokens *tokenIssuer
}

// New создаёт сервер со свежим хранилищем и засеянным демо-пользователем.
func New(cfg config.StubConfig, logger *slog.Logger) (*Server, error) {
	st, err := newStore()
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		cfg:    cfg,
		log:    logger,
		store:  st,
		tokens: newTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL),
	}, nil
}

// Router собирает http.Handler с chi и подключёнными middleware/роутами.
func (s *Server) Router() http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),
		middleware.RequestID(),
		middleware.Logging(s.log),
		middleware.AuthBearer(),
	)
	if s.cfg.RequestTimeout > 0 {
		root.Use(middleware.Timeout(s.cfg.RequestTimeout))
	}

	api := chi.NewRouter()
	s.registerRoutes(api)
	root.Mount("/api", api)

	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func (s *Server) registerRoutes(r chi.Router) {
	// auth
	r.Post("/auth/register", s.handleRegister)
	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/refresh", s.handleRefresh)
	r.Post("/auth/logout", s.handleLogout)

	// users
	r.Get("/users/me", s.handleMe)

	// groups
	r.Get("/groups", s.handleListGroups)
	r.Post("/groups", s.handleCreateGroup)
	r.Get("/groups/join/{token}", s.handleJoinGroup)
	r.Get("/groups/{id}", s.handleGroupByID)
	r.Get("/groups/{id}/members", s.handleGroupMembers)
	r.Get("/groups/{id}/expenses", s.handleGroupExpenses)
	r.Post("/groups/{id}/invite-link", s.handleInviteLink)
	r.Post("/groups/{id}/payments", s.handleCreatePayment)

	// expenses
	r.Post("/expenses", s.handleCreateExpense)
	r.Get("/expenses/group/{id}", s.handleGroupExpenses)
}

// authedUser достаёт Bearer-токен из контекста (см. middleware.AuthBearer),
// проверяет его и возвращает владельца.
func (s *Server) authedUser(r *http.Request) (*storedUser, error) {
	const op = "stubserver.authedUser"

	tok, _ := r.Context().Value(middleware.CtxAuthToken).(string)
	if tok == "" {
		return nil, fmt.Errorf("%s: %w", op, apierrors.ErrUnauthenticated)
	}

	uid, _, err := s.tokens.validateAccessToken(tok)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.store.UserByID(uid)
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}
