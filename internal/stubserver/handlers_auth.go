package stubserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/fairpay-app/fairpay-client-go/internal/models"
	apierrors "github.com/fairpay-app/fairpay-client-go/internal/stubserver/errors"
)

// issuePair выпускает пару токенов пользователю и регистрирует
// хэш refresh-токена в сторе.
func (s *Server) issuePair(u *storedUser) (*models.LoginResponse, error) {
	const op = "stubserver.issuePair"

	now := time.Now().UTC()

	access, err := s.tokens.generateAccessToken(u, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	refresh, hash, err := s.tokens.generateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.store.SaveRefresh(hash, u.ID, now.Add(s.tokens.refreshTTL))

	user := userModel(u)
	return &models.LoginResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         &user,
	}, nil
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in models.RegisterRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrInvalidArgument)
		return
	}

	u, err := s.store.CreateUser(in.Name, in.Email, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	out, err := s.issuePair(u)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in models.LoginRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrInvalidArgument)
		return
	}

	u, err := s.store.Authenticate(in.Email, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	out, err := s.issuePair(u)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var in models.RefreshRequest
	if err := decodeStrict(r, &in); err != nil || in.RefreshToken == "" {
		apierrors.WriteError(w, r, apierrors.ErrInvalidArgument)
		return
	}

	// Ротация: предъявленный токен снимается независимо от исхода.
	uid, err := s.store.ConsumeRefresh(hashRefreshToken(in.RefreshToken))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	u, err := s.store.UserByID(uid)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	pair, err := s.issuePair(u)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.RefreshResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var in models.LogoutRequest
	// Тело опционально: логаут без refresh-токена тоже успешен.
	_ = decodeStrict(r, &in)

	if in.RefreshToken != "" {
		s.store.RevokeRefresh(hashRefreshToken(in.RefreshToken))
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := s.authedUser(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, userModel(u))
}
