// apierrors стандартизирует ответы об ошибках HTTP-слоя стаб-бэкенда.
// На вход — доменная ошибка (сентинелы ниже), на выход — корректный
// HTTP-статус и плоское тело {"message": ...}: именно такую форму
// разбирает клиент FairPay.
package apierrors

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Доменные сентинелы стаба. Хендлеры и стор оборачивают их через
// fmt.Errorf("%s: %w", op, err); маппинг идёт по errors.Is.
var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrTokenExpired       = errors.New("token expired")
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInviteExpired      = errors.New("invite expired")
)

// APIError — единый формат ошибки для клиента.
// Message — безопасное человекочитаемое описание; Code — короткий
// стабильный код; RequestID прокидывается из X-Request-Id.
type APIError struct {
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// ToHTTP конвертирует доменную ошибку в HTTP-статус и тело ответа.
// nil и незнакомые ошибки дают 500/internal без утечки деталей.
func ToHTTP(err error) (int, APIError) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, APIError{Code: "internal", Message: "internal error"}
	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest, APIError{Code: "invalid_argument", Message: "invalid argument"}
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized, APIError{Code: "invalid_credentials", Message: "invalid credentials"}
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized, APIError{Code: "unauthenticated", Message: "unauthenticated"}
	case errors.Is(err, ErrTokenExpired):
		return http.StatusUnauthorized, APIError{Code: "token_expired", Message: "token expired"}
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, APIError{Code: "not_found", Message: "not found"}
	case errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict, APIError{Code: "already_exists", Message: "already exists"}
	case errors.Is(err, ErrInviteExpired):
		return http.StatusGone, APIError{Code: "invite_expired", Message: "invite expired"}
	default:
		return http.StatusInternalServerError, APIError{Code: "internal", Message: "internal error"}
	}
}

// WriteError — хелпер для хендлеров: пишет статус и плоское JSON-тело,
// добавляя request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
