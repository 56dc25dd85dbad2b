// Закрытая таксономия ошибок API-клиента.
//
// Вызывающий код различает ошибки только через errors.Is / errors.As,
// никогда — по подстрокам сообщений. Маппинг:
//   - ErrUnauthorized — 401 либо истекший/недействительный токен;
//   - ErrBackendOffline — соединение активно отклонено;
//   - ErrNetwork — прочие транспортные сбои после исчерпания ретраев;
//   - ErrInvalidResponse — непустое тело ответа не является валидным JSON;
//   - *HTTPError — любой другой не-2xx статус с сообщением сервера.
package client

import (
	"context"
	"errors"
	"fmt"
	"syscall"
)

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNetwork         = errors.New("network error")
	ErrBackendOffline  = errors.New("backend offline")
	ErrInvalidResponse = errors.New("invalid server response")
)

// HTTPError — не-2xx ответ бэкенда, не попавший в специальные категории.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("http %d: %s", e.Status, e.Message)
	}

	return fmt.Sprintf("http %d", e.Status)
}

// classifyTransport приводит транспортную ошибку к таксономии.
// Отмена контекста не маскируется: вызывающий различает свой же Cancel.
func classifyTransport(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("%w: %v", ErrBackendOffline, err)
	}

	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

// isTransport — подлежит ли ошибка ретраю.
func isTransport(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrBackendOffline)
}

// IsUnreachable — бэкенд недоступен (для решений о демо-фолбэке).
func IsUnreachable(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrBackendOffline)
}
