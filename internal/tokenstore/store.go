// tokenstore хранит пару токенов FairPay в локальном JSON-файле —
// аналог localStorage браузерного клиента.
//
// Инварианты:
//   - access и refresh всегда записываются и удаляются вместе;
//   - частичное состояние (один токен без второго) считается отсутствием
//     пары с точки зрения авторизации (см. Pair).
package tokenstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Фиксированные ключи хранилища, совместимые с веб-клиентом.
const (
	AccessTokenKey  = "fairpay_access_token"
	RefreshTokenKey = "fairpay_refresh_token"
)

// Store — файловое хранилище пары токенов.
// Экземпляр безопасен для конкурентного использования.
type Store struct {
	mu   sync.Mutex
	path string
}

// New создаёт хранилище поверх файла path.
func New(path string) *Store {
	return &Store{path: path}
}

// DefaultPath — путь по умолчанию в каталоге конфигурации пользователя.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("tokenstore: user config dir: %w", err)
	}

	return filepath.Join(dir, "fairpay", "tokens.json"), nil
}

// AccessToken возвращает access-токен или "" при его отсутствии.
func (s *Store) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.read()[AccessTokenKey]
}

// RefreshToken возвращает refresh-токен или "" при его отсутствии.
func (s *Store) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.read()[RefreshTokenKey]
}

// Pair возвращает пару токенов; ok=false, если хотя бы один отсутствует.
func (s *Store) Pair() (access, refresh string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.read()
	access, refresh = m[AccessTokenKey], m[RefreshTokenKey]
	if access == "" || refresh == "" {
		return "", "", false
	}

	return access, refresh, true
}

// SetTokens записывает оба токена.
func (s *Store) SetTokens(access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.read()
	m[AccessTokenKey] = access
	m[RefreshTokenKey] = refresh

	return s.write(m)
}

// RemoveTokens удаляет оба токена; идемпотентна.
func (s *Store) RemoveTokens() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.read()
	if _, okA := m[AccessTokenKey]; !okA {
		if _, okR := m[RefreshTokenKey]; !okR {
			return nil
		}
	}

	delete(m, AccessTokenKey)
	delete(m, RefreshTokenKey)

	return s.write(m)
}

// read читает файл хранилища; отсутствующий или битый файл — пустая карта.
func (s *Store) read() map[string]string {
	m := map[string]string{}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		return m
	}

	if err := json.Unmarshal(raw, &m); err != nil {
		return map[string]string{}
	}

	return m
}

func (s *Store) write(m map[string]string) error {
	const op = "tokenstore.write"

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	// Токены — секреты: файл доступен только владельцу.
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
