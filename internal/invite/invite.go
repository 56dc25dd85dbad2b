// invite — работа со ссылками-приглашениями на стороне клиента:
// извлечение токена из ссылки бэкенда, сборка фронтенд-ссылки и
// строгая проверка токена перед отправкой на сервер.
package invite

import (
	"regexp"
	"strings"
)

const minTokenLen = 10

var tokenPattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// ExtractToken возвращает последний сегмент пути ссылки-приглашения.
// Извлечение нестрогое: форму токена проверяет ValidateToken.
func ExtractToken(link string) string {
	link = strings.TrimRight(strings.TrimSpace(link), "/")
	if link == "" {
		return ""
	}

	// Хвост после query/fragment токеном не является.
	if i := strings.IndexAny(link, "?#"); i >= 0 {
		link = link[:i]
	}

	if i := strings.LastIndex(link, "/"); i >= 0 {
		return link[i+1:]
	}

	return link
}

// FrontendURL собирает пользовательскую ссылку /invite/{token} поверх
// базового адреса фронтенда из ссылки бэкенда.
func FrontendURL(frontendBase, backendLink string) string {
	token := ExtractToken(backendLink)
	if token == "" {
		return ""
	}

	return strings.TrimRight(frontendBase, "/") + "/invite/" + token
}

// ValidateToken — пригоден ли токен для отправки на бэкенд.
func ValidateToken(token string) bool {
	return len(token) >= minTokenLen && tokenPattern.MatchString(token)
}
