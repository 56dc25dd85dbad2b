package tokenstore

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// IsExpired сообщает, истёк ли access-токен.
// Токен разбирается без проверки подписи: клиент не знает секрета бэкенда,
// его интересует только claim exp. Любой некорректный токен (не три сегмента,
// битый base64/JSON, отсутствующий exp) считается истёкшим — ошибка наружу
// не выходит, пользователь просто проходит повторную аутентификацию.
func IsExpired(token string) bool {
	return expiresWithin(token, 0)
}

// NearExpiry — true, если exp наступит в пределах margin от текущего момента.
func NearExpiry(token string, margin time.Duration) bool {
	return expiresWithin(token, margin)
}

func expiresWithin(token string, margin time.Duration) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return true
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}

	return !time.Now().Add(margin).Before(exp.Time)
}
