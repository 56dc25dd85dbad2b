package stubserver

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apierrors "github.com/fairpay-app/fairpay-client-go/internal/stubserver/errors"
)

const tokenIssuerName = "fairpay-stub"

type accessClaims struct {
	UserID int64  `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// tokenIssuer выпускает и проверяет пары токенов стаба: HS256
// access-токен и случайный refresh, который хранится только хэшем.
type tokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func newTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) *tokenIssuer {
	return &tokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// generateAccessToken подписывает access-токен пользователя.
func (ti *tokenIssuer) generateAccessToken(u *storedUser, now time.Time) (string, error) {
	const op = "stubserver.token.generateAccessToken"

	claims := accessClaims{
		UserID: u.ID,
		Email:  u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuerName,
			Subject:   strconv.FormatInt(u.ID, 10),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ti.secret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// validateAccessToken проверяет подпись и срок access-токена.
func (ti *tokenIssuer) validateAccessToken(tokenStr string) (int64, string, error) {
	const op = "stubserver.token.validateAccessToken"

	token, err := jwt.ParseWithClaims(tokenStr, &accessClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, fmt.Errorf("%s: %w", op, apierrors.ErrUnauthenticated)
			}

			return ti.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(5*time.Second),
		jwt.WithIssuer(tokenIssuerName),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, "", fmt.Errorf("%s: %w", op, apierrors.ErrTokenExpired)
		}

		return 0, "", fmt.Errorf("%s: %w", op, apierrors.ErrUnauthenticated)
	}

	claims, ok := token.Claims.(*accessClaims)
	if !ok || !token.Valid {
		return 0, "", fmt.Errorf("%s: %w", op, apierrors.ErrUnauthenticated)
	}

	return claims.UserID, claims.Email, nil
}

// generateRefreshToken выпускает случайный refresh-токен.
// Возвращает и сам токен (уходит клиенту), и его sha256-хэш (остаётся
// в сторе).
func (ti *tokenIssuer) generateRefreshToken() (plain, hash string, err error) {
	const op = "stubserver.token.generateRefreshToken"

	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}

	plain = base64.RawURLEncoding.EncodeToString(b)
	return plain, hashRefreshToken(plain), nil
}

func hashRefreshToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
