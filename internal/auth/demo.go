package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/fairpay-app/fairpay-client-go/internal/models"
)

const (
	demoIssuer   = "fairpay-demo"
	demoTokenTTL = time.Hour

	demoUserID    = 1
	demoUserName  = "Usuário Demo"
	demoUserEmail = "demo@fairpay.com"
)

// demoClaims — полезная нагрузка локально подписанного демо-токена.
// Claim demo отличает синтетическую сессию от настоящей.
type demoClaims struct {
	Email string `json:"email"`
	Demo  bool   `json:"demo"`
	jwt.RegisteredClaims
}

// demoLogin выпускает локальную пару и сохраняет её в tokenstore.
func (s *Service) demoLogin(email string) (*models.LoginResponse, error) {
	const op = "auth.demoLogin"

	access, refresh, err := s.mintDemoPair(email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.tokens.SetTokens(access, refresh); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	u := demoUser()

	return &models.LoginResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         &u,
	}, nil
}

// mintDemoPair подписывает access-токен демо-секретом и выпускает
// случайный refresh. Пара выглядит как настоящая (три сегмента,
// живой exp), но пригодна только для локального UI.
func (s *Service) mintDemoPair(email string) (access, refresh string, err error) {
	now := time.Now().UTC()

	claims := demoClaims{
		Email: email,
		Demo:  true,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", demoUserID),
			Issuer:    demoIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(demoTokenTTL)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	access, err = token.SignedString([]byte(s.demo.Secret))
	if err != nil {
		return "", "", err
	}

	return access, "demo-refresh-" + uuid.NewString(), nil
}

// IsDemoToken — является ли токен локальной демо-сессией.
// Подпись не проверяется: важен только структурный признак.
func IsDemoToken(token string) bool {
	claims := demoClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}

	return claims.Demo
}

func demoUser() models.User {
	return models.User{
		ID:    demoUserID,
		Name:  demoUserName,
		Email: demoUserEmail,
	}
}
