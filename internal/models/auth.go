package models

// LoginRequest — вход по email+пароль.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest — регистрация нового пользователя.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse — пара токенов, выдаваемая при входе/регистрации.
// User присутствует не во всех версиях бэкенда.
type LoginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType,omitempty"`
	User         *User  `json:"user,omitempty"`
}

// RefreshRequest — обновление пары по refresh-токену.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshResponse — новая пара токенов.
type RefreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// LogoutRequest — best-effort отзыв refresh-токена на бэкенде.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken,omitempty"`
}
