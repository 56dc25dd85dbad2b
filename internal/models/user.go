package models

// User — аутентифицированный пользователь FairPay.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
