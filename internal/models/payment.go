package models

// PaymentRequest — ручной платёж между участниками группы.
type PaymentRequest struct {
	FromUserID  int64   `json:"fromUserId"`
	ToUserID    int64   `json:"toUserId"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date,omitempty"`
	Description string  `json:"description,omitempty"`
}

// Payment — зарегистрированный платёж.
type Payment struct {
	ID          int64     `json:"id"`
	GroupID     int64     `json:"groupId"`
	From        PersonRef `json:"from"`
	To          PersonRef `json:"to"`
	Amount      float64   `json:"amount"`
	Date        string    `json:"date"`
	Description string    `json:"description,omitempty"`
	CreatedAt   string    `json:"createdAt"`
}
