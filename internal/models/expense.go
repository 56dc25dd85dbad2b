package models

// ExpenseParticipant — участник расхода и его доля.
type ExpenseParticipant struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Share float64 `json:"share"`
}

// GroupRef — ссылка на группу внутри расхода.
type GroupRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Expense — расход группы.
type Expense struct {
	ID           int64                `json:"id"`
	Description  string               `json:"description"`
	TotalAmount  float64              `json:"totalAmount"`
	ExpenseDate  string               `json:"expenseDate"`
	CreatedAt    string               `json:"createdAt"`
	PaidBy       PersonRef            `json:"paidBy"`
	CreatedBy    *PersonRef           `json:"createdBy,omitempty"`
	Group        GroupRef             `json:"group"`
	Participants []ExpenseParticipant `json:"participants"`
}

// CreateExpenseRequest — создание расхода.
// Payer и Participants — email'ы: так их принимает бэкенд.
type CreateExpenseRequest struct {
	Description  string   `json:"description"`
	TotalAmount  float64  `json:"totalAmount"`
	Date         string   `json:"date"`
	GroupID      int64    `json:"groupId"`
	Payer        string   `json:"payer"`
	Participants []string `json:"participants"`
	CategoryID   *int64   `json:"categoryId,omitempty"`
}
