package models

// PersonRef — короткая ссылка на пользователя внутри ответов бэкенда.
type PersonRef struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Group — сводка группы в списках.
type Group struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	ImageURL      string     `json:"imageUrl,omitempty"`
	TotalExpenses float64    `json:"totalExpenses"`
	MembersCount  int        `json:"membersCount"`
	CreatedAt     string     `json:"createdAt,omitempty"`
	CreatedBy     *PersonRef `json:"createdBy,omitempty"`
}

// GroupMember — участник группы.
type GroupMember struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role,omitempty"`
	JoinedAt string `json:"joinedAt,omitempty"`
}

// GroupDetails — полная карточка группы.
type GroupDetails struct {
	Group
	Members   []GroupMember `json:"members,omitempty"`
	UpdatedAt string        `json:"updatedAt,omitempty"`
}

// CreateGroupRequest — создание группы.
type CreateGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
}
