package models

// InviteLinkRequest — выпуск ссылки-приглашения в группу.
type InviteLinkRequest struct {
	ExpiresInDays int `json:"expiresInDays"`
}

// InviteLink — выпущенная ссылка-приглашение.
// Разные версии бэкенда отдавали поле то как inviteLink, то как inviteUrl;
// Link() скрывает это различие.
type InviteLink struct {
	InviteLink string `json:"inviteLink,omitempty"`
	InviteURL  string `json:"inviteUrl,omitempty"`
	ExpiresAt  string `json:"expiresAt"`
	Token      string `json:"token,omitempty"`
}

// Link возвращает непустую ссылку приглашения.
func (l InviteLink) Link() string {
	if l.InviteLink != "" {
		return l.InviteLink
	}
	return l.InviteURL
}

// GroupJoinResponse — результат принятия приглашения.
type GroupJoinResponse struct {
	Message string `json:"message"`
	Group   struct {
		ID        int64      `json:"id"`
		Name      string     `json:"name"`
		CreatedAt string     `json:"createdAt,omitempty"`
		CreatedBy *PersonRef `json:"createdBy,omitempty"`
	} `json:"group"`
}
