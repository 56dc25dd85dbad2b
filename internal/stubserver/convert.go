package stubserver

import (
	"time"

	"github.com/fairpay-app/fairpay-client-go/internal/models"
)

// Конвертация хранимых записей в wire-модели клиента.

func userModel(u *storedUser) models.User {
	return models.User{ID: u.ID, Name: u.Name, Email: u.Email}
}

func (s *Server) personRef(id int64) *models.PersonRef {
	u, err := s.store.UserByID(id)
	if err != nil {
		return &models.PersonRef{ID: id}
	}

	return &models.PersonRef{ID: u.ID, Name: u.Name, Email: u.Email}
}

func (s *Server) groupSummary(g *storedGroup) models.Group {
	return models.Group{
		ID:            g.ID,
		Name:          g.Name,
		Description:   g.Description,
		ImageURL:      g.ImageURL,
		TotalExpenses: s.store.TotalExpenses(g.ID),
		MembersCount:  len(g.Members),
		CreatedAt:     g.CreatedAt.Format(time.RFC3339),
		CreatedBy:     s.personRef(g.CreatedBy),
	}
}

func (s *Server) groupDetails(g *storedGroup) models.GroupDetails {
	members := make([]models.GroupMember, 0, len(g.Members))
	for _, m := range g.Members {
		gm := models.GroupMember{
			ID:       m.UserID,
			Role:     m.Role,
			JoinedAt: m.JoinedAt.Format(time.RFC3339),
		}
		if u, err := s.store.UserByID(m.UserID); err == nil {
			gm.Name = u.Name
			gm.Email = u.Email
		}
		members = append(members, gm)
	}

	return models.GroupDetails{
		Group:   s.groupSummary(g),
		Members: members,
	}
}

func (s *Server) expenseModel(e *storedExpense, g *storedGroup) models.Expense {
	// Доли равные: стаб не моделирует произвольное распределение.
	share := e.TotalAmount / float64(len(e.Participants))

	participants := make([]models.ExpenseParticipant, 0, len(e.Participants))
	for _, id := range e.Participants {
		p := models.ExpenseParticipant{ID: id, Share: share}
		if u, err := s.store.UserByID(id); err == nil {
			p.Name = u.Name
			p.Email = u.Email
		}
		participants = append(participants, p)
	}

	return models.Expense{
		ID:           e.ID,
		Description:  e.Description,
		TotalAmount:  e.TotalAmount,
		ExpenseDate:  e.Date,
		CreatedAt:    e.CreatedAt.Format(time.RFC3339),
		PaidBy:       *s.personRef(e.PaidBy),
		CreatedBy:    s.personRef(e.CreatedBy),
		Group:        models.GroupRef{ID: g.ID, Name: g.Name},
		Participants: participants,
	}
}

func (s *Server) paymentModel(p *storedPayment) models.Payment {
	return models.Payment{
		ID:          p.ID,
		GroupID:     p.GroupID,
		From:        *s.personRef(p.FromUserID),
		To:          *s.personRef(p.ToUserID),
		Amount:      p.Amount,
		Date:        p.Date,
		Description: p.Description,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
	}
}
