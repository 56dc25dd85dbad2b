package stubserver

import (
	"net/http"

	"github.com/fairpay-app/fairpay-client-go/internal/models"
	apierrors "github.com/fairpay-app/fairpay-client-go/internal/stubserver/errors"
)

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	u, err := s.authedUser(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in models.CreateExpenseRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrInvalidArgument)
		return
	}

	g, err := s.store.GroupForMember(in.GroupID, u.ID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	// Плательщик и участники приходят email'ами.
	payer, err := s.store.UserByEmail(in.Payer)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	participants := make([]int64, 0, len(in.Participants))
	for _, email := range in.Participants {
		p, err := s.store.UserByEmail(email)
		if err != nil {
			apierrors.WriteError(w, r, err)
			return
		}
		participants = append(participants, p.ID)
	}

	e, err := s.store.CreateExpense(&storedExpense{
		GroupID:      in.GroupID,
		Description:  in.Description,
		TotalAmount:  in.TotalAmount,
		Date:         in.Date,
		PaidBy:       payer.ID,
		CreatedBy:    u.ID,
		Participants: participants,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, s.expenseModel(e, g))
}

func (s *Server) handleGroupExpenses(w http.ResponseWriter, r *http.Request) {
	u, err := s.authedUser(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	id, err := groupIDParam(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	g, err := s.store.GroupForMember(id, u.ID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	expenses := s.store.ExpensesForGroup(id)
	out := make([]models.Expense, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, s.expenseModel(e, g))
	}

	writeJSON(w, http.StatusOK, out)
}
