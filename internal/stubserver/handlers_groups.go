package stubserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fairpay-app/fairpay-client-go/internal/models"
	apierrors "github.com/fairpay-app/fairpay-client-go/internal/stubserver/errors"
)

const defaultInviteTTLDays = 7

func groupIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apierrors.ErrInvalidArgument
	}

	return id, nil
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	u, err := s.authedUser(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	groups := s.store.GroupsForUser(u.ID)
	out := make([]models.Group, 0, len(groups))
	for _, g := range groups {
		out = append(out, s.groupSummary(g))
	}

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	u, err := s.authedUser(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in models.CreateGroupRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrInvalidArgument)
		return
	}

	g, err := s.store.CreateGroup(u.ID, in.Name, in.Description, in.ImageURL)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, s.groupSummary(g))
}

func (s *Server) handleGroupByID(w http.ResponseWriter, r *http.Request) {
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

	writeJSON(w, http.StatusOK, s.groupDetails(g))
}

func (s *Server) handleGroupMembers(w http.ResponseWriter, r *http.Request) {
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

	writeJSON(w, http.StatusOK, s.groupDetails(g).Members)
}

func (s *Server) handleInviteLink(w http.ResponseWriter, r *http.Request) {
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

	var in models.InviteLinkRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrInvalidArgument)
		return
	}
	if in.ExpiresInDays <= 0 {
		in.ExpiresInDays = defaultInviteTTLDays
	}

	inv, err := s.store.CreateInvite(id, u.ID, time.Duration(in.ExpiresInDays)*24*time.Hour)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, models.InviteLink{
		InviteLink: "http://" + r.Host + "/api/groups/join/" + inv.Token,
		ExpiresAt:  inv.ExpiresAt.Format(time.RFC3339),
		Token:      inv.Token,
	})
}

func (s *Server) handleJoinGroup(w http.ResponseWriter, r *http.Request) {
	u, err := s.authedUser(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	token := chi.URLParam(r, "token")
	if token == "" {
		apierrors.WriteError(w, r, apierrors.ErrInvalidArgument)
		return
	}

	g, err := s.store.JoinByInvite(token, u.ID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var out models.GroupJoinResponse
	out.Message = "joined group " + g.Name
	out.Group.ID = g.ID
	out.Group.Name = g.Name
	out.Group.CreatedAt = g.CreatedAt.Format(time.RFC3339)
	out.Group.CreatedBy = s.personRef(g.CreatedBy)

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
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

	if _, err := s.store.GroupForMember(id, u.ID); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in models.PaymentRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrInvalidArgument)
		return
	}

	if in.Date == "" {
		in.Date = time.Now().UTC().Format("2006-01-02")
	}

	p, err := s.store.CreatePayment(&storedPayment{
		GroupID:     id,
		FromUserID:  in.FromUserID,
		ToUserID:    in.ToUserID,
		Amount:      in.Amount,
		Date:        in.Date,
		Description: in.Description,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, s.paymentModel(p))
}
