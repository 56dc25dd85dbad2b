// groups — типизированная обёртка над API-клиентом для групп:
// списки, карточка, участники, ссылки-приглашения.
//
// Списочные и карточные выборки деградируют до пустого результата при
// несмертельных сбоях, чтобы у вызывающего всегда было что отрисовать;
// операции записи и принятие приглашения ошибки пробрасывают.
package groups

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/fairpay-app/fairpay-client-go/internal/client"
	"github.com/fairpay-app/fairpay-client-go/internal/models"
	"github.com/fairpay-app/fairpay-client-go/internal/pkg/log"
)

type Service struct {
	api *client.Client
}

func New(api *client.Client) *Service {
	return &Service{api: api}
}

// List возвращает группы текущего пользователя.
// Любой сбой сводится к пустому списку.
func (s *Service) List(ctx context.Context) []models.Group {
	const op = "groups.List"

	var out []models.Group
	if err := s.api.Get(ctx, "/api/groups", &out); err != nil {
		log.From(ctx).Warn("groups_list_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)

		return []models.Group{}
	}

	if out == nil {
		out = []models.Group{}
	}

	return out
}

// Create создаёт группу.
func (s *Service) Create(ctx context.Context, req models.CreateGroupRequest) (*models.Group, error) {
	const op = "groups.Create"

	var out models.Group
	if err := s.api.Post(ctx, "/api/groups", req, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// ByID возвращает карточку группы либо nil при сбое.
func (s *Service) ByID(ctx context.Context, id int64) *models.GroupDetails {
	const op = "groups.ByID"

	var out models.GroupDetails
	if err := s.api.Get(ctx, "/api/groups/"+strconv.FormatInt(id, 10), &out); err != nil {
		log.From(ctx).Warn("group_fetch_failed",
			slog.String("op", op),
			slog.Int64("group_id", id),
			slog.String("err", err.Error()),
		)

		return nil
	}

	return &out
}

// Members возвращает участников группы; сбой даёт пустой список.
func (s *Service) Members(ctx context.Context, id int64) []models.GroupMember {
	const op = "groups.Members"

	var out []models.GroupMember
	endpoint := "/api/groups/" + strconv.FormatInt(id, 10) + "/members"
	if err := s.api.Get(ctx, endpoint, &out); err != nil {
		log.From(ctx).Warn("group_members_failed",
			slog.String("op", op),
			slog.Int64("group_id", id),
			slog.String("err", err.Error()),
		)

		return []models.GroupMember{}
	}

	if out == nil {
		out = []models.GroupMember{}
	}

	return out
}

// InviteLink выпускает ссылку-приглашение в группу.
func (s *Service) InviteLink(ctx context.Context, id int64, req models.InviteLinkRequest) (*models.InviteLink, error) {
	const op = "groups.InviteLink"

	var out models.InviteLink
	endpoint := "/api/groups/" + strconv.FormatInt(id, 10) + "/invite-link"
	if err := s.api.Post(ctx, endpoint, req, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// AcceptInvite принимает приглашение по токену.
// Приём закреплён за GET /api/groups/join/{token}: переход по ссылке
// и есть принятие.
func (s *Service) AcceptInvite(ctx context.Context, token string) (*models.GroupJoinResponse, error) {
	const op = "groups.AcceptInvite"

	var out models.GroupJoinResponse
	if err := s.api.Request(ctx, http.MethodGet, "/api/groups/join/"+token, nil, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}
