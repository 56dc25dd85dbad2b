// expenses — типизированная обёртка над API-клиентом для расходов и
// ручных платежей внутри группы.
package expenses

import (
	"context"
	"fmt"
	"log/slog"
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

// ListByGroup возвращает расходы группы; сбой даёт пустой список.
func (s *Service) ListByGroup(ctx context.Context, groupID int64) []models.Expense {
	const op = "expenses.ListByGroup"

	var out []models.Expense
	endpoint := "/api/expenses/group/" + strconv.FormatInt(groupID, 10)
	if err := s.api.Get(ctx, endpoint, &out); err != nil {
		log.From(ctx).Warn("expenses_list_failed",
			slog.String("op", op),
			slog.Int64("group_id", groupID),
			slog.String("err", err.Error()),
		)

		return []models.Expense{}
	}

	if out == nil {
		out = []models.Expense{}
	}

	return out
}

// Create регистрирует расход.
func (s *Service) Create(ctx context.Context, req models.CreateExpenseRequest) (*models.Expense, error) {
	const op = "expenses.Create"

	var out models.Expense
	if err := s.api.Post(ctx, "/api/expenses", req, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// CreatePayment регистрирует ручной платёж между участниками группы.
func (s *Service) CreatePayment(ctx context.Context, groupID int64, req models.PaymentRequest) (*models.Payment, error) {
	const op = "expenses.CreatePayment"

	var out models.Payment
	endpoint := "/api/groups/" + strconv.FormatInt(groupID, 10) + "/payments"
	if err := s.api.Post(ctx, endpoint, req, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}
