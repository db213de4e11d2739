package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/apperr"
	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/db"
)

// cent is the tolerance used when comparing a payment to the balance.
var cent = decimal.RequireFromString("0.01")

type Service struct {
	repo SellRepository
	tx   db.TxRunner
	now  func() time.Time
}

func NewService(repo SellRepository, tx db.TxRunner) *Service {
	return &Service{repo: repo, tx: tx, now: time.Now}
}

// Create persists a sell built by a Builder. Callers finishing an
// appointment run it inside their own transaction.
func (s *Service) Create(ctx context.Context, sell *Sell) error {
	return s.repo.Create(ctx, sell)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Sell, error) {
	sell, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	sell.Balance = Balance(sell)
	return sell, nil
}

func (s *Service) List(ctx context.Context, f SellFilter, limit, offset int) ([]*Sell, int, error) {
	return s.repo.List(ctx, f, limit, offset)
}

// RegisterPayment applies a payment to a sell and moves it to
// partial-payment or paid.
func (s *Service) RegisterPayment(ctx context.Context, sellID uuid.UUID, req PaymentRequest) (*Sell, error) {
	amount := decimal.NewFromFloat(req.Total).Round(2)
	if !amount.IsPositive() {
		return nil, apperr.Invalid("payment total must be greater than 0")
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		sell, err := s.repo.LockByID(ctx, sellID)
		if err != nil {
			return err
		}
		switch sell.Status {
		case StatusCancelled:
			return apperr.Conflict("sell is cancelled")
		case StatusPaid:
			return apperr.Conflict("sell is already paid")
		}

		balance := decimal.NewFromFloat(Balance(sell))
		if amount.Sub(balance).GreaterThanOrEqual(cent) {
			return apperr.Invalid("payment of %s exceeds balance of %s", amount.StringFixed(2), balance.StringFixed(2))
		}

		now := s.now().UTC()
		p := &Payment{
			SellID:          sell.ID,
			PaymentMethodID: req.PaymentMethodID,
			Amounts:         Split(amount),
			PaidAt:          now,
		}
		if err := s.repo.AddPayment(ctx, p); err != nil {
			return err
		}

		status, paidAt := StatusPartial, (*time.Time)(nil)
		if balance.Sub(amount).LessThan(cent) {
			status, paidAt = StatusPaid, &now
		}
		return s.repo.UpdateStatus(ctx, sell.ID, status, paidAt)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, sellID)
}
