package loanmock

import (
	"context"
	"errors"
	"time"

	domain "f2f-lending-backend/internal/domain/loan"
)

var _ domain.Repository = (*Repo)(nil)
var _ domain.EMIRepository = (*EMIRepo)(nil)

var errUnimplemented = errors.New("loanmock: method not implemented")

// Repo is a function-backed mock that satisfies domain.Repository.
// Fill in the function fields a test needs; unfilled getters fail loudly.
type Repo struct {
	CreateFn                  func(ctx context.Context, l *domain.Loan) error
	SaveFn                    func(ctx context.Context, l *domain.Loan) error
	GetByLoanIDFn             func(ctx context.Context, loanID string) (*domain.Loan, error)
	GetByIDFn                 func(ctx context.Context, id uint64) (*domain.Loan, error)
	GetByLoanIDForUpdateFn    func(ctx context.Context, loanID string) (*domain.Loan, error)
	GetByOrderIDFn            func(ctx context.Context, orderID string) (*domain.Loan, error)
	ListByLenderAndStatusFn   func(ctx context.Context, lenderID string, status domain.Status) ([]domain.Loan, error)
	ListByBorrowerAndStatusFn func(ctx context.Context, borrowerID string, status domain.Status) ([]domain.Loan, error)
	ListByStatusFn            func(ctx context.Context, status domain.Status) ([]domain.Loan, error)
}

func (m *Repo) Create(ctx context.Context, l *domain.Loan) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, l)
	}
	return nil
}
func (m *Repo) Save(ctx context.Context, l *domain.Loan) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, l)
	}
	return nil
}
func (m *Repo) GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error) {
	if m.GetByLoanIDFn != nil {
		return m.GetByLoanIDFn(ctx, loanID)
	}
	return nil, errUnimplemented
}
func (m *Repo) GetByID(ctx context.Context, id uint64) (*domain.Loan, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, errUnimplemented
}
func (m *Repo) GetByLoanIDForUpdate(ctx context.Context, loanID string) (*domain.Loan, error) {
	if m.GetByLoanIDForUpdateFn != nil {
		return m.GetByLoanIDForUpdateFn(ctx, loanID)
	}
	return nil, errUnimplemented
}
func (m *Repo) GetByOrderID(ctx context.Context, orderID string) (*domain.Loan, error) {
	if m.GetByOrderIDFn != nil {
		return m.GetByOrderIDFn(ctx, orderID)
	}
	return nil, errUnimplemented
}
func (m *Repo) ListByLenderAndStatus(ctx context.Context, lenderID string, status domain.Status) ([]domain.Loan, error) {
	if m.ListByLenderAndStatusFn != nil {
		return m.ListByLenderAndStatusFn(ctx, lenderID, status)
	}
	return nil, nil
}
func (m *Repo) ListByBorrowerAndStatus(ctx context.Context, borrowerID string, status domain.Status) ([]domain.Loan, error) {
	if m.ListByBorrowerAndStatusFn != nil {
		return m.ListByBorrowerAndStatusFn(ctx, borrowerID, status)
	}
	return nil, nil
}
func (m *Repo) ListByStatus(ctx context.Context, status domain.Status) ([]domain.Loan, error) {
	if m.ListByStatusFn != nil {
		return m.ListByStatusFn(ctx, status)
	}
	return nil, nil
}

// EMIRepo is a function-backed mock that satisfies domain.EMIRepository.
type EMIRepo struct {
	CreateBatchFn         func(ctx context.Context, emis []domain.EMI) error
	SaveFn                func(ctx context.Context, e *domain.EMI) error
	ListByLoanFn          func(ctx context.Context, loanNumericID uint64) ([]domain.EMI, error)
	NextUnpaidFn          func(ctx context.Context, loanNumericID uint64) (*domain.EMI, error)
	CountUnpaidFn         func(ctx context.Context, loanNumericID uint64) (int64, error)
	GetByNumberFn         func(ctx context.Context, loanNumericID uint64, number int) (*domain.EMI, error)
	ListPendingDueBeforeFn func(ctx context.Context, loanNumericID uint64, cutoff time.Time) ([]domain.EMI, error)
}

func (m *EMIRepo) CreateBatch(ctx context.Context, emis []domain.EMI) error {
	if m.CreateBatchFn != nil {
		return m.CreateBatchFn(ctx, emis)
	}
	return nil
}
func (m *EMIRepo) Save(ctx context.Context, e *domain.EMI) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, e)
	}
	return nil
}
func (m *EMIRepo) ListByLoan(ctx context.Context, loanNumericID uint64) ([]domain.EMI, error) {
	if m.ListByLoanFn != nil {
		return m.ListByLoanFn(ctx, loanNumericID)
	}
	return nil, nil
}
func (m *EMIRepo) NextUnpaid(ctx context.Context, loanNumericID uint64) (*domain.EMI, error) {
	if m.NextUnpaidFn != nil {
		return m.NextUnpaidFn(ctx, loanNumericID)
	}
	return nil, errUnimplemented
}
func (m *EMIRepo) CountUnpaid(ctx context.Context, loanNumericID uint64) (int64, error) {
	if m.CountUnpaidFn != nil {
		return m.CountUnpaidFn(ctx, loanNumericID)
	}
	return 0, nil
}
func (m *EMIRepo) GetByNumber(ctx context.Context, loanNumericID uint64, number int) (*domain.EMI, error) {
	if m.GetByNumberFn != nil {
		return m.GetByNumberFn(ctx, loanNumericID, number)
	}
	return nil, errUnimplemented
}
func (m *EMIRepo) ListPendingDueBefore(ctx context.Context, loanNumericID uint64, cutoff time.Time) ([]domain.EMI, error) {
	if m.ListPendingDueBeforeFn != nil {
		return m.ListPendingDueBeforeFn(ctx, loanNumericID, cutoff)
	}
	return nil, nil
}
