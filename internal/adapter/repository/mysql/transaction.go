package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	txDomain "f2f-lending-backend/internal/domain/transaction"
)

type TransactionRepository struct{ db *gorm.DB }

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, t *txDomain.Transaction) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *TransactionRepository) Save(ctx context.Context, t *txDomain.Transaction) error {
	return r.db.WithContext(ctx).Save(t).Error
}

func (r *TransactionRepository) GetByOrderID(ctx context.Context, orderID string) (*txDomain.Transaction, error) {
	var out txDomain.Transaction
	res := r.db.WithContext(ctx).Where("gateway_order_id = ?", orderID).First(&out)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, txDomain.ErrNotFound
	}
	return &out, res.Error
}

func (r *TransactionRepository) LastByLoanTypeStatus(ctx context.Context, loanNumericID uint64, typ txDomain.Type, status txDomain.Status) (*txDomain.Transaction, error) {
	var out txDomain.Transaction
	res := r.db.WithContext(ctx).
		Where("loan_id = ? AND transaction_type = ? AND status = ?", loanNumericID, typ, status).
		Order("id DESC").
		First(&out)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, txDomain.ErrNotFound
	}
	return &out, res.Error
}

func (r *TransactionRepository) LastByLoan(ctx context.Context, loanNumericID uint64) (*txDomain.Transaction, error) {
	var out txDomain.Transaction
	res := r.db.WithContext(ctx).
		Where("loan_id = ?", loanNumericID).
		Order("id DESC").
		First(&out)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, txDomain.ErrNotFound
	}
	return &out, res.Error
}

func (r *TransactionRepository) SumCompletedByLoanReceiver(ctx context.Context, loanNumericID uint64, userID string) (int64, error) {
	return r.sumCompleted(ctx, loanNumericID, "receiver_id", userID)
}

func (r *TransactionRepository) SumCompletedByLoanSender(ctx context.Context, loanNumericID uint64, userID string) (int64, error) {
	return r.sumCompleted(ctx, loanNumericID, "sender_id", userID)
}

func (r *TransactionRepository) sumCompleted(ctx context.Context, loanNumericID uint64, column, userID string) (int64, error) {
	var sum int64
	res := r.db.WithContext(ctx).Model(&txDomain.Transaction{}).
		Select("COALESCE(SUM(amount_paise), 0)").
		Where("loan_id = ? AND status = ? AND "+column+" = ?", loanNumericID, txDomain.StatusCompleted, userID).
		Scan(&sum)
	return sum, res.Error
}

func (r *TransactionRepository) ListByUser(ctx context.Context, userID string) ([]txDomain.Transaction, error) {
	var out []txDomain.Transaction
	res := r.db.WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Order("id DESC").
		Find(&out)
	return out, res.Error
}
