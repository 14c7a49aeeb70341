package mysql

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	loanDomain "f2f-lending-backend/internal/domain/loan"
)

type LoanRepository struct{ db *gorm.DB }

func NewLoanRepository(db *gorm.DB) *LoanRepository { return &LoanRepository{db: db} }

func (r *LoanRepository) Create(ctx context.Context, l *loanDomain.Loan) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *LoanRepository) Save(ctx context.Context, l *loanDomain.Loan) error {
	return r.db.WithContext(ctx).Save(l).Error
}

func (r *LoanRepository) GetByLoanID(ctx context.Context, loanID string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.db.WithContext(ctx).Where("loan_id = ?", loanID).First(&out)
	return &out, res.Error
}

func (r *LoanRepository) GetByID(ctx context.Context, id uint64) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.db.WithContext(ctx).Where("id = ?", id).First(&out)
	return &out, res.Error
}

// GetByLoanIDForUpdate takes a row lock; only meaningful inside a
// transaction.
func (r *LoanRepository) GetByLoanIDForUpdate(ctx context.Context, loanID string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("loan_id = ?", loanID).
		First(&out)
	return &out, res.Error
}

func (r *LoanRepository) GetByOrderID(ctx context.Context, orderID string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.db.WithContext(ctx).Where("gateway_order_id = ?", orderID).First(&out)
	return &out, res.Error
}

func (r *LoanRepository) ListByLenderAndStatus(ctx context.Context, lenderID string, status loanDomain.Status) ([]loanDomain.Loan, error) {
	var out []loanDomain.Loan
	res := r.db.WithContext(ctx).
		Where("lender_id = ? AND status = ?", lenderID, status).
		Order("id").
		Find(&out)
	return out, res.Error
}

func (r *LoanRepository) ListByBorrowerAndStatus(ctx context.Context, borrowerID string, status loanDomain.Status) ([]loanDomain.Loan, error) {
	var out []loanDomain.Loan
	res := r.db.WithContext(ctx).
		Where("borrower_id = ? AND status = ?", borrowerID, status).
		Order("id").
		Find(&out)
	return out, res.Error
}

func (r *LoanRepository) ListByStatus(ctx context.Context, status loanDomain.Status) ([]loanDomain.Loan, error) {
	var out []loanDomain.Loan
	res := r.db.WithContext(ctx).Where("status = ?", status).Order("id").Find(&out)
	return out, res.Error
}

type EMIRepository struct{ db *gorm.DB }

func NewEMIRepository(db *gorm.DB) *EMIRepository { return &EMIRepository{db: db} }

func (r *EMIRepository) CreateBatch(ctx context.Context, emis []loanDomain.EMI) error {
	if len(emis) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&emis).Error
}

func (r *EMIRepository) Save(ctx context.Context, e *loanDomain.EMI) error {
	return r.db.WithContext(ctx).Save(e).Error
}

func (r *EMIRepository) ListByLoan(ctx context.Context, loanNumericID uint64) ([]loanDomain.EMI, error) {
	var out []loanDomain.EMI
	res := r.db.WithContext(ctx).
		Where("loan_id = ?", loanNumericID).
		Order("emi_number").
		Find(&out)
	return out, res.Error
}

func (r *EMIRepository) NextUnpaid(ctx context.Context, loanNumericID uint64) (*loanDomain.EMI, error) {
	var out loanDomain.EMI
	res := r.db.WithContext(ctx).
		Where("loan_id = ? AND status IN ?", loanNumericID, []loanDomain.EMIStatus{loanDomain.EMIPending, loanDomain.EMIMissed}).
		Order("emi_number").
		First(&out)
	if res.Error == gorm.ErrRecordNotFound {
		return nil, nil
	}
	return &out, res.Error
}

func (r *EMIRepository) CountUnpaid(ctx context.Context, loanNumericID uint64) (int64, error) {
	var n int64
	res := r.db.WithContext(ctx).Model(&loanDomain.EMI{}).
		Where("loan_id = ? AND status IN ?", loanNumericID, []loanDomain.EMIStatus{loanDomain.EMIPending, loanDomain.EMIMissed}).
		Count(&n)
	return n, res.Error
}

func (r *EMIRepository) GetByNumber(ctx context.Context, loanNumericID uint64, number int) (*loanDomain.EMI, error) {
	var out loanDomain.EMI
	res := r.db.WithContext(ctx).
		Where("loan_id = ? AND emi_number = ?", loanNumericID, number).
		First(&out)
	return &out, res.Error
}

func (r *EMIRepository) ListPendingDueBefore(ctx context.Context, loanNumericID uint64, cutoff time.Time) ([]loanDomain.EMI, error) {
	var out []loanDomain.EMI
	res := r.db.WithContext(ctx).
		Where("loan_id = ? AND status = ? AND due_date < ?", loanNumericID, loanDomain.EMIPending, cutoff).
		Order("emi_number").
		Find(&out)
	return out, res.Error
}
