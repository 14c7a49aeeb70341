package mysql

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	prDomain "f2f-lending-backend/internal/domain/paymentrequest"
)

type PaymentRequestRepository struct{ db *gorm.DB }

func NewPaymentRequestRepository(db *gorm.DB) *PaymentRequestRepository {
	return &PaymentRequestRepository{db: db}
}

func (r *PaymentRequestRepository) Create(ctx context.Context, pr *prDomain.PaymentRequest) error {
	return r.db.WithContext(ctx).Create(pr).Error
}

func (r *PaymentRequestRepository) Save(ctx context.Context, pr *prDomain.PaymentRequest) error {
	return r.db.WithContext(ctx).Save(pr).Error
}

func (r *PaymentRequestRepository) GetByRequestID(ctx context.Context, requestID string) (*prDomain.PaymentRequest, error) {
	var out prDomain.PaymentRequest
	res := r.db.WithContext(ctx).Where("request_id = ?", requestID).First(&out)
	return &out, res.Error
}

func (r *PaymentRequestRepository) GetByRequestIDForUpdate(ctx context.Context, requestID string) (*prDomain.PaymentRequest, error) {
	var out prDomain.PaymentRequest
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("request_id = ?", requestID).
		First(&out)
	return &out, res.Error
}

func (r *PaymentRequestRepository) ListByUser(ctx context.Context, userID string) ([]prDomain.PaymentRequest, error) {
	var out []prDomain.PaymentRequest
	res := r.db.WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Order("id DESC").
		Find(&out)
	return out, res.Error
}
