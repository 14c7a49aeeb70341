package mysql

import (
	"context"
	"log"

	"gorm.io/gorm"

	actDomain "f2f-lending-backend/internal/domain/activity"
)

type ActivityRepository struct{ db *gorm.DB }

func NewActivityRepository(db *gorm.DB) *ActivityRepository { return &ActivityRepository{db: db} }

func (r *ActivityRepository) Create(ctx context.Context, a *actDomain.Activity) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *ActivityRepository) ListByUser(ctx context.Context, userID string) ([]actDomain.Activity, error) {
	var out []actDomain.Activity
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id DESC").Find(&out)
	return out, res.Error
}

// ActivityRecorder writes activity rows outside any caller transaction. A
// lost entry is logged, never propagated: the state change that produced
// it already committed.
type ActivityRecorder struct{ repo *ActivityRepository }

func NewActivityRecorder(db *gorm.DB) *ActivityRecorder {
	return &ActivityRecorder{repo: NewActivityRepository(db)}
}

func (r *ActivityRecorder) Record(ctx context.Context, userID, actorID, message string, kind actDomain.Kind) {
	err := r.repo.Create(ctx, &actDomain.Activity{
		UserID:  userID,
		ActorID: actorID,
		Message: message,
		Kind:    kind,
	})
	if err != nil {
		log.Printf("activity: record for %s: %v", userID, err)
	}
}
