package activity

import (
	"context"
	"time"
)

type Kind string

const (
	KindInfo    Kind = "INFO"
	KindSuccess Kind = "SUCCESS"
	KindError   Kind = "ERROR"
	KindAlert   Kind = "ALERT"
)

// Activity is one human-readable log entry on a user's timeline. Actor is
// the principal whose action produced the entry.
type Activity struct {
	ID      uint64 `gorm:"primaryKey;column:id" json:"-"`
	UserID  string `gorm:"size:32;index:idx_activities_user" json:"user_id"`
	ActorID string `gorm:"size:32" json:"actor_id"`
	Message string `gorm:"type:text" json:"message"`
	Kind    Kind   `gorm:"size:10;default:'INFO'" json:"kind"`
	IsRead  bool   `json:"is_read"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Activity) TableName() string { return "activities" }

// Recorder is the notification/activity sink. Recording is fire-and-forget
// from the core's perspective: implementations log failures and never
// propagate them into a state transition.
type Recorder interface {
	Record(ctx context.Context, userID, actorID, message string, kind Kind)
}

type Repository interface {
	Create(ctx context.Context, a *Activity) error
	ListByUser(ctx context.Context, userID string) ([]Activity, error)
}
