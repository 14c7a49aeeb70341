package activitymock

import (
	"context"
	"sync"

	"f2f-lending-backend/internal/domain/activity"
)

var _ activity.Recorder = (*Recorder)(nil)

// Entry is one captured Record call.
type Entry struct {
	UserID  string
	ActorID string
	Message string
	Kind    activity.Kind
}

// Recorder captures activity entries for assertion.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

func (m *Recorder) Record(ctx context.Context, userID, actorID, message string, kind activity.Kind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, Entry{UserID: userID, ActorID: actorID, Message: message, Kind: kind})
}

// Entries returns a copy of everything recorded so far.
func (m *Recorder) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// For returns the entries recorded against one user.
func (m *Recorder) For(userID string) []Entry {
	var out []Entry
	for _, e := range m.Entries() {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

var _ activity.Repository = (*Repo)(nil)

// Repo is an in-memory activity store.
type Repo struct {
	mu   sync.Mutex
	rows []activity.Activity
}

func (m *Repo) Create(ctx context.Context, a *activity.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, *a)
	return nil
}

func (m *Repo) ListByUser(ctx context.Context, userID string) ([]activity.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []activity.Activity
	for _, a := range m.rows {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}
