package governance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EventFilter narrows transition event listings.
type EventFilter struct {
	EntityKind EntityKind
	EntityID   string
	Actor      string
}

// TransitionEventStore is the append-only trail of lifecycle transitions for
// both entity kinds.
type TransitionEventStore struct {
	db *gorm.DB
}

// NewTransitionEventStore creates a TransitionEventStore.
func NewTransitionEventStore(db *gorm.DB) *TransitionEventStore {
	return &TransitionEventStore{db: db}
}

// WithTx returns a store bound to tx.
func (s *TransitionEventStore) WithTx(tx *gorm.DB) *TransitionEventStore {
	return &TransitionEventStore{db: tx}
}

// Append inserts rec, assigning a time-ordered id.
func (s *TransitionEventStore) Append(ctx context.Context, rec *TransitionEventRecord) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate event id: %w", err)
	}
	rec.ID = id.String()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("append transition event: %w", err)
	}
	return nil
}

// List returns events newest first. Ids are time-ordered, so the page token
// is the id of the last event returned.
func (s *TransitionEventStore) List(ctx context.Context, filter EventFilter, pageSize int, pageToken string) ([]TransitionEventRecord, string, error) {
	pageSize = clampPageSize(pageSize)
	q := s.db.WithContext(ctx).Model(&TransitionEventRecord{})
	if filter.EntityKind != "" {
		q = q.Where("entity_kind = ?", filter.EntityKind)
	}
	if filter.EntityID != "" {
		q = q.Where("entity_id = ?", filter.EntityID)
	}
	if filter.Actor != "" {
		q = q.Where("actor = ?", filter.Actor)
	}
	if pageToken != "" {
		q = q.Where("id < ?", pageToken)
	}

	var recs []TransitionEventRecord
	if err := q.Order("id DESC").Limit(pageSize + 1).Find(&recs).Error; err != nil {
		return nil, "", fmt.Errorf("list transition events: %w", err)
	}
	var next string
	if len(recs) > pageSize {
		recs = recs[:pageSize]
		next = recs[pageSize-1].ID
	}
	return recs, next, nil
}
