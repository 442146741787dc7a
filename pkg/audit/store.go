// Package audit records every attempted governance mutation, including the
// ones that were refused, and serves both that request trail and the
// engine's transition trail over HTTP.
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/catalog/governance"
)

// RequestEventRecord is one audited HTTP mutation attempt.
type RequestEventRecord struct {
	ID            string               `gorm:"primaryKey;column:id;type:varchar(64)"`
	CorrelationID string               `gorm:"column:correlation_id;type:varchar(128)"`
	RequestID     string               `gorm:"column:request_id;type:varchar(128)"`
	Actor         string               `gorm:"column:actor;type:varchar(320);index:idx_request_events_actor"`
	ActorRoles    governance.StringSet `gorm:"column:actor_roles;type:text"`
	Method        string               `gorm:"column:method;type:varchar(16)"`
	Path          string               `gorm:"column:path;type:varchar(1024)"`
	ResourceType  string               `gorm:"column:resource_type;type:varchar(64);index:idx_request_events_resource"`
	ResourceID    string               `gorm:"column:resource_id;type:varchar(64);index:idx_request_events_resource"`
	Action        string               `gorm:"column:action;type:varchar(64)"`
	Outcome       string               `gorm:"column:outcome;type:varchar(32)"`
	StatusCode    int                  `gorm:"column:status_code"`
	DurationMs    int64                `gorm:"column:duration_ms"`
	CreatedAt     time.Time            `gorm:"column:created_at;not null;index:idx_request_events_created"`
}

func (RequestEventRecord) TableName() string { return "request_events" }

// RequestEventFilter narrows request event listings.
type RequestEventFilter struct {
	Actor        string
	ResourceType string
	ResourceID   string
	Action       string
	Outcome      string
}

// RequestEventStore persists RequestEventRecords.
type RequestEventStore struct {
	db *gorm.DB
}

// NewRequestEventStore creates a RequestEventStore.
func NewRequestEventStore(db *gorm.DB) *RequestEventStore {
	return &RequestEventStore{db: db}
}

// AutoMigrate creates the request_events table.
func (s *RequestEventStore) AutoMigrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&RequestEventRecord{}); err != nil {
		return fmt.Errorf("migrate request events: %w", err)
	}
	return nil
}

// Append inserts rec, assigning a time-ordered id when none is set.
func (s *RequestEventStore) Append(ctx context.Context, rec *RequestEventRecord) error {
	if rec.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate request event id: %w", err)
		}
		rec.ID = id.String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("append request event: %w", err)
	}
	return nil
}

// GetByID returns the event with id, or nil, nil if none exists.
func (s *RequestEventStore) GetByID(ctx context.Context, id string) (*RequestEventRecord, error) {
	var rec RequestEventRecord
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get request event: %w", err)
	}
	return &rec, nil
}

// List returns events newest first. The page token is the id of the last
// event of the previous page.
func (s *RequestEventStore) List(ctx context.Context, filter RequestEventFilter, pageSize int, pageToken string) ([]RequestEventRecord, string, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	q := s.db.WithContext(ctx).Model(&RequestEventRecord{})
	if filter.Actor != "" {
		q = q.Where("actor = ?", filter.Actor)
	}
	if filter.ResourceType != "" {
		q = q.Where("resource_type = ?", filter.ResourceType)
	}
	if filter.ResourceID != "" {
		q = q.Where("resource_id = ?", filter.ResourceID)
	}
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if filter.Outcome != "" {
		q = q.Where("outcome = ?", filter.Outcome)
	}
	if pageToken != "" {
		q = q.Where("id < ?", pageToken)
	}

	var recs []RequestEventRecord
	if err := q.Order("id DESC").Limit(pageSize + 1).Find(&recs).Error; err != nil {
		return nil, "", fmt.Errorf("list request events: %w", err)
	}
	var next string
	if len(recs) > pageSize {
		recs = recs[:pageSize]
		next = recs[pageSize-1].ID
	}
	return recs, next, nil
}

// DeleteOlderThan removes events created before cutoff and returns how many
// were deleted. Transition events are never removed.
func (s *RequestEventStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&RequestEventRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete request events: %w", res.Error)
	}
	return res.RowsAffected, nil
}
