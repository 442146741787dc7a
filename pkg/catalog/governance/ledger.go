package governance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/roles"
)

// ApprovalLedger is the append-only record of use case review decisions.
// It exposes no update or delete.
type ApprovalLedger struct {
	db *gorm.DB
}

// NewApprovalLedger creates an ApprovalLedger.
func NewApprovalLedger(db *gorm.DB) *ApprovalLedger {
	return &ApprovalLedger{db: db}
}

// WithTx returns a ledger bound to tx.
func (l *ApprovalLedger) WithTx(tx *gorm.DB) *ApprovalLedger {
	return &ApprovalLedger{db: tx}
}

// Append validates and inserts rec, assigning its id and, if unset, its
// creation time. It fails with a validation error when the use case does not
// exist or the role or action is not recognized.
func (l *ApprovalLedger) Append(ctx context.Context, rec *ApprovalRecordRow) (string, error) {
	if rec.ApproverRole != roles.ProductAdmin && rec.ApproverRole != roles.PlatformAdmin {
		return "", newError(CodeValidation, "approver role %q is not a review role", rec.ApproverRole)
	}
	if rec.Action != ActionApproved && rec.Action != ActionRejected {
		return "", newError(CodeValidation, "approval action %q is not recognized", rec.Action)
	}
	if rec.ApproverEmail == "" {
		return "", newError(CodeValidation, "approver email is required")
	}

	db := l.db.WithContext(ctx)
	var n int64
	if err := db.Model(&UseCaseRecord{}).Where("id = ?", rec.EntityID).Count(&n).Error; err != nil {
		return "", fmt.Errorf("check use case: %w", err)
	}
	if n == 0 {
		return "", newError(CodeValidation, "use case %q does not exist", rec.EntityID)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate approval id: %w", err)
	}
	rec.ID = id.String()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if err := db.Create(rec).Error; err != nil {
		return "", fmt.Errorf("append approval record: %w", err)
	}
	return rec.ID, nil
}

// ListByEntity returns every record for entityID in append order.
func (l *ApprovalLedger) ListByEntity(ctx context.Context, entityID string) ([]ApprovalRecordRow, error) {
	var recs []ApprovalRecordRow
	err := l.db.WithContext(ctx).
		Where("entity_id = ?", entityID).
		Order("created_at ASC, id ASC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list approval records: %w", err)
	}
	return recs, nil
}

// FindLatestByRole returns the newest record for entityID written by role,
// or nil, nil if there is none.
func (l *ApprovalLedger) FindLatestByRole(ctx context.Context, entityID string, role roles.Tag) (*ApprovalRecordRow, error) {
	var rec ApprovalRecordRow
	err := l.db.WithContext(ctx).
		Where("entity_id = ? AND approver_role = ?", entityID, role).
		Order("created_at DESC, id DESC").
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find latest approval record: %w", err)
	}
	return &rec, nil
}

// CountByEntity returns how many records reference entityID.
func (l *ApprovalLedger) CountByEntity(ctx context.Context, entityID string) (int64, error) {
	var n int64
	if err := l.db.WithContext(ctx).Model(&ApprovalRecordRow{}).Where("entity_id = ?", entityID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count approval records: %w", err)
	}
	return n, nil
}
