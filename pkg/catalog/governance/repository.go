package governance

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// CatalogRepository persists use cases and MCP servers. State changes go
// through CompareAndSwap so concurrent writers cannot both succeed from the
// same version.
type CatalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository creates a CatalogRepository.
func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *CatalogRepository) WithTx(tx *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: tx}
}

// AutoMigrate creates or updates every governance table.
func (r *CatalogRepository) AutoMigrate(ctx context.Context) error {
	db := r.db.WithContext(ctx)
	for _, model := range []any{
		&UseCaseRecord{},
		&MCPServerRecord{},
		&ApprovalRecordRow{},
		&TransitionEventRecord{},
	} {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("auto-migrate %T: %w", model, err)
		}
	}
	return nil
}

// CreateUseCase inserts a new use case.
func (r *CatalogRepository) CreateUseCase(ctx context.Context, rec *UseCaseRecord) error {
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("create use case: %w", err)
	}
	return nil
}

// GetUseCase returns the use case with id, or nil, nil if none exists.
func (r *CatalogRepository) GetUseCase(ctx context.Context, id string) (*UseCaseRecord, error) {
	var rec UseCaseRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get use case: %w", err)
	}
	return &rec, nil
}

// ListUseCases returns a page of use cases ordered by id.
// pageToken is the id of the last record of the previous page.
func (r *CatalogRepository) ListUseCases(ctx context.Context, filter ListFilter, pageSize int, pageToken string) ([]UseCaseRecord, string, error) {
	pageSize = clampPageSize(pageSize)
	q := applyFilter(r.db.WithContext(ctx).Model(&UseCaseRecord{}), filter, false)
	if pageToken != "" {
		q = q.Where("id > ?", pageToken)
	}

	var recs []UseCaseRecord
	if err := q.Order("id ASC").Limit(pageSize + 1).Find(&recs).Error; err != nil {
		return nil, "", fmt.Errorf("list use cases: %w", err)
	}
	var next string
	if len(recs) > pageSize {
		recs = recs[:pageSize]
		next = recs[pageSize-1].ID
	}
	return recs, next, nil
}

// DeleteUseCase removes a use case row. Ledger rows are left untouched.
func (r *CatalogRepository) DeleteUseCase(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&UseCaseRecord{}).Error; err != nil {
		return fmt.Errorf("delete use case: %w", err)
	}
	return nil
}

// CreateMCPServer inserts a new MCP server.
func (r *CatalogRepository) CreateMCPServer(ctx context.Context, rec *MCPServerRecord) error {
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("create mcp server: %w", err)
	}
	return nil
}

// GetMCPServer returns the MCP server with id, or nil, nil if none exists.
func (r *CatalogRepository) GetMCPServer(ctx context.Context, id string) (*MCPServerRecord, error) {
	var rec MCPServerRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get mcp server: %w", err)
	}
	return &rec, nil
}

// ListMCPServers returns a page of MCP servers ordered by id.
func (r *CatalogRepository) ListMCPServers(ctx context.Context, filter ListFilter, pageSize int, pageToken string) ([]MCPServerRecord, string, error) {
	pageSize = clampPageSize(pageSize)
	q := applyFilter(r.db.WithContext(ctx).Model(&MCPServerRecord{}), filter, true)
	if pageToken != "" {
		q = q.Where("id > ?", pageToken)
	}

	var recs []MCPServerRecord
	if err := q.Order("id ASC").Limit(pageSize + 1).Find(&recs).Error; err != nil {
		return nil, "", fmt.Errorf("list mcp servers: %w", err)
	}
	var next string
	if len(recs) > pageSize {
		recs = recs[:pageSize]
		next = recs[pageSize-1].ID
	}
	return recs, next, nil
}

// DeleteMCPServer removes an MCP server row.
func (r *CatalogRepository) DeleteMCPServer(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&MCPServerRecord{}).Error; err != nil {
		return fmt.Errorf("delete mcp server: %w", err)
	}
	return nil
}

// CountMCPServersByUseCase returns the number of MCP servers linked to each
// of the given use cases. Ids with no servers are absent from the map.
func (r *CatalogRepository) CountMCPServersByUseCase(ctx context.Context, useCaseIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(useCaseIDs))
	if len(useCaseIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		BusinessUseCaseID string
		N                 int
	}
	err := r.db.WithContext(ctx).Model(&MCPServerRecord{}).
		Select("business_use_case_id, COUNT(*) AS n").
		Where("business_use_case_id IN ?", useCaseIDs).
		Group("business_use_case_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count mcp servers: %w", err)
	}
	for _, row := range rows {
		counts[row.BusinessUseCaseID] = row.N
	}
	return counts, nil
}

// CompareAndSwap applies updates to the row of model's table with id only if
// its version still equals version, bumping the version. It returns
// ErrStaleEntity when no row matched.
func (r *CatalogRepository) CompareAndSwap(ctx context.Context, model any, id string, version int64, updates map[string]any) error {
	updates["version"] = version + 1
	res := r.db.WithContext(ctx).Model(model).
		Where("id = ? AND version = ?", id, version).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update %T: %w", model, res.Error)
	}
	if res.RowsAffected == 0 {
		return newError(CodeStaleEntity, "entity %s was modified concurrently", id)
	}
	return nil
}

func applyFilter(q *gorm.DB, f ListFilter, mcp bool) *gorm.DB {
	if len(f.States) > 0 {
		q = q.Where("state IN ?", f.States)
	}
	if f.OwnerEmail != "" {
		q = q.Where("owner_email = ?", f.OwnerEmail)
	}
	if f.BusinessUnitID != "" {
		q = q.Where("business_unit_id = ?", f.BusinessUnitID)
	}
	if mcp && f.BusinessUseCaseID != "" {
		q = q.Where("business_use_case_id = ?", f.BusinessUseCaseID)
	}
	return q
}

func clampPageSize(n int) int {
	if n <= 0 {
		return defaultPageSize
	}
	if n > maxPageSize {
		return maxPageSize
	}
	return n
}
