package governance

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/authz"
)

const maxTitleLength = 200

// CreateUseCase registers a new use case in draft, owned by caller.
func (e *Engine) CreateUseCase(ctx context.Context, caller authz.Caller, req CreateUseCaseRequest) (*UseCase, error) {
	if err := requireIdentity(caller); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, newError(CodeValidation, "title is required")
	}
	if len(title) > maxTitleLength {
		return nil, newError(CodeValidation, "title must be at most %d characters", maxTitleLength)
	}
	if req.SkillCount < 0 {
		return nil, newError(CodeValidation, "skillCount must not be negative")
	}
	bu, err := e.resolveBusinessUnit(caller, req.BusinessUnitID)
	if err != nil {
		return nil, err
	}

	now := e.now().UTC().Truncate(timePrecision)
	rec := &UseCaseRecord{
		ID:             uuid.NewString(),
		Title:          title,
		Description:    strings.TrimSpace(req.Description),
		Tags:           StringSet(normalizeTags(req.Tags)),
		State:          e.machine.Graph(KindUseCase).Initial,
		OwnerEmail:     caller.Email,
		BusinessUnitID: strPtr(bu),
		SkillCount:     req.SkillCount,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := e.repo.CreateUseCase(ctx, rec); err != nil {
		return nil, classify("create use case", err)
	}
	e.logger.Info("use case created", "id", rec.ID, "owner", rec.OwnerEmail, "businessUnit", bu)
	uc := rec.toAPI(0)
	return &uc, nil
}

// GetUseCase returns the use case with id.
func (e *Engine) GetUseCase(ctx context.Context, id string) (*UseCase, error) {
	rec, err := e.repo.GetUseCase(ctx, id)
	if err != nil {
		return nil, classify("get use case", err)
	}
	if rec == nil {
		return nil, newError(CodeNotFound, "use case %q not found", id)
	}
	counts, err := e.repo.CountMCPServersByUseCase(ctx, []string{id})
	if err != nil {
		return nil, classify("get use case", err)
	}
	uc := rec.toAPI(counts[id])
	return &uc, nil
}

// ListUseCases returns a page of use cases matching filter.
func (e *Engine) ListUseCases(ctx context.Context, filter ListFilter, pageSize int, pageToken string) (*UseCaseList, error) {
	recs, next, err := e.repo.ListUseCases(ctx, filter, pageSize, pageToken)
	if err != nil {
		return nil, classify("list use cases", err)
	}
	items, err := e.useCasesToAPI(ctx, recs)
	if err != nil {
		return nil, err
	}
	return &UseCaseList{Items: items, NextPageToken: next, Size: len(items)}, nil
}

// useCasesToAPI converts records, counting linked MCP servers from the
// catalog instead of trusting a stored counter.
func (e *Engine) useCasesToAPI(ctx context.Context, recs []UseCaseRecord) ([]UseCase, error) {
	ids := make([]string, len(recs))
	for i := range recs {
		ids[i] = recs[i].ID
	}
	counts, err := e.repo.CountMCPServersByUseCase(ctx, ids)
	if err != nil {
		return nil, classify("count mcp servers", err)
	}
	items := make([]UseCase, len(recs))
	for i := range recs {
		items[i] = recs[i].toAPI(counts[recs[i].ID])
	}
	return items, nil
}

// UpdateUseCase edits descriptive fields. State is never changed here.
func (e *Engine) UpdateUseCase(ctx context.Context, id string, caller authz.Caller, req UpdateUseCaseRequest) (*UseCase, error) {
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := e.repo.WithTx(tx)
		cur, err := e.load(ctx, repo, KindUseCase, id)
		if err != nil {
			return err
		}
		if err := checkGuard(cur.snap, req.ExpectedUpdatedAt); err != nil {
			return err
		}
		if !e.gate.CanEdit(cur.snap, caller) {
			return e.editDenied(cur.snap)
		}

		updates := map[string]any{}
		if req.Title != nil {
			title := strings.TrimSpace(*req.Title)
			if title == "" {
				return newError(CodeValidation, "title must not be empty")
			}
			if len(title) > maxTitleLength {
				return newError(CodeValidation, "title must be at most %d characters", maxTitleLength)
			}
			updates["title"] = title
		}
		if req.Description != nil {
			updates["description"] = strings.TrimSpace(*req.Description)
		}
		if req.Tags != nil {
			updates["tags"] = StringSet(normalizeTags(*req.Tags))
		}
		if len(updates) == 0 {
			return newError(CodeValidation, "no fields to update")
		}
		updates["updated_at"] = e.timestamp(cur.snap.UpdatedAt)
		return repo.CompareAndSwap(ctx, cur.model, id, cur.version, updates)
	})
	if err != nil {
		return nil, classify("update use case", err)
	}
	return e.GetUseCase(ctx, id)
}

// DeleteUseCase removes a use case. Only admins may delete, and a use case
// with ledger entries or linked MCP servers is kept.
func (e *Engine) DeleteUseCase(ctx context.Context, id string, caller authz.Caller) error {
	if !e.gate.IsAdmin(caller) {
		return newError(CodeUnauthorized, "deleting a use case requires an admin role")
	}
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := e.repo.WithTx(tx)
		if _, err := e.load(ctx, repo, KindUseCase, id); err != nil {
			return err
		}
		n, err := e.ledger.WithTx(tx).CountByEntity(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return newError(CodePreconditionFailed, "use case %s is referenced by %d approval records", id, n)
		}
		counts, err := repo.CountMCPServersByUseCase(ctx, []string{id})
		if err != nil {
			return err
		}
		if counts[id] > 0 {
			return newError(CodePreconditionFailed, "use case %s is linked to %d mcp servers", id, counts[id])
		}
		return repo.DeleteUseCase(ctx, id)
	})
	if err != nil {
		return classify("delete use case", err)
	}
	e.logger.Info("use case deleted", "id", id, "actor", caller.Email)
	return nil
}
