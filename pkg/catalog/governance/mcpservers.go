package governance

import (
	"context"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/authz"
)

func validateEndpoint(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", newError(CodeValidation, "endpointUrl is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", newError(CodeValidation, "endpointUrl %q must be an absolute http(s) URL", raw)
	}
	return raw, nil
}

// checkUseCaseLink verifies that id names an existing use case.
func checkUseCaseLink(ctx context.Context, repo *CatalogRepository, id string) error {
	rec, err := repo.GetUseCase(ctx, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return newError(CodeValidation, "business use case %q does not exist", id)
	}
	return nil
}

// CreateMCPServer registers a new MCP server in draft, owned by caller.
func (e *Engine) CreateMCPServer(ctx context.Context, caller authz.Caller, req CreateMCPServerRequest) (*MCPServer, error) {
	if err := requireIdentity(caller); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, newError(CodeValidation, "name is required")
	}
	endpoint, err := validateEndpoint(req.EndpointURL)
	if err != nil {
		return nil, err
	}
	authType := req.AuthType
	if authType == "" {
		authType = AuthTypeNone
	}
	if !authType.Valid() {
		return nil, newError(CodeValidation, "authType %q must be one of none, api_key, oauth, basic", authType)
	}
	bu, err := e.resolveBusinessUnit(caller, req.BusinessUnitID)
	if err != nil {
		return nil, err
	}

	var link string
	if req.BusinessUseCaseID != nil {
		link = strings.TrimSpace(*req.BusinessUseCaseID)
	}
	if link != "" {
		if err := checkUseCaseLink(ctx, e.repo, link); err != nil {
			return nil, classify("create mcp server", err)
		}
	}

	now := e.now().UTC().Truncate(timePrecision)
	rec := &MCPServerRecord{
		ID:                uuid.NewString(),
		Name:              name,
		EndpointURL:       endpoint,
		AuthType:          authType,
		Tags:              StringSet(normalizeTags(req.Tags)),
		State:             e.machine.Graph(KindMCPServer).Initial,
		OwnerEmail:        caller.Email,
		BusinessUnitID:    strPtr(bu),
		BusinessUseCaseID: strPtr(link),
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := e.repo.CreateMCPServer(ctx, rec); err != nil {
		return nil, classify("create mcp server", err)
	}
	e.logger.Info("mcp server created", "id", rec.ID, "name", rec.Name, "owner", rec.OwnerEmail)
	s := rec.toAPI()
	return &s, nil
}

// GetMCPServer returns the MCP server with id.
func (e *Engine) GetMCPServer(ctx context.Context, id string) (*MCPServer, error) {
	rec, err := e.repo.GetMCPServer(ctx, id)
	if err != nil {
		return nil, classify("get mcp server", err)
	}
	if rec == nil {
		return nil, newError(CodeNotFound, "mcp server %q not found", id)
	}
	s := rec.toAPI()
	return &s, nil
}

// ListMCPServers returns a page of MCP servers matching filter.
func (e *Engine) ListMCPServers(ctx context.Context, filter ListFilter, pageSize int, pageToken string) (*MCPServerList, error) {
	recs, next, err := e.repo.ListMCPServers(ctx, filter, pageSize, pageToken)
	if err != nil {
		return nil, classify("list mcp servers", err)
	}
	items := make([]MCPServer, len(recs))
	for i := range recs {
		items[i] = recs[i].toAPI()
	}
	return &MCPServerList{Items: items, NextPageToken: next, Size: len(items)}, nil
}

// UpdateMCPServer edits descriptive fields. A deprecated server only accepts
// tag changes, and the use case link can only change while in draft.
func (e *Engine) UpdateMCPServer(ctx context.Context, id string, caller authz.Caller, req UpdateMCPServerRequest) (*MCPServer, error) {
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := e.repo.WithTx(tx)
		cur, err := e.load(ctx, repo, KindMCPServer, id)
		if err != nil {
			return err
		}
		if err := checkGuard(cur.snap, req.ExpectedUpdatedAt); err != nil {
			return err
		}
		if !e.gate.CanEdit(cur.snap, caller) {
			return e.editDenied(cur.snap)
		}
		if cur.snap.State == StateDeprecated &&
			(req.Name != nil || req.EndpointURL != nil || req.AuthType != nil || req.BusinessUseCaseID != nil) {
			return newError(CodePreconditionFailed, "only tags may change on a deprecated mcp server")
		}

		updates := map[string]any{}
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return newError(CodeValidation, "name must not be empty")
			}
			updates["name"] = name
		}
		if req.EndpointURL != nil {
			endpoint, err := validateEndpoint(*req.EndpointURL)
			if err != nil {
				return err
			}
			updates["endpoint_url"] = endpoint
		}
		if req.AuthType != nil {
			if !req.AuthType.Valid() {
				return newError(CodeValidation, "authType %q must be one of none, api_key, oauth, basic", *req.AuthType)
			}
			updates["auth_type"] = *req.AuthType
		}
		if req.Tags != nil {
			updates["tags"] = StringSet(normalizeTags(*req.Tags))
		}
		if req.BusinessUseCaseID != nil {
			if cur.snap.State != StateDraft {
				return newError(CodePreconditionFailed, "the business use case link can only change in %q", StateDraft)
			}
			link := strings.TrimSpace(*req.BusinessUseCaseID)
			if link == "" {
				updates["business_use_case_id"] = nil
			} else {
				if err := checkUseCaseLink(ctx, repo, link); err != nil {
					return err
				}
				updates["business_use_case_id"] = link
			}
		}
		if len(updates) == 0 {
			return newError(CodeValidation, "no fields to update")
		}
		updates["updated_at"] = e.timestamp(cur.snap.UpdatedAt)
		return repo.CompareAndSwap(ctx, cur.model, id, cur.version, updates)
	})
	if err != nil {
		return nil, classify("update mcp server", err)
	}
	return e.GetMCPServer(ctx, id)
}

// DeleteMCPServer removes an MCP server. Only admins may delete.
func (e *Engine) DeleteMCPServer(ctx context.Context, id string, caller authz.Caller) error {
	if !e.gate.IsAdmin(caller) {
		return newError(CodeUnauthorized, "deleting an mcp server requires an admin role")
	}
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := e.repo.WithTx(tx)
		if _, err := e.load(ctx, repo, KindMCPServer, id); err != nil {
			return err
		}
		return repo.DeleteMCPServer(ctx, id)
	})
	if err != nil {
		return classify("delete mcp server", err)
	}
	e.logger.Info("mcp server deleted", "id", id, "actor", caller.Email)
	return nil
}
