package governance

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/authz"
	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/roles"
)

// Engine is the only component that changes lifecycle state. Each
// transition loads the entity, decides, swaps the row on its version and
// appends ledger and event rows in one database transaction.
type Engine struct {
	db       *gorm.DB
	repo     *CatalogRepository
	ledger   *ApprovalLedger
	events   *TransitionEventStore
	machine  *LifecycleMachine
	gate     *AuthorizationGate
	resolver *roles.Resolver
	metrics  *Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics records transition metrics to m.
func WithMetrics(m *Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithResolver validates business-unit ids against r's directory.
func WithResolver(r *roles.Resolver) EngineOption {
	return func(e *Engine) { e.resolver = r }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an Engine over db. Tables must already exist; see
// CatalogRepository.AutoMigrate.
func NewEngine(db *gorm.DB, opts ...EngineOption) *Engine {
	machine := NewLifecycleMachine()
	e := &Engine{
		db:      db,
		repo:    NewCatalogRepository(db),
		ledger:  NewApprovalLedger(db),
		events:  NewTransitionEventStore(db),
		machine: machine,
		gate:    NewAuthorizationGate(machine),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Machine() *LifecycleMachine { return e.machine }
func (e *Engine) Gate() *AuthorizationGate { return e.gate }
func (e *Engine) Repository() *CatalogRepository { return e.repo }
func (e *Engine) Ledger() *ApprovalLedger { return e.ledger }
func (e *Engine) Events() *TransitionEventStore { return e.events }

// timePrecision is the resolution timestamps are stored and compared at.
const timePrecision = time.Microsecond

// timestamp returns the next updatedAt value. It is strictly after prev so
// that a guard taken before a change never matches after it.
func (e *Engine) timestamp(prev time.Time) time.Time {
	t := e.now().UTC().Truncate(timePrecision)
	prev = prev.UTC().Truncate(timePrecision)
	if !t.After(prev) {
		t = prev.Add(timePrecision)
	}
	return t
}

func sameInstant(a, b time.Time) bool {
	return a.Truncate(timePrecision).Equal(b.Truncate(timePrecision))
}

func checkGuard(snap Entity, expected *time.Time) error {
	if expected != nil && !sameInstant(*expected, snap.UpdatedAt) {
		return newError(CodeStaleEntity, "%s %s was updated at %s, caller expected %s",
			snap.Kind, snap.ID, snap.UpdatedAt.UTC().Format(time.RFC3339Nano), expected.UTC().Format(time.RFC3339Nano))
	}
	return nil
}

func requireIdentity(caller authz.Caller) error {
	if caller.Anonymous() || caller.Roles == nil || caller.Roles.Cardinality() == 0 {
		return newError(CodeUnauthorized, "caller identity with a recognized role is required")
	}
	return nil
}

// loaded is an entity row read inside a transaction.
type loaded struct {
	snap    Entity
	version int64
	model   any
}

func (e *Engine) load(ctx context.Context, repo *CatalogRepository, kind EntityKind, id string) (*loaded, error) {
	switch kind {
	case KindUseCase:
		rec, err := repo.GetUseCase(ctx, id)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, newError(CodeNotFound, "use case %q not found", id)
		}
		return &loaded{snap: rec.entity(), version: rec.Version, model: &UseCaseRecord{}}, nil
	case KindMCPServer:
		rec, err := repo.GetMCPServer(ctx, id)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, newError(CodeNotFound, "mcp server %q not found", id)
		}
		return &loaded{snap: rec.entity(), version: rec.Version, model: &MCPServerRecord{}}, nil
	default:
		return nil, newError(CodeValidation, "unknown entity kind %q", kind)
	}
}

// TransitionUseCase follows req.Edge on the use case with id.
func (e *Engine) TransitionUseCase(ctx context.Context, id string, caller authz.Caller, req TransitionRequest) (*TransitionResult, error) {
	return e.transition(ctx, KindUseCase, id, caller, req)
}

// TransitionMCPServer follows req.Edge on the MCP server with id.
func (e *Engine) TransitionMCPServer(ctx context.Context, id string, caller authz.Caller, req TransitionRequest) (*TransitionResult, error) {
	return e.transition(ctx, KindMCPServer, id, caller, req)
}

func (e *Engine) transition(ctx context.Context, kind EntityKind, id string, caller authz.Caller, req TransitionRequest) (res *TransitionResult, err error) {
	start := time.Now()
	defer func() { e.metrics.observe(kind, req.Edge, err, time.Since(start)) }()

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := e.load(ctx, e.repo.WithTx(tx), kind, id)
		if err != nil {
			return err
		}
		if err := checkGuard(cur.snap, req.ExpectedUpdatedAt); err != nil {
			return err
		}
		dec, err := e.machine.Decide(cur.snap, req.Edge, caller, req.Reason)
		if err != nil {
			return err
		}
		if caller.Anonymous() {
			return newError(CodeUnauthorized, "caller identity is required")
		}
		if kind == KindUseCase && dec.Rule.Edge == EdgeDeprecate {
			if err := e.checkJustified(ctx, tx, id); err != nil {
				return err
			}
		}

		now := e.timestamp(cur.snap.UpdatedAt)
		updates := map[string]any{"state": dec.To, "updated_at": now}
		if kind == KindMCPServer {
			if dec.To == StateDeprecated {
				updates["deprecation_reason"] = strings.TrimSpace(req.Reason)
			} else {
				updates["deprecation_reason"] = nil
			}
		}
		if err := e.repo.WithTx(tx).CompareAndSwap(ctx, cur.model, id, cur.version, updates); err != nil {
			return err
		}

		result := &TransitionResult{
			EntityKind: kind,
			EntityID:   id,
			Edge:       dec.Rule.Edge,
			FromState:  dec.From,
			State:      dec.To,
			UpdatedAt:  now,
		}

		ledger := e.ledger.WithTx(tx)
		if dec.LedgerAction != "" {
			row := &ApprovalRecordRow{
				EntityID:      id,
				ApproverRole:  dec.Rule.LedgerRole,
				ApproverEmail: caller.Email,
				Action:        dec.LedgerAction,
				Comments:      strings.TrimSpace(req.Comments),
				CreatedAt:     now,
			}
			if _, err := ledger.Append(ctx, row); err != nil {
				return err
			}
			entry := row.toAPI()
			result.LedgerEntry = &entry
		}

		if err := e.events.WithTx(tx).Append(ctx, &TransitionEventRecord{
			EntityKind: kind,
			EntityID:   id,
			Edge:       dec.Rule.Edge,
			FromState:  dec.From,
			ToState:    dec.To,
			Actor:      caller.Email,
			ActorRoles: StringSet(caller.RoleStrings()),
			Comments:   strings.TrimSpace(req.Comments),
			Reason:     strings.TrimSpace(req.Reason),
			CreatedAt:  now,
		}); err != nil {
			return err
		}

		if kind == KindUseCase {
			rows, err := ledger.ListByEntity(ctx, id)
			if err != nil {
				return err
			}
			result.Ledger = approvalsToAPI(rows)
		}
		res = result
		return nil
	})
	if err != nil {
		err = classify("transition "+string(kind), err)
		if CodeOf(err) == CodeUnavailable {
			e.logger.Error("transition failed", "kind", kind, "id", id, "edge", req.Edge, "actor", caller.Email, "error", err)
		} else {
			e.logger.Info("transition refused", "kind", kind, "id", id, "edge", req.Edge, "actor", caller.Email, "code", CodeOf(err), "reason", err.Error())
		}
		return nil, err
	}

	e.logger.Info("transition applied", "kind", kind, "id", id, "edge", res.Edge,
		"from", res.FromState, "to", res.State, "actor", caller.Email)
	return res, nil
}

// checkJustified requires an active use case to carry an approving
// platform-admin record before it may be archived.
func (e *Engine) checkJustified(ctx context.Context, tx *gorm.DB, id string) error {
	rec, err := e.ledger.WithTx(tx).FindLatestByRole(ctx, id, roles.PlatformAdmin)
	if err != nil {
		return err
	}
	if rec == nil || rec.Action != ActionApproved {
		return newError(CodePreconditionFailed, "use case %s has no approving review on record", id)
	}
	return nil
}

// Approvals returns the ledger for a use case in append order. Records are
// returned even if the use case itself no longer exists.
func (e *Engine) Approvals(ctx context.Context, useCaseID string) ([]ApprovalRecord, error) {
	rows, err := e.ledger.ListByEntity(ctx, useCaseID)
	if err != nil {
		return nil, classify("list approvals", err)
	}
	if len(rows) == 0 {
		rec, err := e.repo.GetUseCase(ctx, useCaseID)
		if err != nil {
			return nil, classify("list approvals", err)
		}
		if rec == nil {
			return nil, newError(CodeNotFound, "use case %q not found", useCaseID)
		}
	}
	return approvalsToAPI(rows), nil
}

// Permissions evaluates the authorization gate for caller on an entity.
func (e *Engine) Permissions(ctx context.Context, kind EntityKind, id string, caller authz.Caller) (*Permissions, error) {
	cur, err := e.load(ctx, e.repo, kind, id)
	if err != nil {
		return nil, classify("load entity", err)
	}
	p := e.gate.Permissions(cur.snap, caller)
	return &p, nil
}

// editDenied explains why the gate refused an edit.
func (e *Engine) editDenied(snap Entity) error {
	if e.machine.IsTerminal(snap.Kind, snap.State) {
		return newError(CodePreconditionFailed, "%s in state %q is read-only", snap.Kind, snap.State)
	}
	return newError(CodeUnauthorized, "caller may not edit %s %s", snap.Kind, snap.ID)
}

// resolveBusinessUnit picks the requested business unit, falling back to the
// caller's own. Only platform governance may leave it empty.
func (e *Engine) resolveBusinessUnit(caller authz.Caller, requested *string) (string, error) {
	bu := caller.BusinessUnitID
	if requested != nil {
		bu = strings.TrimSpace(*requested)
	}
	if bu == "" {
		if caller.Has(roles.PlatformGovernance) {
			return "", nil
		}
		return "", newError(CodeValidation, "businessUnitId is required unless the caller holds %s", roles.PlatformGovernance)
	}
	if e.resolver != nil && !e.resolver.KnownBusinessUnit(bu) {
		return "", newError(CodeValidation, "unknown business unit %q", bu)
	}
	return bu, nil
}

func approvalsToAPI(rows []ApprovalRecordRow) []ApprovalRecord {
	out := make([]ApprovalRecord, len(rows))
	for i := range rows {
		out[i] = rows[i].toAPI()
	}
	return out
}
