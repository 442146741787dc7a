package audit

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/authz"
	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/catalog/governance"
	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/roles"
)

func asCaller(r *http.Request, email string, tags ...roles.Tag) *http.Request {
	return r.WithContext(authz.WithCaller(r.Context(), authz.Caller{Email: email, Roles: roles.NewSet(tags...)}))
}

func TestRouter_TransitionEvents(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	engine := governance.NewEngine(db, governance.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	owner := authz.Caller{Email: "alice@example.com", Roles: roles.NewSet(roles.Publisher), BusinessUnitID: "eng"}
	uc, err := engine.CreateUseCase(ctx, owner, governance.CreateUseCaseRequest{Title: "Audit me"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := engine.TransitionUseCase(ctx, uc.ID, owner, governance.TransitionRequest{Edge: governance.EdgeSubmit}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	r := Router(NewRequestEventStore(db), engine.Events(), roles.PlatformGovernance)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/events", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for anonymous caller, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, asCaller(httptest.NewRequest("GET", "/events", nil), "alice@example.com", roles.Publisher))
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for publisher, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := asCaller(httptest.NewRequest("GET", "/events?entityId="+uc.ID, nil), "gov@example.com", roles.PlatformGovernance)
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Events []governance.TransitionEvent `json:"events"`
		Size   int                          `json:"size"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Size != 1 || resp.Events[0].Edge != governance.EdgeSubmit {
		t.Errorf("unexpected events %+v", resp.Events)
	}
	if resp.Events[0].Actor != "alice@example.com" {
		t.Errorf("expected actor alice@example.com, got %s", resp.Events[0].Actor)
	}
}

func TestRouter_RequestEvents(t *testing.T) {
	db := newTestDB(t)
	store := NewRequestEventStore(db)
	ctx := context.Background()
	ev := &RequestEventRecord{Actor: "bob@example.com", Method: "DELETE", Action: "delete", Outcome: "denied", StatusCode: 403}
	if err := store.Append(ctx, ev); err != nil {
		t.Fatalf("append: %v", err)
	}

	r := Router(store, governance.NewTransitionEventStore(db))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/requests?outcome=denied", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var list struct {
		Events []requestEventResponse `json:"events"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Events) != 1 || list.Events[0].ID != ev.ID {
		t.Errorf("unexpected events %+v", list.Events)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/requests/"+ev.ID, nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/requests/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
