package governance

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/authz"
	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/roles"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidation, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func caller(r *http.Request) authz.Caller {
	c, _ := authz.CallerFromContext(r.Context())
	return c
}

func pageParams(r *http.Request) (int, string) {
	pageSize := 0
	if ps := r.URL.Query().Get("pageSize"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 {
			pageSize = v
		}
	}
	return pageSize, r.URL.Query().Get("pageToken")
}

// listFilter reads state, owner and buId query parameters. state may be a
// comma separated list.
func listFilter(r *http.Request, machine *LifecycleMachine, kind EntityKind) (ListFilter, error) {
	q := r.URL.Query()
	f := ListFilter{
		OwnerEmail:        strings.ToLower(strings.TrimSpace(q.Get("owner"))),
		BusinessUnitID:    strings.TrimSpace(q.Get("buId")),
		BusinessUseCaseID: strings.TrimSpace(q.Get("useCaseId")),
	}
	if raw := q.Get("state"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			st := State(strings.TrimSpace(s))
			if !machine.ValidState(kind, st) {
				return f, newError(CodeValidation, "unknown %s state %q", kind, st)
			}
			f.States = append(f.States, st)
		}
	}
	return f, nil
}

func createUseCaseHandler(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateUseCaseRequest
		if !decodeBody(w, r, &req) {
			return
		}
		uc, err := engine.CreateUseCase(r.Context(), caller(r), req)
		if err != nil {
			writeGovernanceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, uc)
	}
}

func listUseCasesHandler(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := listFilter(r, engine.Machine(), KindUseCase)
		if err != nil {
			writeGovernanceError(w, err)
			return
		}
		pageSize, pageToken := pageParams(r)
		list, err := engine.ListUseCases(r.Context(), filter, pageSize, pageToken)
		if err != nil {
			writeGovernanceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func getUseCaseHandler(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uc, err := engine.GetUseCase(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeGovernanceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, uc)
	}
}

func patchUseCaseHandler(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateUseCaseRequest
		if !decodeBody(w, r, &req) {
			return
		}
		uc, err := engine.UpdateUseCase(r.Context(), chi.URLParam(r, "id"), caller(r), req)
		if err != nil {
			writeGovernanceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, uc)
	}
}

func deleteUseCaseHandler(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := engine.DeleteUseCase(r.Context(), chi.URLParam(r, "id"), caller(r)); err != nil {
			writeGovernanceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listApprovalsHandler(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		records, err := engine.Approvals(r.Context(), id)
		if err != nil {
			writeGovernanceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"entityId": id,
			"items":    records,
			"size":     len(records),
		})
	}
}

func createMCPServerHandler(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateMCPServerRequest
		if !decodeBody(w, r, &req) {
			return
		}
		s, err := engine.CreateMCPServer(r.Context(), caller(r), req)
		if err != nil {
			writeGovernanceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, s)
	}
}

func listMCPServersHandler(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := listFilter(r, engine.Machine(), KindMCPServer)
		if err != nil {
			writeGovernanceError(w, err)
			return
		}
		pageSize, pageToken := pageParams(r)
		list, err := engine.ListMCPServers(r.Context(), filter, pageSize, pageToken)
		if err != nil {
			writeGovernanceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func getMCPServerHandler(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := engine.GetMCPServer(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeGovernanceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}

func patchMCPServerHandler(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateMCPServerRequest
		if !decodeBody(w, r, &req) {
			return
		}
		s, err := engine.UpdateMCPServer(r.Context(), chi.URLParam(r, "id"), caller(r), req)
		if err != nil {
			writeGovernanceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}

func deleteMCPServerHandler(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := engine.DeleteMCPServer(r.Context(), chi.URLParam(r, "id"), caller(r)); err != nil {
			writeGovernanceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// transitionHandler is shared by both entity kinds.
func transitionHandler(engine *Engine, kind EntityKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TransitionRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Edge == "" {
			writeError(w, http.StatusBadRequest, CodeValidation, "edge is required")
			return
		}
		req.Edge = Edge(strings.ToLower(strings.TrimSpace(string(req.Edge))))

		var (
			res *TransitionResult
			err error
		)
		id := chi.URLParam(r, "id")
		if kind == KindUseCase {
			res, err = engine.TransitionUseCase(r.Context(), id, caller(r), req)
		} else {
			res, err = engine.TransitionMCPServer(r.Context(), id, caller(r), req)
		}
		if err != nil {
			writeGovernanceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func permissionsHandler(engine *Engine, kind EntityKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := engine.Permissions(r.Context(), kind, chi.URLParam(r, "id"), caller(r))
		if err != nil {
			writeGovernanceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// pendingApprovalsHandler handles GET /approvals/pending?role=&buId=.
// role is normalized like any identity-provider role name.
func pendingApprovalsHandler(engine *Engine, resolver *roles.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var role roles.Tag
		if raw := r.URL.Query().Get("role"); raw != "" {
			role = resolver.Normalize(raw)
			if role == roles.Unrecognized {
				writeError(w, http.StatusBadRequest, CodeValidation, fmt.Sprintf("unknown role %q", raw))
				return
			}
		}
		pending, err := engine.PendingApprovals(r.Context(), role, strings.TrimSpace(r.URL.Query().Get("buId")))
		if err != nil {
			writeGovernanceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, pending)
	}
}

func lifecycleHandler(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"graphs": engine.Machine().Graphs()})
	}
}

type roleResponse struct {
	Name        roles.Tag `json:"name"`
	Description string    `json:"description"`
}

func listRolesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out := make([]roleResponse, len(roles.Known))
		for i, t := range roles.Known {
			out[i] = roleResponse{Name: t, Description: t.Description()}
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": out})
	}
}

func listBusinessUnitsHandler(resolver *roles.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"items": resolver.BusinessUnits()})
	}
}

func whoAmIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := caller(r)
		writeJSON(w, http.StatusOK, map[string]any{
			"email":          c.Email,
			"roles":          c.RoleStrings(),
			"businessUnitId": c.BusinessUnitID,
			"isAdmin":        IsAdmin(c.Roles),
		})
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, code Code, message string) {
	writeJSON(w, status, map[string]string{"code": string(code), "message": message})
}

func writeGovernanceError(w http.ResponseWriter, err error) {
	code := CodeOf(err)
	if code == "" {
		code = "INTERNAL"
	}
	writeError(w, HTTPStatus(err), code, err.Error())
}
