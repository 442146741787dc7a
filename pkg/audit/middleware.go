package audit

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/authz"
	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/catalog/governance"
)

// writeTimeout bounds the best-effort audit write after a request completes.
const writeTimeout = 5 * time.Second

// responseCapture wraps http.ResponseWriter to capture the status code.
type responseCapture struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rc *responseCapture) WriteHeader(code int) {
	if !rc.written {
		rc.statusCode = code
		rc.written = true
	}
	rc.ResponseWriter.WriteHeader(code)
}

func (rc *responseCapture) Write(b []byte) (int, error) {
	if !rc.written {
		rc.statusCode = http.StatusOK
		rc.written = true
	}
	return rc.ResponseWriter.Write(b)
}

// AuditMiddleware records a RequestEventRecord for every governance mutation
// after the handler completes. It must run after authz.IdentityMiddleware.
func AuditMiddleware(store *RequestEventStore, cfg *AuditConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg == nil || !cfg.Enabled || store == nil || !isAudited(r.Method, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			startTime := time.Now()
			var edge string
			if r.Method == http.MethodPost {
				edge = peekEdge(r)
			}

			capture := &responseCapture{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(capture, r)

			outcome := outcomeFromStatus(capture.statusCode)
			if outcome == "denied" && !cfg.LogDenied {
				return
			}

			ctx := r.Context()
			actor := "anonymous"
			var roleNames []string
			if c, ok := authz.CallerFromContext(ctx); ok && !c.Anonymous() {
				actor = c.Email
				roleNames = c.RoleStrings()
			}

			requestID := middleware.GetReqID(ctx)
			correlationID := r.Header.Get("X-Correlation-ID")
			if correlationID == "" {
				correlationID = requestID
			}

			event := &RequestEventRecord{
				CorrelationID: correlationID,
				RequestID:     requestID,
				Actor:         actor,
				ActorRoles:    governance.StringSet(roleNames),
				Method:        r.Method,
				Path:          r.URL.Path,
				ResourceType:  extractResourceType(r.URL.Path),
				ResourceID:    extractResourceID(r.URL.Path),
				Action:        extractActionVerb(r.Method, r.URL.Path, edge),
				Outcome:       outcome,
				StatusCode:    capture.statusCode,
				DurationMs:    time.Since(startTime).Milliseconds(),
				CreatedAt:     startTime.UTC(),
			}

			// The request context may already be cancelled; the write is best effort.
			wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
			defer cancel()
			if err := store.Append(wctx, event); err != nil {
				logger.Error("failed to write audit event", "error", err, "requestID", requestID)
			}
		})
	}
}

// outcomeFromStatus maps HTTP status codes to audit outcomes.
func outcomeFromStatus(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "success"
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return "denied"
	case code == http.StatusConflict || code == http.StatusPreconditionFailed || code == http.StatusUnprocessableEntity:
		return "refused"
	default:
		return "failure"
	}
}
