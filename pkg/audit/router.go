package audit

import (
	"github.com/go-chi/chi/v5"

	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/authz"
	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/catalog/governance"
	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/roles"
)

// Router creates a chi.Router for the audit API. When readers is non-empty,
// every endpoint requires an identified caller holding one of those roles.
func Router(requests *RequestEventStore, transitions *governance.TransitionEventStore, readers ...roles.Tag) chi.Router {
	r := chi.NewRouter()
	if len(readers) > 0 {
		r.Use(authz.RequireCaller(), authz.RequireAnyRole(readers...))
	}

	r.Get("/events", ListTransitionEventsHandler(transitions))
	r.Get("/requests", ListRequestEventsHandler(requests))
	r.Get("/requests/{eventId}", GetRequestEventHandler(requests))

	return r
}
