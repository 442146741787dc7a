package governance

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/abhixz13/AICanvasIntegrationLayer-sub000/pkg/roles"
)

// RouterOption configures NewRouter.
type RouterOption func(*routerOptions)

type routerOptions struct {
	metadata []func(http.Handler) http.Handler
}

// WithMetadataMiddleware wraps the caller-independent metadata routes
// (lifecycle, roles, business units) with mw.
func WithMetadataMiddleware(mw ...func(http.Handler) http.Handler) RouterOption {
	return func(o *routerOptions) {
		o.metadata = append(o.metadata, mw...)
	}
}

// NewRouter creates a chi router with the governance API routes. Callers are
// expected to be resolved by authz.IdentityMiddleware upstream.
func NewRouter(engine *Engine, resolver *roles.Resolver, opts ...RouterOption) chi.Router {
	var o routerOptions
	for _, opt := range opts {
		opt(&o)
	}
	r := chi.NewRouter()

	r.Route("/use-cases", func(r chi.Router) {
		r.Get("/", listUseCasesHandler(engine))
		r.Post("/", createUseCaseHandler(engine))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", getUseCaseHandler(engine))
			r.Patch("/", patchUseCaseHandler(engine))
			r.Delete("/", deleteUseCaseHandler(engine))
			r.Post("/transition", transitionHandler(engine, KindUseCase))
			r.Get("/approvals", listApprovalsHandler(engine))
			r.Get("/permissions", permissionsHandler(engine, KindUseCase))
		})
	})

	r.Route("/mcp-servers", func(r chi.Router) {
		r.Get("/", listMCPServersHandler(engine))
		r.Post("/", createMCPServerHandler(engine))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", getMCPServerHandler(engine))
			r.Patch("/", patchMCPServerHandler(engine))
			r.Delete("/", deleteMCPServerHandler(engine))
			r.Post("/transition", transitionHandler(engine, KindMCPServer))
			r.Get("/permissions", permissionsHandler(engine, KindMCPServer))
		})
	})

	r.Get("/approvals/pending", pendingApprovalsHandler(engine, resolver))
	r.Group(func(r chi.Router) {
		r.Use(o.metadata...)
		r.Get("/lifecycle", lifecycleHandler(engine))
		r.Get("/roles", listRolesHandler())
		r.Get("/business-units", listBusinessUnitsHandler(resolver))
	})
	r.Get("/whoami", whoAmIHandler())

	return r
}
