package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/biovolt/marketplace-api/internal/platform/auth"
	"github.com/biovolt/marketplace-api/internal/platform/httpx"
	"github.com/biovolt/marketplace-api/internal/platform/observability"
)

// RouteRegistrar mounts a group of routes on a router.
type RouteRegistrar interface {
	Register(r chi.Router)
}

type routerOptions struct {
	logger      *zap.Logger
	authMW      *auth.Middleware
	rateLimiter *RateLimiter
	timeout     time.Duration

	public    []RouteRegistrar
	optional  []RouteRegistrar
	protected []RouteRegistrar
	admin     []RouteRegistrar
	raw       []RouteRegistrar
	root      []RouteRegistrar
}

// RouterOption customises NewRouter.
type RouterOption func(*routerOptions)

// WithLogger sets the base logger injected into every request.
func WithLogger(logger *zap.Logger) RouterOption {
	return func(o *routerOptions) { o.logger = logger }
}

// WithAuth sets the authentication middleware used by the route groups.
func WithAuth(m *auth.Middleware) RouterOption {
	return func(o *routerOptions) { o.authMW = m }
}

// WithRateLimiter applies the limiter to the public API groups.
func WithRateLimiter(rl *RateLimiter) RouterOption {
	return func(o *routerOptions) { o.rateLimiter = rl }
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) RouterOption {
	return func(o *routerOptions) { o.timeout = d }
}

// WithPublicRoutes mounts unauthenticated routes under /api/v1.
func WithPublicRoutes(regs ...RouteRegistrar) RouterOption {
	return func(o *routerOptions) { o.public = append(o.public, regs...) }
}

// WithOptionalAuthRoutes mounts routes where a bearer token is honoured but
// not required, such as the cart.
func WithOptionalAuthRoutes(regs ...RouteRegistrar) RouterOption {
	return func(o *routerOptions) { o.optional = append(o.optional, regs...) }
}

// WithProtectedRoutes mounts routes requiring an authenticated caller.
func WithProtectedRoutes(regs ...RouteRegistrar) RouterOption {
	return func(o *routerOptions) { o.protected = append(o.protected, regs...) }
}

// WithAdminRoutes mounts routes requiring the admin role.
func WithAdminRoutes(regs ...RouteRegistrar) RouterOption {
	return func(o *routerOptions) { o.admin = append(o.admin, regs...) }
}

// WithRawRoutes mounts routes that must see the request body untouched, such
// as signed webhooks. They skip the timeout and rate limit middleware.
func WithRawRoutes(regs ...RouteRegistrar) RouterOption {
	return func(o *routerOptions) { o.raw = append(o.raw, regs...) }
}

// WithRootRoutes mounts routes at the server root, outside /api/v1.
func WithRootRoutes(regs ...RouteRegistrar) RouterOption {
	return func(o *routerOptions) { o.root = append(o.root, regs...) }
}

// NewRouter assembles the chi router with the shared middleware stack.
func NewRouter(opts ...RouterOption) http.Handler {
	o := &routerOptions{timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(o)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.InjectLoggerMiddleware(o.logger))
	r.Use(observability.RequestLoggerMiddleware)
	r.Use(observability.RecoveryMiddleware)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("not_found", "resource not found", http.StatusNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("method_not_allowed", "method not allowed", http.StatusMethodNotAllowed))
	})

	for _, reg := range o.root {
		reg.Register(r)
	}

	r.Route("/api/v1", func(api chi.Router) {
		// Webhooks carry their own signature check and must receive the
		// raw body without interference.
		for _, reg := range o.raw {
			reg.Register(api)
		}

		api.Group(func(g chi.Router) {
			g.Use(middleware.Timeout(o.timeout))
			if o.rateLimiter != nil {
				g.Use(o.rateLimiter.Middleware)
			}

			for _, reg := range o.public {
				reg.Register(g)
			}

			if o.authMW != nil {
				g.Group(func(gr chi.Router) {
					gr.Use(o.authMW.Optional)
					for _, reg := range o.optional {
						reg.Register(gr)
					}
				})
				g.Group(func(gr chi.Router) {
					gr.Use(o.authMW.RequireAuth())
					for _, reg := range o.protected {
						reg.Register(gr)
					}
				})
				g.Group(func(gr chi.Router) {
					gr.Use(o.authMW.RequireAuth(auth.RoleAdmin))
					for _, reg := range o.admin {
						reg.Register(gr)
					}
				})
			}
		})
	})

	return r
}

// registrarFunc adapts a function to the RouteRegistrar interface.
type registrarFunc func(r chi.Router)

func (f registrarFunc) Register(r chi.Router) { f(r) }

// Registrar wraps a route-mounting function as a RouteRegistrar.
func Registrar(fn func(r chi.Router)) RouteRegistrar { return registrarFunc(fn) }
