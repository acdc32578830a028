package http

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"intakeflow/internal/domain/user"
	"intakeflow/internal/http/handlers"
	httpmw "intakeflow/internal/http/middleware"
	"intakeflow/internal/observability"
)

type RouterDependencies struct {
	PositionHandler *handlers.PositionHandler
	SessionHandler  *handlers.SessionHandler
	ReviewHandler   *handlers.ReviewHandler
	MetricsHandler  http.Handler
	AuthMiddleware  *httpmw.AuthMiddleware
	Metrics         *observability.Metrics
	Logger          *zap.Logger
	RequestTimeout  time.Duration
}

type Router struct {
	deps RouterDependencies
}

const maxBodyBytes = 1 << 20

func NewRouter(deps RouterDependencies) http.Handler {
	return &Router{deps: deps}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	handler := httpmw.Chain(r.baseHandler(),
		httpmw.RequestID,
		httpmw.Logging(r.deps.Logger),
		httpmw.BodyLimit(maxBodyBytes),
		httpmw.Recover(r.deps.Logger),
		httpmw.Metrics(r.deps.Metrics),
		httpmw.Timeout(r.deps.RequestTimeout))
	handler.ServeHTTP(w, req)
}

func (r *Router) baseHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		path := req.URL.Path

		switch {
		case req.Method == http.MethodGet && path == "/health":
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		case req.Method == http.MethodGet && path == "/metrics":
			r.deps.MetricsHandler.ServeHTTP(w, req)
			return
		case req.Method == http.MethodGet && path == "/positions":
			r.deps.PositionHandler.List(w, req)
			return
		case req.Method == http.MethodGet && strings.HasPrefix(path, "/positions/") && strings.Count(path, "/") == 2:
			r.deps.PositionHandler.Get(w, req)
			return
		}

		if strings.HasPrefix(path, "/positions/") || strings.HasPrefix(path, "/review/") {
			protected := r.deps.AuthMiddleware.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				r.handleProtected(w, req)
			}))
			protected.ServeHTTP(w, req)
			return
		}

		http.NotFound(w, req)
	})
}

func (r *Router) handleProtected(w http.ResponseWriter, req *http.Request) {
	path := req.URL.Path

	switch {
	case req.Method == http.MethodPost && strings.HasPrefix(path, "/positions/") && strings.HasSuffix(path, "/session"):
		r.deps.SessionHandler.Start(w, req)
		return
	case req.Method == http.MethodGet && strings.HasPrefix(path, "/positions/") && strings.HasSuffix(path, "/session"):
		r.deps.SessionHandler.Get(w, req)
		return
	case req.Method == http.MethodPut && strings.HasPrefix(path, "/positions/") && strings.HasSuffix(path, "/answers"):
		r.deps.SessionHandler.SaveAnswer(w, req)
		return
	case req.Method == http.MethodPost && strings.HasPrefix(path, "/positions/") && strings.HasSuffix(path, "/navigate"):
		r.deps.SessionHandler.Navigate(w, req)
		return
	case req.Method == http.MethodPost && strings.HasPrefix(path, "/positions/") && strings.HasSuffix(path, "/submit"):
		r.deps.SessionHandler.Submit(w, req)
		return
	case req.Method == http.MethodGet && path == "/review/applications":
		httpmw.RequireRole(user.RoleStaff)(http.HandlerFunc(r.deps.ReviewHandler.List)).ServeHTTP(w, req)
		return
	case req.Method == http.MethodGet && strings.HasPrefix(path, "/review/applications/") && strings.Count(path, "/") == 3:
		httpmw.RequireRole(user.RoleStaff)(http.HandlerFunc(r.deps.ReviewHandler.Get)).ServeHTTP(w, req)
		return
	case req.Method == http.MethodPatch && strings.HasPrefix(path, "/review/applications/") && strings.HasSuffix(path, "/status"):
		httpmw.RequireRole(user.RoleStaff)(http.HandlerFunc(r.deps.ReviewHandler.UpdateStatus)).ServeHTTP(w, req)
		return
	}

	http.NotFound(w, req)
}
