// Package httpapi is the operator console: the dashboard's actions and views
// over HTTP, plus a websocket stream of views.
package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/relay-dashboard/internal/dashboard"
	"github.com/DoyleJ11/relay-dashboard/internal/metrics"
)

// Console is what the HTTP surface drives. *dashboard.Controller satisfies it.
type Console interface {
	Configure(ctx context.Context, url1, url2 string) error
	ConfigureSaved(ctx context.Context) error
	DisconnectAll(ctx context.Context) error
	ResetAllMax(ctx context.Context) error
	ResetOneMax(ctx context.Context, tag string) error
	FetchStatus(ctx context.Context) error
	View(ctx context.Context) (dashboard.View, error)
	Subscribe(ctx context.Context, id string, out chan dashboard.View) error
	Unsubscribe(id string)
}

func SetupRoutes(c Console, m *metrics.Metrics, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	r.Post("/configure", Configure(c))
	r.Post("/disconnect", Disconnect(c))
	r.Post("/reset", ResetAll(c))
	r.Post("/reset/{tag}", ResetTag(c))
	r.Post("/refresh", Refresh(c))

	r.Get("/view", GetView(c))
	r.Get("/table", GetTable(c))
	r.Get("/ws", Stream(c, log))

	r.Get("/healthz", Healthz)
	r.Method(http.MethodGet, "/metrics", m.Handler())
	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
