package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/gondi/internal/hub"
	"github.com/DoyleJ11/gondi/internal/ws"
)

func SetupRoutes(h *hub.Hub, d ws.Dispatcher, src SessionSource, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/session", Session(src))
	r.Get("/session/qr.png", SessionQR(src))
	r.Get("/ws", ws.Handler(h, d, log.Named("ws")))
	return r
}
