package httpapi

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gordonpn/pushworker/internal/service"
)

const maxBodyBytes = 64 * 1024

type Handlers struct {
	service *service.Service
}

// Options carries the handlers owned by other packages.
type Options struct {
	WebSocket http.Handler
	Metrics   http.Handler
}

func NewRouter(service *service.Service, options Options) http.Handler {
	handlers := &Handlers{service: service}
	router := chi.NewRouter()

	router.Get("/healthz", handlers.healthz)
	if options.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", options.Metrics)
	}
	if options.WebSocket != nil {
		router.Method(http.MethodGet, "/ws", options.WebSocket)
	}

	router.Route("/api", func(r chi.Router) {
		r.Post("/subscribe", handlers.subscribe)
		r.Post("/unsubscribe", handlers.unsubscribe)
		r.Get("/subscriptions/me", handlers.subscriptionMe)

		r.Post("/commands", handlers.command)
		r.Get("/badge", handlers.badge)
		r.Get("/permission", handlers.permission)
		r.Put("/permission", handlers.setPermission)

		r.With(handlers.hubSecretAuth).Post("/push", handlers.push)
	})

	return router
}

func (handlers *Handlers) hubSecretAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		header := request.Header.Get("X-Hub-Secret")
		if !handlers.service.ValidateHubSecret(header) {
			writeJSON(writer, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(writer, request)
	})
}

func (handlers *Handlers) healthz(writer http.ResponseWriter, _ *http.Request) {
	writer.WriteHeader(http.StatusOK)
	_, _ = writer.Write([]byte("ok"))
}

func requestIP(request *http.Request) string {
	forwardedFor := strings.TrimSpace(strings.Split(request.Header.Get("X-Forwarded-For"), ",")[0])
	if forwardedFor != "" {
		return forwardedFor
	}

	realIP := strings.TrimSpace(request.Header.Get("X-Real-IP"))
	if realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(request.RemoteAddr))
	if err != nil {
		return request.RemoteAddr
	}
	return host
}

func writeJSON(writer http.ResponseWriter, status int, payload any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	_ = json.NewEncoder(writer).Encode(payload)
}
