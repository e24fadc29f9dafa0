package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gordonpn/pushworker/internal/domain"
	"github.com/gordonpn/pushworker/internal/service"
)

type permissionRequest struct {
	State  string `json:"state"`
	UICode string `json:"ui_code"`
}

// command accepts the same frames the WebSocket carries.
func (handlers *Handlers) command(writer http.ResponseWriter, request *http.Request) {
	if !handlers.service.AllowCommand(requestIP(request)) {
		writeJSON(writer, http.StatusTooManyRequests, map[string]string{"error": "rate_limited"})
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(writer, request.Body, maxBodyBytes))
	if err != nil || !json.Valid(raw) {
		writeJSON(writer, http.StatusUnprocessableEntity, map[string]string{"error": "invalid_command"})
		return
	}

	if err := handlers.service.SubmitCommand(raw); err != nil {
		writeSubmitError(writer, err)
		return
	}
	writeJSON(writer, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// push stands in for the push service. An empty body is a push without payload.
func (handlers *Handlers) push(writer http.ResponseWriter, request *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(writer, request.Body, maxBodyBytes))
	if err != nil {
		writeJSON(writer, http.StatusUnprocessableEntity, map[string]string{"error": "invalid_payload"})
		return
	}

	var payload domain.PushPayload
	if len(raw) > 0 {
		payload, err = domain.DecodePushPayload(raw)
		if err != nil {
			writeJSON(writer, http.StatusUnprocessableEntity, map[string]string{"error": "invalid_payload"})
			return
		}
	}

	if err := handlers.service.SubmitPush(payload); err != nil {
		writeSubmitError(writer, err)
		return
	}
	writeJSON(writer, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (handlers *Handlers) badge(writer http.ResponseWriter, request *http.Request) {
	state, err := handlers.service.Badge(request.Context())
	if err != nil {
		log.Printf("badge read failed: %v", err)
		writeJSON(writer, http.StatusInternalServerError, map[string]string{"error": "internal_error"})
		return
	}
	writeJSON(writer, http.StatusOK, state)
}

func (handlers *Handlers) permission(writer http.ResponseWriter, request *http.Request) {
	state, err := handlers.service.Permission(request.Context())
	if err != nil {
		log.Printf("permission read failed: %v", err)
		writeJSON(writer, http.StatusInternalServerError, map[string]string{"error": "internal_error"})
		return
	}
	writeJSON(writer, http.StatusOK, map[string]string{"state": string(state)})
}

// setPermission records the outcome of the foreground's own permission request.
func (handlers *Handlers) setPermission(writer http.ResponseWriter, request *http.Request) {
	var payload permissionRequest
	if err := json.NewDecoder(http.MaxBytesReader(writer, request.Body, maxBodyBytes)).Decode(&payload); err != nil {
		writeJSON(writer, http.StatusUnprocessableEntity, map[string]string{"error": "invalid_permission"})
		return
	}

	if !handlers.service.ValidateUICode(payload.UICode) {
		writeJSON(writer, http.StatusUnauthorized, map[string]string{"error": "invalid_access_code"})
		return
	}

	state, err := domain.ParsePermission(payload.State)
	if err != nil {
		writeJSON(writer, http.StatusUnprocessableEntity, map[string]string{"error": "invalid_permission"})
		return
	}

	if err := handlers.service.SetPermission(request.Context(), state); err != nil {
		log.Printf("permission write failed: %v", err)
		writeJSON(writer, http.StatusInternalServerError, map[string]string{"error": "internal_error"})
		return
	}
	writeJSON(writer, http.StatusOK, map[string]string{"state": string(state)})
}

func writeSubmitError(writer http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrShuttingDown) {
		writeJSON(writer, http.StatusServiceUnavailable, map[string]string{"error": "shutting_down"})
		return
	}
	log.Printf("event submit failed: %v", err)
	writeJSON(writer, http.StatusInternalServerError, map[string]string{"error": "internal_error"})
}
