package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gordonpn/pushworker/internal/domain"
	"github.com/gordonpn/pushworker/internal/service"
)

type pushSubscription struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256DH string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

type subscribeRequest struct {
	Subscription *pushSubscription `json:"subscription"`
	Topics       []string          `json:"topics"`
	UICode       string            `json:"ui_code"`
}

type unsubscribeRequest struct {
	Endpoint     string            `json:"endpoint"`
	Subscription *pushSubscription `json:"subscription"`
}

func (handlers *Handlers) subscribe(writer http.ResponseWriter, request *http.Request) {
	if !handlers.service.AllowSubscribe(requestIP(request)) {
		writeJSON(writer, http.StatusTooManyRequests, map[string]string{"error": "rate_limited"})
		return
	}

	var payload subscribeRequest
	if err := json.NewDecoder(http.MaxBytesReader(writer, request.Body, maxBodyBytes)).Decode(&payload); err != nil {
		writeJSON(writer, http.StatusUnprocessableEntity, map[string]string{"error": "invalid_subscription"})
		return
	}

	if !handlers.service.ValidateUICode(payload.UICode) {
		writeJSON(writer, http.StatusUnauthorized, map[string]string{"error": "invalid_access_code"})
		return
	}
	if payload.Subscription == nil {
		writeJSON(writer, http.StatusUnprocessableEntity, map[string]string{"error": "invalid_subscription"})
		return
	}

	subscription := domain.Subscription{
		Endpoint: strings.TrimSpace(payload.Subscription.Endpoint),
		P256DH:   strings.TrimSpace(payload.Subscription.Keys.P256DH),
		Auth:     strings.TrimSpace(payload.Subscription.Keys.Auth),
		Topics:   payload.Topics,
	}

	created, err := handlers.service.Subscribe(request.Context(), subscription)
	if errors.Is(err, service.ErrInvalidSubscription) {
		writeJSON(writer, http.StatusUnprocessableEntity, map[string]string{"error": "invalid_subscription"})
		return
	}
	if err != nil {
		log.Printf("subscribe upsert failed: %v", err)
		writeJSON(writer, http.StatusInternalServerError, map[string]string{"error": "internal_error"})
		return
	}

	statusCode := http.StatusOK
	if created {
		statusCode = http.StatusCreated
	}

	_, topics, err := handlers.service.SubscriptionsMe(request.Context(), subscription.Endpoint)
	if err != nil {
		log.Printf("subscribe readback failed: %v", err)
		writeJSON(writer, http.StatusInternalServerError, map[string]string{"error": "internal_error"})
		return
	}
	writeJSON(writer, statusCode, map[string]any{"status": "active", "topics": topics})
}

func (handlers *Handlers) unsubscribe(writer http.ResponseWriter, request *http.Request) {
	var payload unsubscribeRequest
	if err := json.NewDecoder(http.MaxBytesReader(writer, request.Body, maxBodyBytes)).Decode(&payload); err != nil {
		writeJSON(writer, http.StatusUnprocessableEntity, map[string]string{"error": "missing_endpoint"})
		return
	}

	endpoint := strings.TrimSpace(payload.Endpoint)
	if endpoint == "" && payload.Subscription != nil {
		endpoint = strings.TrimSpace(payload.Subscription.Endpoint)
	}
	if endpoint == "" {
		writeJSON(writer, http.StatusUnprocessableEntity, map[string]string{"error": "missing_endpoint"})
		return
	}

	if err := handlers.service.Unsubscribe(request.Context(), endpoint); err != nil {
		log.Printf("unsubscribe delete failed: %v", err)
		writeJSON(writer, http.StatusInternalServerError, map[string]string{"error": "internal_error"})
		return
	}

	writeJSON(writer, http.StatusOK, map[string]string{"status": "inactive"})
}

func (handlers *Handlers) subscriptionMe(writer http.ResponseWriter, request *http.Request) {
	endpoint := strings.TrimSpace(request.URL.Query().Get("endpoint"))
	if endpoint == "" {
		writeJSON(writer, http.StatusOK, map[string]any{"status": "inactive", "topics": []string{}})
		return
	}

	status, topics, err := handlers.service.SubscriptionsMe(request.Context(), endpoint)
	if err != nil {
		log.Printf("subscriptions/me query failed: %v", err)
		writeJSON(writer, http.StatusInternalServerError, map[string]string{"error": "internal_error"})
		return
	}

	writeJSON(writer, http.StatusOK, map[string]any{"status": status, "topics": topics})
}
