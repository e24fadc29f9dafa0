package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gordonpn/pushworker/internal/domain"
)

func buildPayload(title, body string, data map[string]string, dataOnly bool) domain.PushPayload {
	payload := domain.PushPayload{Data: data}
	if !dataOnly {
		payload.Notification = &domain.PushNotification{Title: title, Body: body}
	}
	return payload
}

func sendHTTP(ctx context.Context, client *http.Client, url, secret string, payload domain.PushPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode push payload: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("X-Hub-Secret", secret)

	response, err := client.Do(request)
	if err != nil {
		return fmt.Errorf("post push: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusAccepted {
		raw, _ := io.ReadAll(response.Body)
		return fmt.Errorf("push-worker status %d: %s", response.StatusCode, string(raw))
	}
	return nil
}
