package notifications

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gordonpn/pushworker/internal/metrics"
)

const ntfyMaxAttempts = 5

type NtfyNotifier struct {
	client    *http.Client
	topicURL  string
	token     string
	priority  string
	baseDelay time.Duration
	metrics   *metrics.Metrics
}

func NewNtfyNotifier(client *http.Client, topicURL, token string, m *metrics.Metrics) *NtfyNotifier {
	return &NtfyNotifier{
		client:    client,
		topicURL:  strings.TrimSpace(topicURL),
		token:     strings.TrimSpace(token),
		priority:  "high",
		baseDelay: time.Second,
		metrics:   m,
	}
}

func (n *NtfyNotifier) Name() string {
	return "ntfy"
}

func (n *NtfyNotifier) Notify(ctx context.Context, note Notification) error {
	log.Printf("publishing notification to ntfy topic=%s id=%s bytes=%d", n.topicURL, note.ID, len(note.Body))

	for attempt := 1; attempt <= ntfyMaxAttempts; attempt++ {
		request, err := http.NewRequestWithContext(ctx, http.MethodPost, n.topicURL, bytes.NewBufferString(note.Body))
		if err != nil {
			return fmt.Errorf("build ntfy request: %w", err)
		}
		if n.token != "" {
			request.Header.Set("Authorization", "Bearer "+n.token)
		}
		if note.Title != "" {
			request.Header.Set("Title", note.Title)
		}
		request.Header.Set("Priority", n.priority)
		request.Header.Set("Tags", "bell")

		startTime := time.Now()
		response, err := n.client.Do(request)
		elapsed := time.Since(startTime)

		if err != nil {
			log.Printf("error posting to ntfy attempt=%d/%d err=%v", attempt, ntfyMaxAttempts, err)
			n.metrics.RecordNtfyPublish(elapsed, err)
			if attempt == ntfyMaxAttempts || ctx.Err() != nil {
				return fmt.Errorf("post ntfy: %w", err)
			}
			n.wait(ctx, retryAfterDelay("", attempt, n.baseDelay))
			continue
		}

		body, _ := io.ReadAll(response.Body)
		_ = response.Body.Close()

		if response.StatusCode == http.StatusTooManyRequests {
			wait := retryAfterDelay(response.Header.Get("Retry-After"), attempt, n.baseDelay)
			log.Printf("ntfy rate limited attempt=%d/%d wait=%v body=%s", attempt, ntfyMaxAttempts, wait, string(body))
			n.metrics.RecordNtfyPublish(elapsed, fmt.Errorf("rate limited"))
			if attempt == ntfyMaxAttempts {
				return fmt.Errorf("ntfy rate limited after %d attempts: %s", ntfyMaxAttempts, string(body))
			}
			n.wait(ctx, wait)
			continue
		}

		if response.StatusCode < 200 || response.StatusCode >= 300 {
			err := fmt.Errorf("ntfy status %d: %s", response.StatusCode, string(body))
			n.metrics.RecordNtfyPublish(elapsed, err)
			return err
		}

		n.metrics.RecordNtfyPublish(elapsed, nil)
		log.Printf("ntfy publish ok topic=%s id=%s", n.topicURL, note.ID)
		return nil
	}

	return fmt.Errorf("ntfy publish failed after %d attempts", ntfyMaxAttempts)
}

func (n *NtfyNotifier) wait(ctx context.Context, delay time.Duration) {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func retryAfterDelay(header string, attempt int, base time.Duration) time.Duration {
	if header != "" {
		if secs, err := strconv.Atoi(header); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
		if t, err := http.ParseTime(header); err == nil {
			d := time.Until(t)
			if d > 0 {
				return d
			}
		}
	}

	if base <= 0 {
		return 0
	}
	backoff := base * time.Duration(1<<uint(attempt-1))
	jitter := time.Duration(rand.Int63n(int64(base)))
	return backoff + jitter
}
