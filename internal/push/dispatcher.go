package push

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gordonpn/pushworker/internal/domain"
	"github.com/gordonpn/pushworker/internal/metrics"
)

var (
	ErrDispatcherStopped = errors.New("push dispatcher stopped")
	ErrMissingVAPID      = errors.New("missing VAPID configuration")
)

type DeleteByEndpointFunc func(context.Context, string) error

// SendFunc delivers one encrypted Web Push message.
type SendFunc func(payload []byte, subscription *webpush.Subscription, options *webpush.Options) (*http.Response, error)

type Config struct {
	WorkerCount        int
	QueueSize          int
	MaxRetries         int
	RetryBaseBackoffMS int
	TTLSeconds         int
	Topic              string
	VAPIDPublicKey     string
	VAPIDPrivateKey    string
	VAPIDSubject       string
}

func (config Config) Configured() bool {
	return config.VAPIDPublicKey != "" && config.VAPIDPrivateKey != "" && config.VAPIDSubject != ""
}

type task struct {
	subscription domain.Subscription
	payload      []byte
}

type Dispatcher struct {
	config     Config
	deleteByEP DeleteByEndpointFunc
	send       SendFunc
	metrics    *metrics.Metrics

	mu        sync.RWMutex
	stopped   bool
	queue     chan task
	waitGroup sync.WaitGroup
}

func New(config Config, deleteByEndpoint DeleteByEndpointFunc, m *metrics.Metrics) *Dispatcher {
	if config.WorkerCount < 1 {
		config.WorkerCount = 1
	}
	if config.QueueSize < 1 {
		config.QueueSize = 128
	}
	if config.Topic == "" {
		config.Topic = "push-worker"
	}

	return &Dispatcher{
		config:     config,
		deleteByEP: deleteByEndpoint,
		send:       webpush.SendNotification,
		metrics:    m,
		queue:      make(chan task, config.QueueSize),
	}
}

// WithSender replaces the Web Push client. Call before Start.
func (dispatcher *Dispatcher) WithSender(send SendFunc) *Dispatcher {
	dispatcher.send = send
	return dispatcher
}

func (dispatcher *Dispatcher) Configured() bool {
	return dispatcher.config.Configured()
}

func (dispatcher *Dispatcher) Start() {
	for range dispatcher.config.WorkerCount {
		dispatcher.waitGroup.Add(1)
		go func() {
			defer dispatcher.waitGroup.Done()
			for item := range dispatcher.queue {
				dispatcher.sendWithRetry(item)
			}
		}()
	}
}

// Stop drains queued messages and waits for the workers.
func (dispatcher *Dispatcher) Stop() {
	dispatcher.mu.Lock()
	if dispatcher.stopped {
		dispatcher.mu.Unlock()
		return
	}
	dispatcher.stopped = true
	close(dispatcher.queue)
	dispatcher.mu.Unlock()

	dispatcher.waitGroup.Wait()
}

// Enqueue blocks while the queue is full, until ctx is done.
func (dispatcher *Dispatcher) Enqueue(ctx context.Context, subscription domain.Subscription, payload []byte) error {
	dispatcher.mu.RLock()
	defer dispatcher.mu.RUnlock()

	if dispatcher.stopped {
		return ErrDispatcherStopped
	}

	select {
	case dispatcher.queue <- task{subscription: subscription, payload: payload}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (dispatcher *Dispatcher) EnqueueMany(ctx context.Context, subscriptions []domain.Subscription, payload []byte) (int, error) {
	queued := 0
	for _, subscription := range subscriptions {
		if err := dispatcher.Enqueue(ctx, subscription, payload); err != nil {
			return queued, err
		}
		queued++
	}
	return queued, nil
}

func (dispatcher *Dispatcher) sendWithRetry(item task) {
	if !dispatcher.config.Configured() {
		log.Printf("push send skipped endpoint=%s err=missing_vapid_config", redactEndpoint(item.subscription.Endpoint))
		return
	}

	options := &webpush.Options{
		Subscriber:      dispatcher.config.VAPIDSubject,
		VAPIDPublicKey:  dispatcher.config.VAPIDPublicKey,
		VAPIDPrivateKey: dispatcher.config.VAPIDPrivateKey,
		TTL:             dispatcher.config.TTLSeconds,
		Urgency:         webpush.UrgencyHigh,
		Topic:           dispatcher.config.Topic,
	}

	subscription := &webpush.Subscription{
		Endpoint: item.subscription.Endpoint,
		Keys: webpush.Keys{
			P256dh: item.subscription.P256DH,
			Auth:   item.subscription.Auth,
		},
	}

	for attempt := 0; attempt <= dispatcher.config.MaxRetries; attempt++ {
		if attempt > 0 {
			dispatcher.metrics.RecordWebPushRetry()
		}

		started := time.Now()
		response, err := dispatcher.send(item.payload, subscription, options)
		dispatcher.metrics.RecordWebPush(time.Since(started), err)
		if err != nil {
			if attempt < dispatcher.config.MaxRetries {
				time.Sleep(backoffDuration(dispatcher.config.RetryBaseBackoffMS, attempt))
				continue
			}
			log.Printf("push send error endpoint=%s err=%v", redactEndpoint(item.subscription.Endpoint), err)
			return
		}

		_, _ = io.Copy(io.Discard, response.Body)
		_ = response.Body.Close()

		if response.StatusCode >= 200 && response.StatusCode <= 299 {
			return
		}

		if response.StatusCode == http.StatusGone || response.StatusCode == http.StatusNotFound {
			dispatcher.metrics.RecordWebPushGone()
			if dispatcher.deleteByEP == nil {
				return
			}
			if err := dispatcher.deleteByEP(context.Background(), item.subscription.Endpoint); err != nil {
				log.Printf("failed deleting gone subscription endpoint=%s err=%v", redactEndpoint(item.subscription.Endpoint), err)
			}
			return
		}

		if response.StatusCode >= 500 && response.StatusCode <= 599 && attempt < dispatcher.config.MaxRetries {
			time.Sleep(backoffDuration(dispatcher.config.RetryBaseBackoffMS, attempt))
			continue
		}

		log.Printf("push send failed endpoint=%s status=%d", redactEndpoint(item.subscription.Endpoint), response.StatusCode)
		return
	}
}

func backoffDuration(baseMS, attempt int) time.Duration {
	if baseMS < 1 {
		baseMS = 1
	}
	delay := baseMS << attempt
	return time.Duration(delay) * time.Millisecond
}

func redactEndpoint(endpoint string) string {
	if endpoint == "" {
		return "unknown"
	}
	if strings.HasPrefix(endpoint, "https://") || strings.HasPrefix(endpoint, "http://") {
		parts := strings.Split(endpoint, "/")
		if len(parts) >= 3 {
			return parts[0] + "//" + parts[2]
		}
	}
	return "unknown"
}
