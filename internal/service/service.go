package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/gordonpn/pushworker/internal/config"
	"github.com/gordonpn/pushworker/internal/domain"
	"github.com/gordonpn/pushworker/internal/permission"
	"github.com/gordonpn/pushworker/internal/ratelimit"
	"github.com/gordonpn/pushworker/internal/store"
)

var (
	ErrShuttingDown        = errors.New("worker is shutting down")
	ErrInvalidSubscription = errors.New("invalid subscription")
)

// Events is the worker host as seen from the API.
type Events interface {
	Push(payload domain.PushPayload) bool
	Message(raw []byte) bool
}

type BadgeReader interface {
	State(ctx context.Context) (domain.BadgeState, error)
}

type Dependencies struct {
	Repository       store.Repository
	SubscribeLimiter *ratelimit.Limiter
	CommandLimiter   *ratelimit.Limiter
	Permissions      permission.Store
	Badge            BadgeReader
	Events           Events
}

type Service struct {
	config           config.Config
	repository       store.Repository
	subscribeLimiter *ratelimit.Limiter
	commandLimiter   *ratelimit.Limiter
	permissions      permission.Store
	badge            BadgeReader
	events           Events
}

func New(config config.Config, dependencies Dependencies) *Service {
	return &Service{
		config:           config,
		repository:       dependencies.Repository,
		subscribeLimiter: dependencies.SubscribeLimiter,
		commandLimiter:   dependencies.CommandLimiter,
		permissions:      dependencies.Permissions,
		badge:            dependencies.Badge,
		events:           dependencies.Events,
	}
}

func (service *Service) AllowSubscribe(ip string) bool {
	return service.subscribeLimiter == nil || service.subscribeLimiter.Allow(ip)
}

func (service *Service) AllowCommand(ip string) bool {
	return service.commandLimiter == nil || service.commandLimiter.Allow(ip)
}

func (service *Service) ValidateUICode(code string) bool {
	return secureCompare(service.config.HubUICode, code)
}

func (service *Service) ValidateHubSecret(secret string) bool {
	return secureCompare(service.config.HubSecret, secret)
}

// SubmitPush hands an inbound push to the worker.
func (service *Service) SubmitPush(payload domain.PushPayload) error {
	if !service.events.Push(payload) {
		return ErrShuttingDown
	}
	return nil
}

// SubmitCommand hands a raw client frame to the worker, exactly as a WebSocket frame would be.
func (service *Service) SubmitCommand(raw []byte) error {
	if !service.events.Message(raw) {
		return ErrShuttingDown
	}
	return nil
}

func (service *Service) Permission(ctx context.Context) (domain.PermissionState, error) {
	return service.permissions.Permission(ctx)
}

func (service *Service) SetPermission(ctx context.Context, state domain.PermissionState) error {
	return service.permissions.SetPermission(ctx, state)
}

func (service *Service) Badge(ctx context.Context) (domain.BadgeState, error) {
	if service.badge == nil {
		return domain.BadgeState{Supported: false, Cleared: true}, nil
	}
	return service.badge.State(ctx)
}

// Subscribe stores a Web Push subscription. Missing topics default to the worker topic.
func (service *Service) Subscribe(ctx context.Context, subscription domain.Subscription) (bool, error) {
	if !subscription.Valid() {
		return false, ErrInvalidSubscription
	}

	topics := make([]string, 0, len(subscription.Topics))
	seen := make(map[string]struct{}, len(subscription.Topics))
	for _, topic := range subscription.Topics {
		topic = domain.NormalizeTopic(topic)
		if _, ok := seen[topic]; ok {
			continue
		}
		seen[topic] = struct{}{}
		topics = append(topics, topic)
	}
	if len(topics) == 0 {
		topics = append(topics, domain.NormalizeTopic(service.config.PushTopic))
	}
	subscription.Topics = topics

	created, err := service.repository.UpsertSubscription(ctx, subscription)
	if err != nil {
		return false, fmt.Errorf("subscribe: %w", err)
	}
	return created, nil
}

func (service *Service) Unsubscribe(ctx context.Context, endpoint string) error {
	return service.repository.DeleteByEndpoint(ctx, endpoint)
}

func (service *Service) SubscriptionsMe(ctx context.Context, endpoint string) (string, []string, error) {
	subscription, found, err := service.repository.GetSubscriptionByEndpoint(ctx, endpoint)
	if err != nil {
		return "", nil, err
	}
	if !found {
		return "inactive", []string{}, nil
	}
	return "active", subscription.Topics, nil
}

func secureCompare(expected, actual string) bool {
	if len(expected) == 0 || len(actual) == 0 {
		return false
	}
	if len(expected) != len(actual) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(actual)) == 1
}
