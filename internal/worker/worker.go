package worker

import (
	"github.com/gordonpn/pushworker/internal/metrics"
)

const (
	DefaultPushTitle = "New Message"
	DefaultPushBody  = "You have a new message"

	LocalNotificationTitle = "Local Notification"
	LocalNotificationBody  = "This was sent from the push worker, without using the Push API"

	DefaultPushBadgeCount  = 4
	DefaultLocalBadgeCount = 1
	DefaultIcon            = "./icon-192.png"
)

type Config struct {
	// PushBadgeCount is the fixed demo count set on every inbound push.
	PushBadgeCount int
	// LocalBadgeCount is set alongside a local notification.
	LocalBadgeCount int
	Icon            string
}

func DefaultConfig() Config {
	return Config{
		PushBadgeCount:  DefaultPushBadgeCount,
		LocalBadgeCount: DefaultLocalBadgeCount,
		Icon:            DefaultIcon,
	}
}

// Ports bundles the host capabilities the worker is bound to.
type Ports struct {
	Registry      ClientRegistry
	Badge         BadgeSurface
	Notifications NotificationSurface
	Permissions   PermissionQuery
}

// Worker turns events into effects. It keeps no state between events.
type Worker struct {
	config    Config
	registry  ClientRegistry
	logger    *Broadcaster
	badge     *BadgeController
	presenter *Presenter
	metrics   *metrics.Metrics
}

func New(config Config, ports Ports, m *metrics.Metrics) *Worker {
	if config.PushBadgeCount < 0 {
		config.PushBadgeCount = DefaultPushBadgeCount
	}
	if config.LocalBadgeCount < 0 {
		config.LocalBadgeCount = DefaultLocalBadgeCount
	}

	logger := NewBroadcaster(ports.Registry, m)
	return &Worker{
		config:    config,
		registry:  ports.Registry,
		logger:    logger,
		badge:     NewBadgeController(ports.Badge, logger, m),
		presenter: NewPresenter(ports.Permissions, ports.Notifications, config.Icon, logger, m),
		metrics:   m,
	}
}

// Logger exposes the broadcaster so adapters can report into the same channel.
func (worker *Worker) Logger() *Broadcaster {
	return worker.logger
}
