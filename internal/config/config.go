package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gordonpn/pushworker/internal/domain"
)

type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string
	HubUICode   string
	HubSecret   string

	PublicOrigins []string

	VAPIDPublicKey     string
	VAPIDPrivateKey    string
	VAPIDSubject       string
	WorkerCount        int
	QueueSize          int
	MaxRetries         int
	RetryBaseBackoffMS int
	TTLSeconds         int
	WebPushTopic       string
	PushTopic          string

	SubscribeRateLimit int
	SubscribeWindow    time.Duration
	CommandRateLimit   int
	CommandWindow      time.Duration

	PushBadgeCount    int
	LocalBadgeCount   int
	NotificationIcon  string
	InitialPermission domain.PermissionState
	PushChannel       string
	BadgeKey          string
	PermissionKey     string
	ClientSendBuffer  int
	ShutdownTimeout   time.Duration

	NtfyTopicURL      string
	NtfyToken         string
	DiscordWebhookURL string
	WebhookURL        string
	WebhookToken      string

	PushgatewayURL  string
	MetricsJob      string
	MetricsInstance string
}

func Load() (Config, error) {
	config := Config{
		Port:               getEnv("PORT", "4000"),
		DatabaseURL:        strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RedisURL:           strings.TrimSpace(os.Getenv("REDIS_URL")),
		HubUICode:          strings.TrimSpace(os.Getenv("HUB_UI_CODE")),
		HubSecret:          strings.TrimSpace(os.Getenv("HUB_SECRET")),
		PublicOrigins:      splitList(os.Getenv("HUB_PUBLIC_ORIGIN")),
		VAPIDPublicKey:     strings.TrimSpace(os.Getenv("VAPID_PUBLIC_KEY")),
		VAPIDPrivateKey:    strings.TrimSpace(os.Getenv("VAPID_PRIVATE_KEY")),
		VAPIDSubject:       strings.TrimSpace(os.Getenv("VAPID_SUBJECT")),
		WorkerCount:        getEnvInt("WORKER_COUNT", 10),
		QueueSize:          getEnvInt("QUEUE_SIZE", 1024),
		MaxRetries:         getEnvInt("MAX_RETRIES", 3),
		RetryBaseBackoffMS: getEnvInt("RETRY_BASE_BACKOFF_MS", 400),
		TTLSeconds:         getEnvInt("PUSH_TTL_SECONDS", 60*60*24),
		WebPushTopic:       getEnv("WEBPUSH_TOPIC", "push-worker"),
		PushTopic:          domain.NormalizeTopic(os.Getenv("PUSH_TOPIC")),
		SubscribeRateLimit: getEnvInt("SUBSCRIBE_RATE_LIMIT", 5),
		SubscribeWindow:    time.Duration(getEnvInt("SUBSCRIBE_RATE_WINDOW_SECONDS", 60)) * time.Second,
		CommandRateLimit:   getEnvInt("COMMAND_RATE_LIMIT", 30),
		CommandWindow:      time.Duration(getEnvInt("COMMAND_RATE_WINDOW_SECONDS", 60)) * time.Second,
		PushBadgeCount:     getEnvInt("PUSH_BADGE_COUNT", 4),
		LocalBadgeCount:    getEnvInt("LOCAL_BADGE_COUNT", 1),
		NotificationIcon:   getEnv("NOTIFICATION_ICON", "./icon-192.png"),
		PushChannel:        getEnv("PUSH_CHANNEL", "push:inbound"),
		BadgeKey:           getEnv("BADGE_KEY", "push:badge"),
		PermissionKey:      getEnv("PERMISSION_KEY", "push:permission"),
		ClientSendBuffer:   getEnvInt("CLIENT_SEND_BUFFER", 32),
		ShutdownTimeout:    time.Duration(getEnvInt("SHUTDOWN_TIMEOUT_SECONDS", 30)) * time.Second,
		NtfyTopicURL:       strings.TrimSpace(os.Getenv("NTFY_TOPIC_URL")),
		NtfyToken:          strings.TrimSpace(os.Getenv("NTFY_TOKEN")),
		DiscordWebhookURL:  strings.TrimSpace(os.Getenv("DISCORD_WEBHOOK_URL")),
		WebhookURL:         strings.TrimSpace(os.Getenv("WEBHOOK_URL")),
		WebhookToken:       strings.TrimSpace(os.Getenv("WEBHOOK_TOKEN")),
		PushgatewayURL:     strings.TrimSpace(os.Getenv("PUSHGATEWAY_URL")),
		MetricsJob:         getEnv("METRICS_JOB", "push-worker"),
		MetricsInstance:    getEnv("METRICS_INSTANCE", hostname()),
	}

	if config.VAPIDSubject == "" && len(config.PublicOrigins) > 0 {
		config.VAPIDSubject = config.PublicOrigins[0]
	}
	if config.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL is required")
	}
	if config.PushBadgeCount < 0 || config.LocalBadgeCount < 0 {
		return Config{}, errors.New("PUSH_BADGE_COUNT and LOCAL_BADGE_COUNT must not be negative")
	}

	permission, err := domain.ParsePermission(getEnv("INITIAL_PERMISSION", string(domain.PermissionDefault)))
	if err != nil {
		return Config{}, fmt.Errorf("INITIAL_PERMISSION: %w", err)
	}
	config.InitialPermission = permission

	if config.WorkerCount < 1 {
		config.WorkerCount = 1
	}
	if config.QueueSize < 1 {
		config.QueueSize = 128
	}
	if config.ClientSendBuffer < 1 {
		config.ClientSendBuffer = 32
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 30 * time.Second
	}

	return config, nil
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func splitList(raw string) []string {
	var values []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "unknown"
	}
	return name
}
