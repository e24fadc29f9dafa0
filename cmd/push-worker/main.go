package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gordonpn/pushworker/internal/badge"
	"github.com/gordonpn/pushworker/internal/clients"
	"github.com/gordonpn/pushworker/internal/config"
	"github.com/gordonpn/pushworker/internal/httpapi"
	"github.com/gordonpn/pushworker/internal/metrics"
	"github.com/gordonpn/pushworker/internal/notifications"
	"github.com/gordonpn/pushworker/internal/permission"
	"github.com/gordonpn/pushworker/internal/push"
	"github.com/gordonpn/pushworker/internal/ratelimit"
	"github.com/gordonpn/pushworker/internal/service"
	"github.com/gordonpn/pushworker/internal/store"
	"github.com/gordonpn/pushworker/internal/transport"
	"github.com/gordonpn/pushworker/internal/worker"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Set with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	log.Printf("push-worker version=%s", version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.NewMetrics(cfg.PushgatewayURL, cfg.MetricsJob, cfg.MetricsInstance)

	dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connect failed: %v", err)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatalf("database ping failed: %v", err)
	}
	if err := store.EnsureSchema(ctx, dbPool); err != nil {
		log.Fatalf("database schema failed: %v", err)
	}

	redisClient := connectRedis(ctx, cfg.RedisURL)
	if redisClient != nil {
		defer redisClient.Close()
	}

	repository := store.NewPostgres(dbPool)

	dispatcher := push.New(push.Config{
		WorkerCount:        cfg.WorkerCount,
		QueueSize:          cfg.QueueSize,
		MaxRetries:         cfg.MaxRetries,
		RetryBaseBackoffMS: cfg.RetryBaseBackoffMS,
		TTLSeconds:         cfg.TTLSeconds,
		Topic:              cfg.WebPushTopic,
		VAPIDPublicKey:     cfg.VAPIDPublicKey,
		VAPIDPrivateKey:    cfg.VAPIDPrivateKey,
		VAPIDSubject:       cfg.VAPIDSubject,
	}, repository.DeleteByEndpoint, m)
	dispatcher.Start()

	var permissions permission.Store = permission.NewMemory(cfg.InitialPermission)
	var badgeSurface worker.BadgeSurface
	var badgeReader service.BadgeReader
	if redisClient != nil {
		permissions = permission.NewRedis(redisClient, cfg.PermissionKey, m)
		redisBadge := badge.NewRedisSurface(redisClient, cfg.BadgeKey, m)
		badgeSurface, badgeReader = redisBadge, redisBadge
	} else {
		log.Printf("REDIS_URL not set: badge unsupported, permission kept in memory")
	}

	var host *worker.Host
	hub := clients.NewHub(clients.Config{
		SendBuffer:     cfg.ClientSendBuffer,
		AllowedOrigins: cfg.PublicOrigins,
	}, func(instanceID string, raw []byte) {
		if !host.Message(raw) {
			log.Printf("instance message dropped id=%s reason=shutting_down", instanceID)
		}
	}, m)

	w := worker.New(worker.Config{
		PushBadgeCount:  cfg.PushBadgeCount,
		LocalBadgeCount: cfg.LocalBadgeCount,
		Icon:            cfg.NotificationIcon,
	}, worker.Ports{
		Registry:      hub,
		Badge:         badgeSurface,
		Notifications: notificationSurface(cfg, repository, dispatcher, m),
		Permissions:   permissions,
	}, m)
	host = worker.NewHost(w, worker.NewRuntime(m))
	host.Start()

	subscribeLimiter := ratelimit.New(cfg.SubscribeRateLimit, cfg.SubscribeWindow)
	commandLimiter := ratelimit.New(cfg.CommandRateLimit, cfg.CommandWindow)
	go sweepLimiters(ctx, cfg.SubscribeWindow, subscribeLimiter, commandLimiter)

	appService := service.New(cfg, service.Dependencies{
		Repository:       repository,
		SubscribeLimiter: subscribeLimiter,
		CommandLimiter:   commandLimiter,
		Permissions:      permissions,
		Badge:            badgeReader,
		Events:           host,
	})
	router := httpapi.NewRouter(appService, httpapi.Options{
		WebSocket: hub,
		Metrics:   m.Handler(),
	})

	if redisClient != nil {
		source := transport.NewRedisSource(redisClient, cfg.PushChannel, m)
		go func() {
			if err := source.Run(ctx, host.Push); err != nil {
				log.Printf("push transport stopped: %v", err)
			}
		}()
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("push-worker listening on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	if err := host.Shutdown(shutdownCtx); err != nil {
		log.Printf("worker shutdown: %v", err)
	}
	hub.Close()
	dispatcher.Stop()
	_ = m.Push(shutdownCtx)
}

func connectRedis(ctx context.Context, url string) *redis.Client {
	if url == "" {
		return nil
	}

	options, err := redis.ParseURL(url)
	if err != nil {
		log.Fatalf("redis url invalid: %v", err)
	}
	client := redis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis ping failed: %v", err)
	}
	return client
}

// notificationSurface displays over Web Push when VAPID keys are present and mirrors to
// every configured notifier. It returns nil when nothing can display.
func notificationSurface(cfg config.Config, repository store.Repository, dispatcher *push.Dispatcher, m *metrics.Metrics) worker.NotificationSurface {
	var primary notifications.Surface
	if dispatcher.Configured() {
		primary = push.NewSurface(repository, dispatcher, cfg.PushTopic)
	} else {
		log.Printf("VAPID keys not set: web push display disabled")
	}

	httpClient := &http.Client{Timeout: 15 * time.Second}
	var notifiers []notifications.Notifier
	if cfg.NtfyTopicURL != "" {
		notifiers = append(notifiers, notifications.NewNtfyNotifier(httpClient, cfg.NtfyTopicURL, cfg.NtfyToken, m))
	}
	if cfg.DiscordWebhookURL != "" {
		notifiers = append(notifiers, notifications.NewDiscordNotifier(httpClient, cfg.DiscordWebhookURL))
	}
	if cfg.WebhookURL != "" {
		notifiers = append(notifiers, notifications.NewWebhookNotifier(httpClient, cfg.WebhookURL, cfg.WebhookToken))
	}

	mirror := notifications.NewMirror(primary, notifiers...)
	if mirror.Empty() {
		log.Printf("no notification surface configured")
		return nil
	}
	return mirror
}

func sweepLimiters(ctx context.Context, every time.Duration, limiters ...*ratelimit.Limiter) {
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, limiter := range limiters {
				limiter.Sweep()
			}
		}
	}
}
