package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gordonpn/pushworker/internal/transport"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

type options struct {
	via       string
	url       string
	secret    string
	redisURL  string
	channel   string
	title     string
	body      string
	data      map[string]string
	noDisplay bool
	timeout   time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "push-sender",
		Short: "Send one push event to a running push-worker",
		Long: "push-sender stands in for the push service: it delivers a single push message to the\n" +
			"worker over its HTTP endpoint or its Redis channel.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, opts.timeout)
			defer cancel()

			payload := buildPayload(opts.title, opts.body, opts.data, opts.noDisplay)

			switch strings.ToLower(opts.via) {
			case "http":
				client := &http.Client{Timeout: opts.timeout}
				if err := sendHTTP(ctx, client, opts.url, opts.secret, payload); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "push accepted by %s\n", opts.url)
			case "redis":
				redisOptions, err := redis.ParseURL(opts.redisURL)
				if err != nil {
					return fmt.Errorf("redis url: %w", err)
				}
				client := redis.NewClient(redisOptions)
				defer client.Close()

				receivers, err := transport.Publish(ctx, client, opts.channel, payload)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "push published channel=%s receivers=%d\n", opts.channel, receivers)
			default:
				return fmt.Errorf("unknown transport %q, expected http or redis", opts.via)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.via, "via", "http", "transport to use: http or redis")
	flags.StringVar(&opts.url, "url", envOr("PUSH_WORKER_URL", "http://localhost:4000")+"/api/push", "push endpoint of the worker")
	flags.StringVar(&opts.secret, "secret", os.Getenv("HUB_SECRET"), "hub secret sent as X-Hub-Secret")
	flags.StringVar(&opts.redisURL, "redis-url", envOr("REDIS_URL", "redis://localhost:6379/0"), "Redis URL")
	flags.StringVar(&opts.channel, "channel", envOr("PUSH_CHANNEL", transport.DefaultChannel), "Redis channel the worker listens on")
	flags.StringVar(&opts.title, "title", "", "notification title (worker falls back to its default)")
	flags.StringVar(&opts.body, "body", "", "notification body (worker falls back to its default)")
	flags.StringToStringVar(&opts.data, "data", nil, "data fields as key=value pairs")
	flags.BoolVar(&opts.noDisplay, "data-only", false, "send a data-only message without a notification section")
	flags.DurationVar(&opts.timeout, "timeout", 15*time.Second, "overall timeout")

	return cmd
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}
