package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/dashboard"
	"github.com/grafana/grafana-foundation-sdk/go/prometheus"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

type series struct {
	expr   string
	legend string
}

func main() {
	outputPath := os.Getenv("DASHBOARD_OUT")
	if outputPath == "" {
		outputPath = "dashboard.json"
	}

	payload, err := buildDashboard()
	if err != nil {
		panic(err)
	}

	if err := os.WriteFile(outputPath, payload, 0o600); err != nil {
		panic(err)
	}

	fmt.Printf("dashboard written to %s\n", outputPath)
}

func buildDashboard() ([]byte, error) {
	builder := dashboard.NewDashboardBuilder("Push Worker").
		Uid("push-worker").
		Tags([]string{"push", "worker", "prometheus"}).
		Refresh("30s").
		Time("now-6h", "now").
		Timezone(common.TimeZoneBrowser)

	builder = builder.WithRow(dashboard.NewRowBuilder("Events"))
	builder = builder.WithPanel(panel("Inbound pushes",
		series{`sum(rate(push_worker_push_events_total[5m]))`, "pushes"},
		series{`sum(rate(push_worker_push_failures_total[5m]))`, "failed"},
	))
	builder = builder.WithPanel(panel("Push handling duration avg",
		series{`sum(rate(push_worker_push_duration_seconds_sum[5m])) / sum(rate(push_worker_push_duration_seconds_count[5m]))`, "avg"},
	))
	builder = builder.WithPanel(panel("Client commands",
		series{`sum by (kind) (rate(push_worker_client_commands_total[5m]))`, "{{kind}}"},
	))
	builder = builder.WithPanel(panel("Effects",
		series{`sum(push_worker_effects_in_flight)`, "in flight"},
		series{`sum(rate(push_worker_effect_panics_total[5m]))`, "panics"},
		series{`sum(rate(push_worker_dropped_events_total[5m]))`, "dropped"},
	))

	builder = builder.WithRow(dashboard.NewRowBuilder("Display"))
	builder = builder.WithPanel(panel("Notifications by outcome",
		series{`sum by (outcome) (rate(push_worker_notifications_total[5m]))`, "{{outcome}}"},
	))
	builder = builder.WithPanel(panel("Badge updates",
		series{`sum by (operation, outcome) (rate(push_worker_badge_updates_total[5m]))`, "{{operation}} {{outcome}}"},
	))

	builder = builder.WithRow(dashboard.NewRowBuilder("Foreground instances"))
	builder = builder.WithPanel(panel("Connected instances",
		series{`sum(push_worker_connected_instances)`, "connected"},
	))
	builder = builder.WithPanel(panel("Broadcasts",
		series{`sum(rate(push_worker_broadcast_deliveries_total[5m]))`, "delivered"},
		series{`sum(rate(push_worker_broadcast_failures_total[5m]))`, "failed"},
	))

	builder = builder.WithRow(dashboard.NewRowBuilder("Integrations"))
	builder = builder.WithPanel(panel("Web Push",
		series{`sum(rate(push_worker_webpush_sends_total[5m]))`, "sent"},
		series{`sum(rate(push_worker_webpush_errors_total[5m]))`, "errors"},
		series{`sum(rate(push_worker_webpush_retries_total[5m]))`, "retries"},
		series{`sum(rate(push_worker_webpush_gone_total[5m]))`, "gone"},
	))
	builder = builder.WithPanel(panel("Web Push duration avg",
		series{`sum(rate(push_worker_webpush_duration_seconds_sum[5m])) / sum(rate(push_worker_webpush_duration_seconds_count[5m]))`, "avg"},
	))
	builder = builder.WithPanel(panel("Ntfy mirror",
		series{`sum(rate(push_worker_ntfy_publishes_total[5m]))`, "published"},
		series{`sum(rate(push_worker_ntfy_publish_errors_total[5m]))`, "errors"},
	))
	builder = builder.WithPanel(panel("Errors",
		series{`sum(rate(push_worker_errors_total[5m]))`, "all"},
		series{`sum(rate(push_worker_redis_operation_errors_total[5m]))`, "redis"},
	))

	dashboardJSON, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("build dashboard: %w", err)
	}
	return json.MarshalIndent(dashboardJSON, "", "  ")
}

func panel(title string, targets ...series) *timeseries.PanelBuilder {
	builder := timeseries.NewPanelBuilder().Title(title)
	for _, target := range targets {
		builder = builder.WithTarget(
			prometheus.NewDataqueryBuilder().
				Expr(target.expr).
				LegendFormat(target.legend),
		)
	}
	return builder
}
