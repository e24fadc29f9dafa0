package worker

import (
	"errors"
	"strings"
	"testing"

	"github.com/gordonpn/pushworker/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnPush_TitleAndBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		payload   domain.PushPayload
		wantTitle string
		wantBody  string
	}{
		{
			name:      "notification_present",
			payload:   domain.PushPayload{Notification: &domain.PushNotification{Title: "Sale", Body: "50% off"}},
			wantTitle: "Sale",
			wantBody:  "50% off",
		},
		{
			name:      "notification_missing",
			payload:   domain.PushPayload{Data: map[string]string{"foo": "bar"}},
			wantTitle: DefaultPushTitle,
			wantBody:  DefaultPushBody,
		},
		{
			name:      "empty_fields_fall_back",
			payload:   domain.PushPayload{Notification: &domain.PushNotification{Body: "only body"}},
			wantTitle: DefaultPushTitle,
			wantBody:  "only body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			harness := newHarness(t)
			require.NoError(t, runEffects(t, harness.worker.OnPush(tt.payload)))

			shown, _ := harness.surface.snapshot()
			require.Len(t, shown, 1)
			assert.Equal(t, tt.wantTitle, shown[0].Title)
			assert.Equal(t, tt.wantBody, shown[0].Body)
		})
	}
}

func TestOnPush_EndToEnd(t *testing.T) {
	t.Parallel()

	harness := newHarness(t)
	payload, err := domain.DecodePushPayload([]byte(`{"data":{"foo":"bar"}}`))
	require.NoError(t, err)

	require.NoError(t, runEffects(t, harness.worker.OnPush(payload)))

	shown, _ := harness.surface.snapshot()
	assert.Equal(t, []domain.Notification{{Title: "New Message", Body: "You have a new message", Icon: DefaultIcon}}, shown)
	sets, _, _ := harness.badge.snapshot()
	assert.Equal(t, []int{DefaultPushBadgeCount}, sets)
	assert.ElementsMatch(t, []string{"Badge displayed", "Notification is shown successfully"}, harness.registry.logs())
}

func TestOnPush_PartialFailure(t *testing.T) {
	t.Parallel()

	t.Run("badge_fails_notification_still_shown", func(t *testing.T) {
		t.Parallel()

		harness := newHarness(t)
		harness.badge.setErr = errors.New("badge quota")

		require.NoError(t, runEffects(t, harness.worker.OnPush(domain.PushPayload{})))

		shown, _ := harness.surface.snapshot()
		assert.Len(t, shown, 1)
		assert.Equal(t, 1, countPrefix(harness.registry.logs(), "Background push processing failed."))
		assert.Contains(t, lastWithPrefix(harness.registry.logs(), "Background push processing failed."), "badge quota")
	})

	t.Run("notification_fails_badge_still_set", func(t *testing.T) {
		t.Parallel()

		harness := newHarness(t)
		harness.surface.err = errors.New("display quota")

		require.NoError(t, runEffects(t, harness.worker.OnPush(domain.PushPayload{})))

		sets, _, _ := harness.badge.snapshot()
		assert.Equal(t, []int{DefaultPushBadgeCount}, sets)
		assert.Equal(t, 1, countPrefix(harness.registry.logs(), "Background push processing failed."))
	})

	t.Run("both_fail_reported_once", func(t *testing.T) {
		t.Parallel()

		harness := newHarness(t)
		harness.badge.setErr = errors.New("badge quota")
		harness.surface.err = errors.New("display quota")

		require.NoError(t, runEffects(t, harness.worker.OnPush(domain.PushPayload{})))

		assert.Equal(t, 1, countPrefix(harness.registry.logs(), "Background push processing failed."))
	})
}

func TestOnPush_PermissionDeniedIsReported(t *testing.T) {
	t.Parallel()

	harness := newHarness(t)
	harness.permissions.states = []domain.PermissionState{domain.PermissionDenied}

	require.NoError(t, runEffects(t, harness.worker.OnPush(domain.PushPayload{})))

	assert.Equal(t, 1, countPrefix(harness.registry.logs(), "Background push processing failed."))
	assert.Contains(t, lastWithPrefix(harness.registry.logs(), "Background push processing failed."), ErrPermissionDenied.Error())
	assert.Contains(t, harness.registry.logs(), "No permission to show notifications")
	assert.Contains(t, harness.registry.logs(), "Badge displayed")

	shown, _ := harness.surface.snapshot()
	assert.Empty(t, shown)
}

func TestOnPush_UnsupportedBadgeIsNotAFailure(t *testing.T) {
	t.Parallel()

	harness := newHarness(t)
	harness.badge.supported = false

	require.NoError(t, runEffects(t, harness.worker.OnPush(domain.PushPayload{})))

	assert.Zero(t, countPrefix(harness.registry.logs(), "Background push processing failed."))
	assert.ElementsMatch(t, []string{"Badge API is not available", "Notification is shown successfully"}, harness.registry.logs())
}

func TestOnPush_DeniedWithoutBadgeReportsOnce(t *testing.T) {
	t.Parallel()

	harness := newHarness(t)
	harness.badge.supported = false
	harness.permissions.states = []domain.PermissionState{domain.PermissionDenied}

	require.NoError(t, runEffects(t, harness.worker.OnPush(domain.PushPayload{})))

	assert.Equal(t, 1, countPrefix(harness.registry.logs(), "Background push processing failed."))
	assert.Contains(t, harness.registry.logs(), "Badge API is not available")
}

func TestOnPush_ConfiguredBadgeCount(t *testing.T) {
	t.Parallel()

	badge := &fakeBadge{supported: true}
	config := DefaultConfig()
	config.PushBadgeCount = 9
	worker := New(config, Ports{
		Registry:      newFakeRegistry(0),
		Badge:         badge,
		Notifications: &fakeSurface{},
		Permissions:   grantedPermissions(),
	}, nil)

	require.NoError(t, runEffects(t, worker.OnPush(domain.PushPayload{})))

	sets, _, _ := badge.snapshot()
	assert.Equal(t, []int{9}, sets)
}

func countPrefix(logs []string, prefix string) int {
	count := 0
	for _, line := range logs {
		if strings.HasPrefix(line, prefix) {
			count++
		}
	}
	return count
}

func lastWithPrefix(logs []string, prefix string) string {
	for index := len(logs) - 1; index >= 0; index-- {
		if strings.HasPrefix(logs[index], prefix) {
			return logs[index]
		}
	}
	return ""
}
