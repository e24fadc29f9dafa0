package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/gordonpn/pushworker/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	UpsertSubscription(ctx context.Context, subscription domain.Subscription) (bool, error)
	DeleteByEndpoint(ctx context.Context, endpoint string) error
	GetSubscriptionByEndpoint(ctx context.Context, endpoint string) (domain.Subscription, bool, error)
	ListForTopic(ctx context.Context, topic string) ([]domain.Subscription, error)
}

type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

// UpsertSubscription reports whether the endpoint was new.
func (repository *Postgres) UpsertSubscription(ctx context.Context, subscription domain.Subscription) (bool, error) {
	query := `
		INSERT INTO push_subscriptions (endpoint, p256dh, auth, topics, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (endpoint)
		DO UPDATE SET p256dh = EXCLUDED.p256dh, auth = EXCLUDED.auth, topics = EXCLUDED.topics, updated_at = NOW()
		RETURNING (xmax = 0)
	`

	var inserted bool
	err := repository.db.QueryRow(ctx, query, subscription.Endpoint, subscription.P256DH, subscription.Auth, subscription.Topics).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("upsert subscription: %w", err)
	}
	return inserted, nil
}

func (repository *Postgres) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	if _, err := repository.db.Exec(ctx, `DELETE FROM push_subscriptions WHERE endpoint = $1`, endpoint); err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	return nil
}

func (repository *Postgres) GetSubscriptionByEndpoint(ctx context.Context, endpoint string) (domain.Subscription, bool, error) {
	rows, err := repository.db.Query(ctx, `SELECT endpoint, p256dh, auth, topics FROM push_subscriptions WHERE endpoint = $1`, endpoint)
	if err != nil {
		return domain.Subscription{}, false, fmt.Errorf("get subscription: %w", err)
	}

	subscription, err := pgx.CollectOneRow(rows, scanSubscription)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Subscription{}, false, nil
		}
		return domain.Subscription{}, false, fmt.Errorf("get subscription: %w", err)
	}
	return subscription, true, nil
}

func (repository *Postgres) ListForTopic(ctx context.Context, topic string) ([]domain.Subscription, error) {
	rows, err := repository.db.Query(ctx, `SELECT endpoint, p256dh, auth, topics FROM push_subscriptions WHERE $1 = ANY(topics)`, topic)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}

	subscriptions, err := pgx.CollectRows(rows, scanSubscription)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return subscriptions, nil
}

func scanSubscription(row pgx.CollectableRow) (domain.Subscription, error) {
	var subscription domain.Subscription
	err := row.Scan(&subscription.Endpoint, &subscription.P256DH, &subscription.Auth, &subscription.Topics)
	return subscription, err
}
