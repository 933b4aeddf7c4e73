package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mtr002/notify-dispatcher/internal/interfaces"
)

// ErrStatusNotFound is returned when no row exists for a subscription
var ErrStatusNotFound = errors.New("subscription status not found")

// Store handles database operations for subscription delivery status
type Store struct {
	db *sql.DB
}

// NewStore creates a new database store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// UpsertStatus inserts or replaces the status row of a subscription
func (s *Store) UpsertStatus(ctx context.Context, st *interfaces.SubscriptionStatus) error {
	query := `
		INSERT INTO subscription_status (tenant, subscription_id, count, fails_counter, last_notification,
			last_success, last_success_code, last_failure, last_failure_reason, last_notification_failed, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		ON CONFLICT (tenant, subscription_id) DO UPDATE SET
			count = EXCLUDED.count,
			fails_counter = EXCLUDED.fails_counter,
			last_notification = EXCLUDED.last_notification,
			last_success = EXCLUDED.last_success,
			last_success_code = EXCLUDED.last_success_code,
			last_failure = EXCLUDED.last_failure,
			last_failure_reason = EXCLUDED.last_failure_reason,
			last_notification_failed = EXCLUDED.last_notification_failed,
			updated_at = NOW()
	`

	_, err := s.db.ExecContext(ctx, query,
		st.Tenant, st.SubscriptionID, st.Count, st.FailsCounter, st.LastNotification,
		st.LastSuccess, st.LastSuccessCode, st.LastFailure, st.LastFailureReason, st.LastNotificationFail)
	if err != nil {
		return fmt.Errorf("failed to upsert subscription status: %w", err)
	}

	return nil
}

// GetStatus retrieves the persisted status of a subscription
func (s *Store) GetStatus(ctx context.Context, tenant, subscriptionID string) (*interfaces.SubscriptionStatus, error) {
	query := `
		SELECT tenant, subscription_id, count, fails_counter, last_notification,
			last_success, last_success_code, last_failure, last_failure_reason, last_notification_failed
		FROM subscription_status WHERE tenant = $1 AND subscription_id = $2
	`

	st := &interfaces.SubscriptionStatus{}
	var lastSuccess, lastFailure sql.NullTime

	err := s.db.QueryRowContext(ctx, query, tenant, subscriptionID).Scan(
		&st.Tenant, &st.SubscriptionID, &st.Count, &st.FailsCounter, &st.LastNotification,
		&lastSuccess, &st.LastSuccessCode, &lastFailure, &st.LastFailureReason, &st.LastNotificationFail)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStatusNotFound
		}
		return nil, fmt.Errorf("failed to get subscription status: %w", err)
	}

	if lastSuccess.Valid {
		st.LastSuccess = &lastSuccess.Time
	}
	if lastFailure.Valid {
		st.LastFailure = &lastFailure.Time
	}

	return st, nil
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
