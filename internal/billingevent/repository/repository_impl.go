package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	billingeventdomain "github.com/cardmint/cardmint/internal/billingevent/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() billingeventdomain.Repository {
	return &repo{}
}

func (r *repo) InsertDedup(ctx context.Context, db *gorm.DB, event *billingeventdomain.BillingEvent) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`INSERT INTO billing_events (
			id, tenant_id, event_type, payload, dedupe_key, published, attempts, last_error, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id, dedupe_key) DO NOTHING`,
		event.ID,
		event.TenantID,
		event.EventType,
		event.Payload,
		event.DedupeKey,
		false,
		0,
		"",
		event.CreatedAt,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) FindUnpublished(ctx context.Context, db *gorm.DB, limit int) ([]billingeventdomain.BillingEvent, error) {
	var events []billingeventdomain.BillingEvent
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, event_type, payload, dedupe_key, published, published_at,
		 attempts, last_error, created_at
		 FROM billing_events
		 WHERE published = ?
		 ORDER BY created_at ASC
		 LIMIT ?`,
		false,
		limit,
	).Scan(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repo) MarkPublished(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE billing_events
		 SET published = ?, published_at = ?
		 WHERE id = ?`,
		true,
		now,
		id,
	).Error
}

func (r *repo) RecordFailure(ctx context.Context, db *gorm.DB, id snowflake.ID, cause string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE billing_events
		 SET attempts = attempts + 1, last_error = ?
		 WHERE id = ?`,
		cause,
		id,
	).Error
}
