package app

import (
	"fmt"

	"go-dispensa/internal/department"
	"go-dispensa/internal/dispensa"

	"gorm.io/gorm"
)

var rawSchema = []string{
	`CREATE TABLE IF NOT EXISTS sequence_counters (
	scope        TEXT NOT NULL,
	counter_type TEXT NOT NULL,
	last_value   BIGINT NOT NULL DEFAULT 0,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (scope, counter_type)
)`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
	id             UUID PRIMARY KEY,
	request_id     TEXT,
	aggregate_type TEXT NOT NULL,
	aggregate_id   UUID NOT NULL,
	event_type     TEXT NOT NULL,
	topic          TEXT NOT NULL,
	payload        JSONB NOT NULL,
	status         TEXT NOT NULL,
	retry_count    INT NOT NULL DEFAULT 0,
	error_message  TEXT,
	next_retry_at  TIMESTAMPTZ,
	processed_at   TIMESTAMPTZ,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE INDEX IF NOT EXISTS idx_outbox_events_pending ON outbox_events (status, created_at)`,
}

func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&department.Department{},
		&department.Sector{},
		&dispensa.Request{},
	); err != nil {
		return err
	}
	for _, stmt := range rawSchema {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	if _, err := dispensa.MigrateLegacyStages(db); err != nil {
		return fmt.Errorf("migrate legacy stages: %w", err)
	}
	return nil
}
