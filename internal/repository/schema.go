package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// delivery_attempts has no group column and no foreign key to the content
// tables. Group ownership is resolved through the content tables, and
// deleting a content item must also delete its attempts.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS family_groups (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		email TEXT UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS memberships (
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		family_group_id TEXT NOT NULL REFERENCES family_groups(id) ON DELETE CASCADE,
		role TEXT NOT NULL DEFAULT 'MEMBER',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (user_id, family_group_id)
	)`,

	`CREATE TABLE IF NOT EXISTS preferences (
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		channel TEXT NOT NULL,
		enabled BOOLEAN NOT NULL DEFAULT FALSE,
		destination TEXT,
		verified_at TIMESTAMPTZ,
		PRIMARY KEY (user_id, channel)
	)`,

	`CREATE TABLE IF NOT EXISTS announcements (
		id TEXT PRIMARY KEY,
		family_group_id TEXT NOT NULL REFERENCES family_groups(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		body TEXT NOT NULL DEFAULT '',
		created_by_id TEXT NOT NULL,
		scheduled_at TIMESTAMPTZ,
		published_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		family_group_id TEXT NOT NULL REFERENCES family_groups(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		starts_at TIMESTAMPTZ NOT NULL,
		ends_at TIMESTAMPTZ,
		created_by_id TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS event_reminders (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
		scheduled_at TIMESTAMPTZ NOT NULL,
		sent_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS delivery_attempts (
		id TEXT PRIMARY KEY,
		item_type TEXT NOT NULL,
		item_id TEXT NOT NULL,
		channel TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'QUEUED',
		user_id TEXT NOT NULL DEFAULT '',
		destination TEXT NOT NULL DEFAULT '',
		provider_message_id TEXT,
		error TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_memberships_group ON memberships(family_group_id)`,
	`CREATE INDEX IF NOT EXISTS idx_announcements_group ON announcements(family_group_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_announcements_due ON announcements(scheduled_at) WHERE published_at IS NULL`,
	`CREATE INDEX IF NOT EXISTS idx_events_group ON events(family_group_id, starts_at)`,
	`CREATE INDEX IF NOT EXISTS idx_event_reminders_due ON event_reminders(scheduled_at) WHERE sent_at IS NULL`,
	`CREATE INDEX IF NOT EXISTS idx_delivery_attempts_item ON delivery_attempts(item_type, item_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_delivery_attempts_created ON delivery_attempts(status, created_at)`,
}

func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for _, migration := range migrations {
		if _, err := db.Exec(ctx, migration); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	logrus.Info("Database migrations completed successfully")
	return nil
}
