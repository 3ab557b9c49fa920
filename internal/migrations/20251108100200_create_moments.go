package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateMoments, downCreateMoments)
}

func upCreateMoments(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
	CREATE TABLE moments (
		id              UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_name       TEXT NOT NULL,
		user_avatar_url TEXT,
		publish_time    TIMESTAMPTZ NOT NULL DEFAULT now(),
		content_text    TEXT NOT NULL DEFAULT '',
		content_img_url TEXT
	);

	CREATE INDEX idx_moments_publish_time ON moments (publish_time DESC);
	`)
	return err
}

func downCreateMoments(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS moments;`)
	return err
}
