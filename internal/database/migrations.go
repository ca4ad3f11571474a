package database

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type tableIndex struct {
	table   string
	name    string
	columns string
}

// AddIndexes adds the listing indexes that AutoMigrate does not derive from tags
func AddIndexes(db *gorm.DB) error {
	indexes := []tableIndex{
		// Task listing
		{"tasks", "idx_tasks_overall_status", "overall_status"},
		{"tasks", "idx_tasks_kind", "kind"},
		{"tasks", "idx_tasks_origin_actor_id", "origin_actor_id"},
		{"tasks", "idx_tasks_created_at", "created_at"},

		// Inbox
		{"notifications", "idx_notifications_recipient_created", "recipient_id, created_at"},

		// Outbox polling
		{"email_messages", "idx_email_messages_status_created", "status, created_at"},
	}

	migrator := db.Migrator()
	for _, idx := range indexes {
		if migrator.HasIndex(idx.table, idx.name) {
			log.Debug().Str("index", idx.name).Msg("index already exists, skipping")
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.Info().Str("index", idx.name).Str("table", idx.table).Msg("created index")
	}

	return nil
}
