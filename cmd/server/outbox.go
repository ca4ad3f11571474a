package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yukikurage/intake-workflow-api/internal/database"
	"github.com/yukikurage/intake-workflow-api/internal/models"
	"github.com/yukikurage/intake-workflow-api/internal/repository"
)

func outboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect and settle queued emails",
	}

	var limit int
	list := &cobra.Command{
		Use:   "pending",
		Short: "Print pending emails as JSON, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := connect(); err != nil {
				return err
			}
			msgs, err := repository.NewEmailOutboxRepository(database.GetDB()).ListPending(cmd.Context(), limit)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(msgs)
		},
	}
	list.Flags().IntVar(&limit, "limit", 50, "maximum number of emails")
	cmd.AddCommand(list)

	cmd.AddCommand(&cobra.Command{
		Use:   "mark [id] [sent|failed]",
		Short: "Record the delivery outcome of an email",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status := models.EmailStatus(args[1])
			if status != models.EmailStatusSent && status != models.EmailStatusFailed {
				return fmt.Errorf("status must be sent or failed, got %q", args[1])
			}
			if _, err := connect(); err != nil {
				return err
			}
			return repository.NewEmailOutboxRepository(database.GetDB()).MarkStatus(cmd.Context(), args[0], status)
		},
	})

	return cmd
}
