package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yukikurage/intake-workflow-api/internal/config"
)

func policyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect the role policy",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "default",
		Short: "Print the built-in policy document",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), config.DefaultPolicyYAML())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "check [file]",
		Short: "Validate a policy file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.LoadPolicy(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", args[0])
			return nil
		},
	})

	return cmd
}
