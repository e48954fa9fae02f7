package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:          "remediator",
		Short:        "SRE incident remediation orchestrator",
		SilenceUsage: true,
		// 서브커맨드 없이 실행하면 serve
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API, gate and notifier",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runServe(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create the incidents table (postgres) or DynamoDB table (local endpoint)",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runMigrate(cmd.Context())
			},
		},
	)

	if err := root.Execute(); err != nil {
		log.Printf("remediator: %v", err)
		os.Exit(1)
	}
}
