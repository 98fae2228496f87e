package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Long:  "Check the health status of the bugstream server",
		RunE:  runHealth,
	}
}

func runHealth(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	fmt.Printf("Checking health of %s...\n", serverURL)

	health, err := client.GetHealth(ctx)
	if err != nil {
		return fmt.Errorf("failed to check health: %w", err)
	}

	if health.Status == "healthy" {
		fmt.Printf("✅ Server is healthy!\n")
	} else {
		fmt.Printf("❌ Server status: %s\n", health.Status)
	}
	fmt.Printf("Connections: %d\n", health.Connections)
	fmt.Printf("Server time: %s\n", health.Timestamp.Format("2006-01-02 15:04:05"))

	return nil
}
