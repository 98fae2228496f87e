package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show server streaming statistics",
		Long:  "Fetch connection, subscription and delivery statistics from the bugstream server",
		RunE:  runStats,
	}
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	stats, err := client.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	fmt.Printf("Connections: %d (%d authenticated)\n", stats.TotalConnections, stats.AuthenticatedConnections)
	fmt.Printf("Subscriptions: %d\n", stats.TotalSubscriptions)
	fmt.Printf("Bug queue depth: %d\n", stats.BugQueueDepth)
	fmt.Printf("Analytics queue depth: %d\n", stats.AnalyticsQueueDepth)
	fmt.Printf("Events delivered: %d\n", stats.EventsDelivered)
	fmt.Printf("Events dropped: %d\n", stats.EventsDropped)
	fmt.Printf("Send failures: %d\n", stats.SendFailures)
	fmt.Printf("Avg connection duration: %s\n", time.Duration(stats.AvgConnectionDurationNs))

	return nil
}
