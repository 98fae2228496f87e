package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jarvis-chat/bugstream/pkg/bugstream"
	"github.com/jarvis-chat/bugstream/pkg/httpclient"
)

func newPublishCommand() *cobra.Command {
	var (
		eventType string
		bugJSON   string
		actor     string
		source    string
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a bug update event",
		Long: `Publish a bug update event for fan-out to subscribed clients.
The bug snapshot must be valid JSON, e.g. '{"id":"bug-1","title":"Crash","status":"open","severity":"high"}'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(eventType, bugJSON, actor, source)
		},
	}

	cmd.Flags().StringVar(&eventType, "type", "", "Event type: created, updated, status_changed, assigned, commented, resolved, reopened (required)")
	cmd.Flags().StringVar(&bugJSON, "bug", "", "Bug snapshot as JSON (required)")
	cmd.Flags().StringVar(&actor, "actor", "", "User who triggered the change")
	cmd.Flags().StringVar(&source, "source", "bugstream-cli", "Originating system")
	if err := cmd.MarkFlagRequired("type"); err != nil {
		panic(fmt.Sprintf("Failed to mark type as required: %v", err))
	}
	if err := cmd.MarkFlagRequired("bug"); err != nil {
		panic(fmt.Sprintf("Failed to mark bug as required: %v", err))
	}

	return cmd
}

func runPublish(eventType, bugJSON, actor, source string) error {
	if err := requireAuthentication(); err != nil {
		return err
	}

	var bug bugstream.Bug
	if err := json.Unmarshal([]byte(bugJSON), &bug); err != nil {
		return fmt.Errorf("invalid bug JSON: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	fmt.Printf("Publishing %s event for bug '%s'...\n", eventType, bug.ID)

	response, err := client.PublishBugEvent(ctx, httpclient.PublishBugRequest{
		EventType: eventType,
		Bug:       bug,
		Actor:     actor,
		Source:    source,
	})
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	fmt.Printf("✅ Event published successfully!\n")
	fmt.Printf("Event ID: %s\n", response.EventID)
	fmt.Printf("Timestamp: %s\n", response.Timestamp.Format("2006-01-02 15:04:05"))

	return nil
}

func newPublishAnalyticsCommand() *cobra.Command {
	var (
		analyticsType string
		metricsJSON   string
	)

	cmd := &cobra.Command{
		Use:   "publish-analytics",
		Short: "Publish an analytics update event",
		Long:  "Publish an analytics update event for fan-out to analytics subscribers.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublishAnalytics(analyticsType, metricsJSON)
		},
	}

	cmd.Flags().StringVar(&analyticsType, "type", "", "Analytics type: summary, trends, patterns, performance (required)")
	cmd.Flags().StringVar(&metricsJSON, "metrics", "{}", "Metrics payload as JSON")
	if err := cmd.MarkFlagRequired("type"); err != nil {
		panic(fmt.Sprintf("Failed to mark type as required: %v", err))
	}

	return cmd
}

func runPublishAnalytics(analyticsType, metricsJSON string) error {
	if err := requireAuthentication(); err != nil {
		return err
	}

	var metrics map[string]any
	if err := json.Unmarshal([]byte(metricsJSON), &metrics); err != nil {
		return fmt.Errorf("invalid metrics JSON: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	fmt.Printf("Publishing %s analytics event...\n", analyticsType)

	response, err := client.PublishAnalyticsEvent(ctx, httpclient.PublishAnalyticsRequest{
		AnalyticsType: analyticsType,
		Metrics:       metrics,
	})
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	fmt.Printf("✅ Event published successfully!\n")
	fmt.Printf("Event ID: %s\n", response.EventID)

	return nil
}
