package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jarvis-chat/bugstream/pkg/bugstream"
	"github.com/jarvis-chat/bugstream/pkg/httpclient"
)

func newTailCommand() *cobra.Command {
	var (
		streamType string
		format     string
		status     []string
		severity   []string
		assignee   []string
	)

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail a live event stream",
		Long: `Connect to the server's WebSocket endpoint, subscribe to a stream
and print every delivered event until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTail(streamType, format, status, severity, assignee)
		},
	}

	cmd.Flags().StringVar(&streamType, "stream", "bug_updates", "Stream type to subscribe to")
	cmd.Flags().StringVar(&format, "format", "json", "Delivery format: json, compact, detailed")
	cmd.Flags().StringSliceVar(&status, "status", nil, "Only deliver bugs with these statuses")
	cmd.Flags().StringSliceVar(&severity, "severity", nil, "Only deliver bugs with these severities")
	cmd.Flags().StringSliceVar(&assignee, "assignee", nil, "Only deliver bugs with these assignees")

	return cmd
}

func runTail(streamType, format string, status, severity, assignee []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fmt.Printf("Connecting to %s...\n", serverURL)

	sc, err := client.Stream(ctx, httpclient.StreamConfig{})
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer sc.Close()

	var filters *bugstream.SubscriptionFilters
	if len(status)+len(severity)+len(assignee) > 0 {
		filters = &bugstream.SubscriptionFilters{
			Statuses:   status,
			Severities: severity,
			Assignees:  assignee,
		}
	}

	if err := sc.Subscribe(bugstream.StreamType(streamType), filters, bugstream.Format(format)); err != nil {
		return fmt.Errorf("subscribe failed: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	fmt.Printf("Tailing stream '%s' (format=%s). Ctrl+C to stop.\n\n", streamType, format)

	for {
		select {
		case msg, ok := <-sc.Messages():
			if !ok {
				fmt.Println("Connection closed by server.")
				return nil
			}
			printMessage(msg)
		case err := <-sc.Errors():
			if err != nil {
				fmt.Fprintf(os.Stderr, "stream error: %v\n", err)
			}
		case <-sigCh:
			fmt.Println("\nStopping...")
			return nil
		}
	}
}

func printMessage(msg bugstream.StreamMessage) {
	switch msg.Type {
	case bugstream.MessageEvent:
		data, err := json.Marshal(msg.Data)
		if err != nil {
			fmt.Printf("[event] %v\n", msg.Data)
			return
		}
		fmt.Printf("[event] %s\n", data)
	case bugstream.MessageSubscriptionError:
		data, _ := json.Marshal(msg.Data)
		fmt.Fprintf(os.Stderr, "❌ subscription error: %s\n", data)
	case bugstream.MessageHeartbeat:
		// Quiet; heartbeats are noise when tailing.
	default:
		data, _ := json.Marshal(msg.Data)
		fmt.Printf("[%s] %s\n", msg.Type, data)
	}
}
