package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jarvis-chat/bugstream/pkg/httpclient"
)

var (
	// Global flags
	serverURL string
	userID    string
	token     string
	timeout   time.Duration

	// Global client instance
	client *httpclient.Client
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "bugstream-cli",
		Short: "Bugstream command line interface",
		Long: `bugstream-cli is a command line interface for the bugstream server.
It provides commands for authentication, event ingestion, live event tailing,
and server statistics.`,
		PersistentPreRunE: initializeClient,
	}

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Bugstream server URL")
	rootCmd.PersistentFlags().StringVar(&userID, "user-id", "", "User ID for authentication")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "JWT token (if already authenticated)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")

	rootCmd.AddCommand(newAuthCommand())
	rootCmd.AddCommand(newPublishCommand())
	rootCmd.AddCommand(newPublishAnalyticsCommand())
	rootCmd.AddCommand(newTailCommand())
	rootCmd.AddCommand(newStatsCommand())
	rootCmd.AddCommand(newHealthCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// initializeClient sets up the HTTP client with global configuration
func initializeClient(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "help" || cmd.Parent() == nil {
		return nil
	}

	config := httpclient.Config{
		ServerURL: serverURL,
		Timeout:   timeout,
	}

	var err error
	client, err = httpclient.NewClient(config)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	if token != "" {
		client.SetToken(token)
	}
	return nil
}

// requireAuthentication checks if the client is authenticated
func requireAuthentication() error {
	if client == nil {
		return fmt.Errorf("client not initialized")
	}
	if !client.IsAuthenticated() {
		return fmt.Errorf("not authenticated - run 'bugstream-cli auth' first or provide --token")
	}
	return nil
}
