package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newAuthCommand() *cobra.Command {
	var admin bool

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with the bugstream server",
		Long: `Authenticate with the bugstream server using your user ID.
This will generate a JWT token that can be used for subsequent requests.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuth(admin)
		},
	}

	cmd.Flags().BoolVar(&admin, "admin", false, "Request an admin token")
	return cmd
}

func runAuth(admin bool) error {
	if userID == "" {
		return fmt.Errorf("user-id is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	fmt.Printf("Authenticating with server %s as user %s...\n", serverURL, userID)

	resp, err := client.Authenticate(ctx, userID, admin)
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	fmt.Printf("✅ Authentication successful!\n")
	fmt.Printf("Token: %s\n", resp.Token)
	fmt.Printf("Expires: %s\n", resp.ExpiresAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("\nSave this token for future use:\n")
	fmt.Printf("  export BUGSTREAM_TOKEN=\"%s\"\n", resp.Token)
	fmt.Printf("  bugstream-cli --token \"$BUGSTREAM_TOKEN\" tail --stream bug_updates\n")

	return nil
}
