// lolctl manages identities on a running tracker.
//
// Usage:
//
//	lolctl register <user> <Name#TAG>  - Start tracking a Riot ID for a user
//	lolctl list <user>                 - List a user's identities
//	lolctl remove <identity-id>        - Stop tracking an identity
//	lolctl live <identity-id>          - Show whether an identity is in game
//	lolctl leaderboard                 - Show the ranked leaderboard
//
// Global flags:
//
//	--server <url>     - Tracker base URL (default: http://localhost:8080)
//	--timeout <dur>    - Request timeout (default: 30s)
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	flagServer  string
	flagTimeout time.Duration
	flagRegion  string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "lolctl",
	Short:         "Manage tracked League of Legends accounts",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagServer, "server", "http://localhost:8080", "Tracker base URL")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 30*time.Second, "Request timeout")

	registerCmd.Flags().StringVar(&flagRegion, "region", "", "Platform routing value, e.g. euw1 (server default if empty)")

	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(liveCmd)
	rootCmd.AddCommand(leaderboardCmd)
}
