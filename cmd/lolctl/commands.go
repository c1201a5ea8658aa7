package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"lol-tracker/internal/client"
	"lol-tracker/internal/trackerv1"

	"github.com/spf13/cobra"
)

func newClient(cmd *cobra.Command) (*client.Client, context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout)
	return client.New(flagServer), ctx, cancel
}

var registerCmd = &cobra.Command{
	Use:   "register <user> <Name#TAG>",
	Short: "Start tracking a Riot ID",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, ctx, cancel := newClient(cmd)
		defer cancel()

		identity, err := c.Register(ctx, args[0], args[1], flagRegion)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (%s) as %s\n", identity.RiotID, identity.Region, identity.ID)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list <user>",
	Short: "List a user's identities",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, ctx, cancel := newClient(cmd)
		defer cancel()

		identities, err := c.ListIdentities(ctx, args[0])
		if err != nil {
			return err
		}
		if len(identities) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No identities registered.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tRIOT ID\tREGION\tSINCE")
		for _, i := range identities {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", i.ID, i.RiotID, i.Region, i.CreatedAt.Format("2006-01-02"))
		}
		return w.Flush()
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <identity-id>",
	Short: "Stop tracking an identity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, ctx, cancel := newClient(cmd)
		defer cancel()

		if err := c.Unregister(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
		return nil
	},
}

var liveCmd = &cobra.Command{
	Use:   "live <identity-id>",
	Short: "Show whether an identity is in game",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, ctx, cancel := newClient(cmd)
		defer cancel()

		inGame, err := c.InGame(ctx, args[0])
		if err != nil {
			return err
		}
		if inGame {
			fmt.Fprintln(cmd.OutOrStdout(), "In game")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "Not in game")
		}
		return nil
	},
}

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Show the ranked solo leaderboard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, ctx, cancel := newClient(cmd)
		defer cancel()

		entries, err := c.Leaderboard(ctx)
		if err != nil {
			return err
		}
		return printLeaderboard(cmd.OutOrStdout(), entries)
	},
}

func printLeaderboard(out io.Writer, entries []trackerv1.LeaderboardEntry) error {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No identities tracked.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tRIOT ID\tRANK\tW/L")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d/%d\n", e.Position, e.RiotID, e.Display, e.Wins, e.Losses)
	}
	return w.Flush()
}
