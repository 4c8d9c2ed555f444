package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	rewardsCmd.AddCommand(listRewardsCmd, settleRewardsCmd)
	outboxCmd.AddCommand(relayOutboxCmd)
	rootCmd.AddCommand(rewardsCmd, outboxCmd)
}

var rewardsCmd = &cobra.Command{
	Use:   "rewards",
	Short: "Inspect and settle the reward ledger",
}

var listRewardsCmd = &cobra.Command{
	Use:   "list ELECTION_ID",
	Short: "List reward entries of an election",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		electionID, err := parseID(args[0])
		if err != nil {
			return err
		}
		resp, err := runtime.Module.Handler.ListRewardsHandler(cmd.Context(), electionID)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "REWARD\tVOTER\tAMOUNT\tSTATUS\tATTEMPTS\tCREATED")
		for _, item := range resp.Items {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
				item.RewardID, item.Voter, formatAmount(item.Amount), item.Status, item.Attempts, formatTime(item.CreatedAt))
		}
		return w.Flush()
	},
}

var settleRewardsCmd = &cobra.Command{
	Use:   "settle",
	Short: "Run one reward settlement cycle",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		report, err := runtime.Module.RewardSettler.RunOnce(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "settled=%d retried=%d failed=%d deferred=%d\n", report.Settled, report.Retried, report.Failed, report.Deferred)
		return nil
	},
}

var outboxCmd = &cobra.Command{
	Use:   "outbox",
	Short: "Operate the event outbox",
}

var relayOutboxCmd = &cobra.Command{
	Use:   "relay",
	Short: "Publish one batch of pending events",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		published, err := runtime.Module.OutboxRelay.RunOnce(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "published %d events\n", published)
		return nil
	},
}
