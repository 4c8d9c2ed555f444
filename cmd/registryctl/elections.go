package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	httptransport "electionledger/contexts/governance/election-registry/transport/http"

	"github.com/spf13/cobra"
)

var (
	durationFlag       time.Duration
	idempotencyKeyFlag string
)

func init() {
	createElectionCmd.Flags().DurationVar(&durationFlag, "duration", time.Hour, "voting window length")
	createElectionCmd.Flags().StringVar(&idempotencyKeyFlag, "idempotency-key", "", "replay key")
	electionsCmd.AddCommand(createElectionCmd, listElectionsCmd, showElectionCmd, closeElectionCmd, resultsCmd)
	rootCmd.AddCommand(electionsCmd)
}

var electionsCmd = &cobra.Command{
	Use:   "elections",
	Short: "Create, inspect and close elections",
}

var createElectionCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create an election officiated by the caller",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		caller, err := requireCaller()
		if err != nil {
			return err
		}
		resp, err := runtime.Module.Handler.CreateElectionHandler(cmd.Context(), caller, idempotencyKeyFlag, httptransport.CreateElectionRequest{
			Name:            args[0],
			DurationSeconds: int64(durationFlag / time.Second),
		})
		if err != nil {
			return err
		}
		printElection(cmd, resp)
		return nil
	},
}

var listElectionsCmd = &cobra.Command{
	Use:   "list",
	Short: "List elections",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		resp, err := runtime.Module.Handler.ListElectionsHandler(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tOFFICIAL\tOPEN\tCANDIDATES\tVOTES\tENDS")
		for _, item := range resp.Items {
			fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%d\t%d\t%s\n",
				item.ElectionID, item.Name, item.ElectionOfficial, item.IsOpen,
				item.CandidateCount, item.TotalVotes, formatTime(item.EndTime))
		}
		return w.Flush()
	},
}

var showElectionCmd = &cobra.Command{
	Use:   "show ELECTION_ID",
	Short: "Show election details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		electionID, err := parseID(args[0])
		if err != nil {
			return err
		}
		resp, err := runtime.Module.Handler.GetElectionHandler(cmd.Context(), electionID)
		if err != nil {
			return err
		}
		printElection(cmd, resp)
		return nil
	},
}

var closeElectionCmd = &cobra.Command{
	Use:   "close ELECTION_ID",
	Short: "Stop voting in an election (official only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		caller, err := requireCaller()
		if err != nil {
			return err
		}
		electionID, err := parseID(args[0])
		if err != nil {
			return err
		}
		resp, err := runtime.Module.Handler.CloseElectionHandler(cmd.Context(), caller, electionID)
		if err != nil {
			return err
		}
		printElection(cmd, resp)
		return nil
	},
}

var resultsCmd = &cobra.Command{
	Use:   "results ELECTION_ID",
	Short: "Rank candidates by votes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		electionID, err := parseID(args[0])
		if err != nil {
			return err
		}
		resp, err := runtime.Module.Handler.ResultsHandler(cmd.Context(), electionID)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "election %d  open=%t  total votes=%d\n", resp.ElectionID, resp.IsOpen, resp.TotalVotes)
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RANK\tID\tNAME\tVOTES")
		for _, item := range resp.Items {
			fmt.Fprintf(w, "%d\t%d\t%s\t%d\n", item.Rank, item.CandidateID, item.Name, item.VoteCount)
		}
		return w.Flush()
	},
}

func printElection(cmd *cobra.Command, resp httptransport.ElectionResponse) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "election %d: %s\n", resp.ElectionID, resp.Name)
	fmt.Fprintf(out, "  official:   %s\n", resp.ElectionOfficial)
	fmt.Fprintf(out, "  window:     %s -> %s (%s)\n", resp.StartTime.Format(time.RFC3339), resp.EndTime.Format(time.RFC3339), formatTime(resp.EndTime))
	fmt.Fprintf(out, "  active:     %t (open=%t)\n", resp.IsActive, resp.IsOpen)
	fmt.Fprintf(out, "  candidates: %d  votes: %d\n", resp.CandidateCount, resp.TotalVotes)
	if resp.Replayed {
		fmt.Fprintln(out, "  (replayed)")
	}
}

func parseID(raw string) (int64, error) {
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return value, nil
}
