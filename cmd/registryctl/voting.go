package main

import (
	"fmt"
	"text/tabwriter"

	httptransport "electionledger/contexts/governance/election-registry/transport/http"

	"github.com/spf13/cobra"
)

func init() {
	addCandidateCmd.Flags().StringVar(&idempotencyKeyFlag, "idempotency-key", "", "replay key")
	candidatesCmd.AddCommand(addCandidateCmd, listCandidatesCmd)
	votersCmd.AddCommand(authorizeVoterCmd, showVoterCmd)
	rootCmd.AddCommand(candidatesCmd, votersCmd, voteCmd)
}

var candidatesCmd = &cobra.Command{
	Use:   "candidates",
	Short: "Register and list candidates",
}

var addCandidateCmd = &cobra.Command{
	Use:   "add ELECTION_ID NAME",
	Short: "Register a candidate (official only)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		caller, err := requireCaller()
		if err != nil {
			return err
		}
		electionID, err := parseID(args[0])
		if err != nil {
			return err
		}
		resp, err := runtime.Module.Handler.AddCandidateHandler(cmd.Context(), caller, idempotencyKeyFlag, electionID, httptransport.AddCandidateRequest{
			Name: args[1],
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "candidate %d: %s\n", resp.CandidateID, resp.Name)
		return nil
	},
}

var listCandidatesCmd = &cobra.Command{
	Use:   "list ELECTION_ID",
	Short: "List candidates in id order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		electionID, err := parseID(args[0])
		if err != nil {
			return err
		}
		resp, err := runtime.Module.Handler.ListCandidatesHandler(cmd.Context(), electionID)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tVOTES")
		for _, item := range resp.Items {
			fmt.Fprintf(w, "%d\t%s\t%d\n", item.CandidateID, item.Name, item.VoteCount)
		}
		return w.Flush()
	},
}

var votersCmd = &cobra.Command{
	Use:   "voters",
	Short: "Authorize and inspect voters",
}

var authorizeVoterCmd = &cobra.Command{
	Use:   "authorize ELECTION_ID PRINCIPAL",
	Short: "Authorize a principal to vote (official only)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		caller, err := requireCaller()
		if err != nil {
			return err
		}
		electionID, err := parseID(args[0])
		if err != nil {
			return err
		}
		resp, err := runtime.Module.Handler.AuthorizeVoterHandler(cmd.Context(), caller, electionID, httptransport.AuthorizeVoterRequest{
			Voter: args[1],
		})
		if err != nil {
			return err
		}
		printVoter(cmd, resp)
		return nil
	},
}

var showVoterCmd = &cobra.Command{
	Use:   "show ELECTION_ID PRINCIPAL",
	Short: "Show a principal's voting status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		electionID, err := parseID(args[0])
		if err != nil {
			return err
		}
		resp, err := runtime.Module.Handler.GetVoterHandler(cmd.Context(), electionID, args[1])
		if err != nil {
			return err
		}
		printVoter(cmd, resp)
		return nil
	},
}

var voteCmd = &cobra.Command{
	Use:   "vote ELECTION_ID CANDIDATE_ID",
	Short: "Cast the caller's vote",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		caller, err := requireCaller()
		if err != nil {
			return err
		}
		electionID, err := parseID(args[0])
		if err != nil {
			return err
		}
		candidateID, err := parseID(args[1])
		if err != nil {
			return err
		}
		resp, err := runtime.Module.Handler.CastVoteHandler(cmd.Context(), caller, electionID, httptransport.CastVoteRequest{
			CandidateID: candidateID,
		})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "vote recorded for candidate %d (now %d votes)\n", resp.CandidateID, resp.VoteCount)
		if resp.Reward != nil {
			fmt.Fprintf(out, "reward %s owed: %s\n", resp.Reward.RewardID, formatAmount(resp.Reward.Amount))
		}
		return nil
	},
}

func printVoter(cmd *cobra.Command, resp httptransport.VoterResponse) {
	fmt.Fprintf(cmd.OutOrStdout(), "election %d voter %s: authorized=%t voted=%t\n",
		resp.ElectionID, resp.Voter, resp.IsAuthorized, resp.HasVoted)
}
