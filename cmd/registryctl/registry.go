package main

import (
	"fmt"

	httptransport "electionledger/contexts/governance/election-registry/transport/http"

	"github.com/spf13/cobra"
)

var tokenRewardFlag string

func init() {
	initCmd.Flags().StringVar(&tokenRewardFlag, "reward", "0", "token reward per vote in base units")
	rootCmd.AddCommand(initCmd, registryCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the registry with the caller as platform owner",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		caller, err := requireCaller()
		if err != nil {
			return err
		}
		resp, err := runtime.Module.Handler.InitializeRegistryHandler(cmd.Context(), caller, httptransport.InitializeRegistryRequest{
			TokenReward: tokenRewardFlag,
		})
		if err != nil {
			return err
		}
		printRegistry(cmd, resp)
		return nil
	},
}

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Show the platform owner and token reward",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		resp, err := runtime.Module.Handler.GetRegistryHandler(cmd.Context())
		if err != nil {
			return err
		}
		printRegistry(cmd, resp)
		return nil
	},
}

func printRegistry(cmd *cobra.Command, resp httptransport.RegistryResponse) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "platform owner: %s\n", resp.PlatformOwner)
	fmt.Fprintf(out, "token reward:   %s\n", formatAmount(resp.TokenReward))
	fmt.Fprintf(out, "initialized:    %s\n", formatTime(resp.InitializedAt))
}
