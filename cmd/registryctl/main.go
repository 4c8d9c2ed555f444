package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"electionledger/internal/app/bootstrap"
	"electionledger/internal/platform/config"

	"github.com/spf13/cobra"
)

var (
	callerFlag  string
	backendFlag string
	verboseFlag bool

	runtime *bootstrap.Runtime
)

var rootCmd = &cobra.Command{
	Use:           "registryctl",
	Short:         "Operate the election registry against the configured store",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		backend, err := cliBackend(cfg.StoreBackend, backendFlag, strings.TrimSpace(os.Getenv("STORE_BACKEND")) != "")
		if err != nil {
			return err
		}
		cfg.StoreBackend = backend
		level := slog.LevelWarn
		if verboseFlag {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})).
			With("service", cfg.ServiceName, "process", "registryctl")
		runtime, err = bootstrap.BuildRuntime(cmd.Context(), cfg, logger)
		return err
	},
	PersistentPostRunE: func(*cobra.Command, []string) error {
		return runtime.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&callerFlag, "as", os.Getenv("REGISTRYCTL_PRINCIPAL"), "principal performing the operation")
	rootCmd.PersistentFlags().StringVar(&backendFlag, "store", "", "override STORE_BACKEND (postgres|sqlite|redis)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "log debug output to stderr")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

var errMemoryBackend = errors.New("the memory store does not outlive one registryctl invocation; use sqlite, postgres or redis")

// cliBackend picks the store for one invocation. Every invocation is a new
// process, so a defaulted memory store becomes sqlite and an explicit one is
// rejected.
func cliBackend(configured string, override string, explicit bool) (string, error) {
	backend := configured
	if override != "" {
		backend = strings.ToLower(strings.TrimSpace(override))
		explicit = true
	}
	if backend != config.StoreMemory {
		return backend, nil
	}
	if explicit {
		return "", errMemoryBackend
	}
	return config.StoreSQLite, nil
}

func requireCaller() (string, error) {
	if callerFlag == "" {
		return "", fmt.Errorf("--as (or REGISTRYCTL_PRINCIPAL) is required")
	}
	return callerFlag, nil
}
