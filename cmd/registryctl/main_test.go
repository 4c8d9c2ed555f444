package main

import (
	"errors"
	"testing"

	"electionledger/internal/platform/config"
)

func TestCLIBackendSelection(t *testing.T) {
	cases := []struct {
		name       string
		configured string
		override   string
		explicit   bool
		want       string
		wantErr    error
	}{
		{name: "defaulted memory falls back to sqlite", configured: config.StoreMemory, want: config.StoreSQLite},
		{name: "explicit memory env is rejected", configured: config.StoreMemory, explicit: true, wantErr: errMemoryBackend},
		{name: "memory flag is rejected", configured: config.StoreSQLite, override: "memory", wantErr: errMemoryBackend},
		{name: "flag overrides env", configured: config.StoreSQLite, override: " Postgres ", explicit: true, want: config.StorePostgres},
		{name: "configured backend is kept", configured: config.StoreRedis, explicit: true, want: config.StoreRedis},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := cliBackend(tc.configured, tc.override, tc.explicit)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %q %v", tc.wantErr, got, err)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Fatalf("cliBackend = %q, %v; want %q", got, err, tc.want)
			}
		})
	}
}
