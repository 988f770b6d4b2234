package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/toolhub/toolhub/server"
	"github.com/toolhub/toolhub/server/profile"
	"github.com/toolhub/toolhub/store"
	"github.com/toolhub/toolhub/store/db"
)

var rootCmd = &cobra.Command{
	Use:   "toolhub",
	Short: "Chat session service with rolling summaries",
	RunE: func(_ *cobra.Command, _ []string) error {
		instanceProfile, err := profile.GetProfile()
		if err != nil {
			return fmt.Errorf("get profile: %w", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		dbDriver, err := db.NewDBDriver(instanceProfile)
		if err != nil {
			return fmt.Errorf("create db driver: %w", err)
		}
		storeInstance := store.New(dbDriver)
		if err := storeInstance.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}

		s, err := server.NewServer(ctx, instanceProfile, storeInstance)
		if err != nil {
			return fmt.Errorf("create server: %w", err)
		}

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			sig := <-sigCh
			slog.Info("received signal, shutting down", "signal", sig.String())
			s.Shutdown(ctx)
			cancel()
		}()

		return s.Start(ctx)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("failed to run", "err", err)
		os.Exit(1)
	}
}
