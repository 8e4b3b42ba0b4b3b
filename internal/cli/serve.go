package cli

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vietddude/netfailover/internal/control"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Track interfaces and serve health and metrics endpoints",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	appCfg, err := control.FromAppConfig(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := control.NewApp(ctx, appCfg)
	if err != nil {
		slog.Error("Failed to initialize app", "error", err)
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			slog.Error("Error during shutdown", "error", err)
		}
	}()

	slog.Info("netfailover started", "config", cfgPath, "port", cfg.Server.Port, "interfaces", appCfg.Priority.Len())

	if err := app.Run(ctx); err != nil && err != context.Canceled {
		slog.Error("App stopped with error", "error", err)
		return err
	}
	slog.Info("Received signal, shut down")
	return nil
}
