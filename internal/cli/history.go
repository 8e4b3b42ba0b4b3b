package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vietddude/netfailover/internal/control"
	"github.com/vietddude/netfailover/internal/core/domain"
)

var (
	historyLimit     int
	historyExecution string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show journaled failover attempts from Redis or PostgreSQL",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of recent attempts")
	historyCmd.Flags().StringVar(&historyExecution, "execution", "", "show every attempt of one execution")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	appCfg, err := control.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	appCfg.Port = 0

	ctx := cmd.Context()
	app, err := control.NewApp(ctx, appCfg)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	history := app.History()
	if history == nil {
		return errors.New("no attempt journal configured, set redis.url or database.url")
	}

	var attempts []domain.Attempt
	if historyExecution != "" {
		attempts, err = history.Execution(ctx, historyExecution)
	} else {
		attempts, err = history.Recent(ctx, historyLimit)
	}
	if err != nil {
		return err
	}
	if len(attempts) == 0 {
		fmt.Println("No attempts recorded")
		return nil
	}
	printAttempts(attempts)
	return nil
}
