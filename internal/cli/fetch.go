package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/netfailover/internal/control"
	"github.com/vietddude/netfailover/internal/core/domain"
	"github.com/vietddude/netfailover/internal/infra/storage/memory"
)

var (
	fetchMethod  string
	fetchData    string
	fetchTimeout time.Duration
	fetchShow    bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <url>",
	Short: "Send one request with interface failover and show every attempt",
	Args:  cobra.ExactArgs(1),
	RunE:  runFetch,
}

func init() {
	fetchCmd.Flags().StringVarP(&fetchMethod, "method", "X", http.MethodGet, "HTTP method")
	fetchCmd.Flags().StringVarP(&fetchData, "data", "d", "", "request body")
	fetchCmd.Flags().DurationVar(&fetchTimeout, "timeout", 30*time.Second, "overall request timeout")
	fetchCmd.Flags().BoolVar(&fetchShow, "body", false, "print the response body")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	appCfg, err := control.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	appCfg.Port = 0
	attempts := memory.NewAttemptStore(0)
	appCfg.Journal = attempts

	ctx, cancel := context.WithTimeout(cmd.Context(), fetchTimeout)
	defer cancel()

	app, err := control.NewApp(ctx, appCfg)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	// One synchronous scan so the registry is populated before the request.
	if err := app.Poller().Scan(); err != nil {
		return err
	}
	go func() { _ = app.Poller().Run(ctx) }()

	var body io.Reader
	if fetchData != "" {
		body = strings.NewReader(fetchData)
	}
	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(fetchMethod), args[0], body)
	if err != nil {
		return err
	}

	resp, reqErr := app.Failover().Client(nil).Do(req)
	if reqErr == nil {
		defer resp.Body.Close()
	}

	printAttempts(attempts.All())

	if reqErr != nil {
		return reqErr
	}
	fmt.Printf("\n%s %s\n", resp.Proto, resp.Status)
	if fetchShow {
		_, err = io.Copy(os.Stdout, resp.Body)
		return err
	}
	return nil
}

func printAttempts(attempts []domain.Attempt) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, "EXECUTION\tSEQ\tINTERFACE\tOUTCOME\tKIND\tLATENCY\tERROR")
	for _, a := range attempts {
		kind, msg := a.Kind, a.Error
		if kind == "" {
			kind = "-"
		}
		if msg == "" {
			msg = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			a.ExecutionID, a.Seq, a.Interface, a.Outcome, kind, a.Latency.Round(time.Millisecond), msg)
	}
	_ = w.Flush()
}
