package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vietddude/netfailover/internal/netif"
)

var interfacesCmd = &cobra.Command{
	Use:   "interfaces",
	Short: "Show which host interface satisfies each configured class",
	RunE:  runInterfaces,
}

func init() {
	rootCmd.AddCommand(interfacesCmd)
}

func runInterfaces(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	priority, err := cfg.PriorityConfig()
	if err != nil {
		return err
	}
	resolver, err := cfg.Resolver()
	if err != nil {
		return err
	}

	poller := netif.NewPoller(netif.HostLister{}, cfg.Monitor, nil)
	registry := netif.NewRegistry(poller, nil)
	if err := registry.Start(priority); err != nil {
		return err
	}
	defer func() { _ = registry.Close() }()

	if err := poller.Scan(); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, "CLASS\tTRANSPORT\tPHASE\tINTERFACE\tMTU\tMETERED\tADDRS")
	for _, cs := range registry.Snapshot() {
		iface, mtu, metered, addrs := "-", "-", "-", "-"
		if h, ok := cs.State.Handle(); ok {
			iface = h.String()
		}
		if caps, ok := cs.State.Capabilities(); ok {
			metered = fmt.Sprintf("%t", caps.Metered)
		}
		if link, ok := cs.State.LinkProperties(); ok {
			mtu = fmt.Sprintf("%d", link.MTU)
			parts := make([]string, len(link.Addrs))
			for i, p := range link.Addrs {
				parts[i] = p.String()
			}
			if len(parts) > 0 {
				addrs = strings.Join(parts, ",")
			}
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			cs.Class.Key(), cs.Class.Transport, cs.State.Phase(), iface, mtu, metered, addrs)
	}
	_ = w.Flush()

	order := registry.AvailableInterfaces(resolver)
	names := make([]string, len(order))
	for i, h := range order {
		names[i] = h.String()
	}
	if len(names) == 0 {
		fmt.Println("\nFailover order: none available")
	} else {
		fmt.Printf("\nFailover order: %s\n", strings.Join(names, " -> "))
	}
	return nil
}
