package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/nodepulse/internal/client"
	"github.com/vietddude/nodepulse/internal/core/domain"
)

var (
	watchServer   string
	watchNode     string
	watchInterval time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the latest sample of a node from a running nodepulse",
	Run:   runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchServer, "server", "http://localhost:5000", "nodepulse base URL")
	watchCmd.Flags().StringVar(&watchNode, "node", "", "node name (default is the first configured node)")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 5*time.Second, "refresh interval")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) {
	setupLogging("")

	p, err := client.NewPoller(watchServer, watchNode, watchInterval, client.WithOnUpdate(printState))
	if err != nil {
		slog.Error("Failed to create poller", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	p.Start(ctx)
	<-sigChan
	p.Stop()
}

func printState(s client.State) {
	if s.Stale() {
		fmt.Printf("%s  unavailable: %v\n", s.UpdatedAt.Format(time.TimeOnly), s.Err)
		return
	}
	if len(s.Data.History) == 0 {
		fmt.Printf("%s  %s: no samples yet\n", s.UpdatedAt.Format(time.TimeOnly), s.Data.Node)
		return
	}

	latest := s.Data.History[len(s.Data.History)-1]
	fmt.Printf("%s  %s: %s\n", s.UpdatedAt.Format(time.TimeOnly), s.Data.Node, summarize(latest))
}

func summarize(s domain.Sample) string {
	out := ""
	if c := s.Chain; c != nil {
		out += fmt.Sprintf("block=%d peers=%d pending=%d ", c.BlockNumber, c.PeerCount, c.PendingTransactions)
	} else {
		out += "chain=down "
	}
	if s.System == nil {
		out += "system=down "
	}
	if d := s.Derived; d != nil {
		if d.HealthScore != nil {
			out += fmt.Sprintf("score=%d ", *d.HealthScore)
		}
		if d.CPUTotalPercent != nil {
			out += fmt.Sprintf("cpu=%.1f%% ", *d.CPUTotalPercent)
		}
		if d.RAMUsagePercent != nil {
			out += fmt.Sprintf("ram=%.1f%% ", *d.RAMUsagePercent)
		}
	}
	return out
}
