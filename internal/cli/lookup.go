package cli

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/nodepulse/internal/infra/breaker"
	"github.com/vietddude/nodepulse/internal/infra/rpc"
	"github.com/vietddude/nodepulse/internal/lookup"
)

var (
	lookupRPC  string
	lookupSlot string
)

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Look up transactions and contracts on a node",
}

var lookupTxCmd = &cobra.Command{
	Use:   "tx <hash>",
	Short: "Show a transaction by hash",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runLookup(func(ctx context.Context, e *lookup.Explorer) (any, error) {
			return e.Transaction(ctx, args[0])
		})
	},
}

var lookupContractCmd = &cobra.Command{
	Use:   "contract <address>",
	Short: "Show code presence, balance and one storage slot of an address",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runLookup(func(ctx context.Context, e *lookup.Explorer) (any, error) {
			return e.Contract(ctx, args[0], lookupSlot)
		})
	},
}

func init() {
	lookupCmd.PersistentFlags().StringVar(&lookupRPC, "rpc", "", "JSON-RPC URL (default is the first configured node)")
	lookupContractCmd.Flags().StringVar(&lookupSlot, "slot", "0x0", "storage slot to read")
	lookupCmd.AddCommand(lookupTxCmd, lookupContractCmd)
	rootCmd.AddCommand(lookupCmd)
}

func runLookup(fn func(context.Context, *lookup.Explorer) (any, error)) {
	setupLogging("")

	url := lookupRPC
	if url == "" {
		url = loadConfig().Nodes[0].RPCURL
	}

	provider := rpc.NewHTTPProvider("lookup", url, 30*time.Second, breaker.Settings{})
	defer provider.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := fn(ctx, lookup.NewExplorer(provider))
	if err != nil {
		slog.Error("Lookup failed", "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
}
