package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/nodepulse/internal/api"
)

var statusServer string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the health of every node served by a running nodepulse",
	Run:   runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusServer, "server", "http://localhost:5000", "nodepulse base URL")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	url := strings.TrimRight(statusServer, "/") + "/health/detailed"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		slog.Error("Failed to build request", "error", err)
		os.Exit(1)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		slog.Error("Failed to query nodepulse", "url", url, "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// 503 still carries the report.
	var report api.HealthReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		slog.Error("Failed to decode health report", "status", resp.StatusCode, "error", err)
		os.Exit(1)
	}

	names := make([]string, 0, len(report.Nodes))
	for name := range report.Nodes {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "NODE\tSTATUS\tSCORE\tHISTORY\tLAST SAMPLE")
	for _, name := range names {
		h := report.Nodes[name]
		score, last := "-", "-"
		if h.HealthScore != nil {
			score = fmt.Sprint(*h.HealthScore)
		}
		if h.LastSampleAt != nil {
			last = h.LastSampleAt.Format(time.RFC3339)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", name, h.Status, score, h.HistoryLength, last)
	}
	_ = w.Flush()

	fmt.Printf("\noverall: %s\n", report.Status)
}
