package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"imagededup/internal/cluster"
	"imagededup/internal/storage"
)

var reportOut string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Emit the JSON deduplication report",
	Long: `Write the full deduplication report for the stored scan as JSON.

The report includes per-group representatives, quality ranges, space
savings, aggregate statistics and the failed-file list. Its field
layout is stable and intended for downstream tooling.

Example:
  imagededup report                      # Print to stdout
  imagededup report --out report.json    # Write to a file`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "", "Write the report to this file instead of stdout")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	store, err := storage.NewStorage(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	clusters, err := store.GetClusters()
	if err != nil {
		return fmt.Errorf("failed to get clusters: %w", err)
	}

	verdicts, _ := cluster.ArbitrateAll(clusters, cluster.QualityFirst)

	rep, err := buildStoredReport(store, "preview", verdicts)
	if err != nil {
		return err
	}

	out := os.Stdout
	if reportOut != "" {
		f, err := os.Create(reportOut)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if reportOut != "" {
		fmt.Printf("Report written to %s\n", reportOut)
	}
	return nil
}
