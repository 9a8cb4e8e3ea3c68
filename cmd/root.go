package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"imagededup/internal/fingerprint"
	"imagededup/internal/quality"
)

var (
	dbPath    string
	threshold float64
	hashSize  int
	workers   int
	sharpness string
)

var rootCmd = &cobra.Command{
	Use:   "imagededup",
	Short: "Find and manage visually duplicate images",
	Long: `imagededup is a CLI tool for deduplicating near-identical images.

It computes several perceptual fingerprints per image (frequency,
gradient and wavelet hashes), groups images whose fingerprints are
similar, scores each image's quality, and picks the best member of
each group to keep. Re-encoded, resized or recompressed copies are
detected even though their bytes differ.

Example usage:
  imagededup scan ./photos            # Scan a folder for similar images
  imagededup list                     # List similarity groups
  imagededup clean --dry-run          # Preview deletions (keep best quality)
  imagededup organize --dry-run       # Preview grouping into folders
  imagededup report                   # Emit the JSON report`,
	PersistentPreRunE: validateFlags,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// validateFlags rejects caller misconfiguration before any work starts.
func validateFlags(cmd *cobra.Command, args []string) error {
	if threshold < 0 || threshold > 1 {
		return fmt.Errorf("threshold %v out of range [0,1]", threshold)
	}
	if err := fingerprint.ValidateHashSize(hashSize); err != nil {
		return err
	}
	if workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", workers)
	}
	if _, err := quality.NewMeter(sharpness); err != nil {
		return err
	}
	return nil
}

func init() {
	homeDir, _ := os.UserHomeDir()
	defaultDB := filepath.Join(homeDir, ".imagededup", "images.db")

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDB, "Path to SQLite database")
	rootCmd.PersistentFlags().Float64Var(&threshold, "threshold", 0.9, "Similarity threshold (0-1, higher = stricter)")
	rootCmd.PersistentFlags().IntVar(&hashSize, "hash-size", 8, "Fingerprint resolution (8, 16 or 32)")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 8, "Number of parallel workers for scanning")
	rootCmd.PersistentFlags().StringVar(&sharpness, "sharpness", "auto", "Sharpness backend (auto, laplacian or heuristic)")
}
