package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"imagededup/internal/cluster"
	"imagededup/internal/fingerprint"
	"imagededup/internal/quality"
	"imagededup/internal/scan"
	"imagededup/internal/storage"
)

var (
	scanNoRecursive bool
	scanTimeout     time.Duration
)

var scanCmd = &cobra.Command{
	Use:   "scan <folder>",
	Short: "Scan a folder for visually similar images",
	Long: `Scan a folder recursively for images and group near-duplicates.

The scan will:
1. Find all supported images (jpg, png, gif, webp, etc.)
2. Compute perceptual fingerprints and a quality score for each image
3. Group similar images by fingerprint distance
4. Store results in the database for later use

Example:
  imagededup scan ./photos
  imagededup scan /path/to/images --threshold 0.85 --hash-size 16`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().BoolVar(&scanNoRecursive, "no-recursive", false, "Do not descend into subdirectories")
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", 30*time.Second, "Per-image processing timeout")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	absFolder, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(absFolder)
	if err != nil {
		return fmt.Errorf("folder not found: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", absFolder)
	}

	fmt.Printf("Scanning: %s\n", absFolder)
	fmt.Printf("Threshold: %.2f  Hash size: %d  Workers: %d\n\n", threshold, hashSize, workers)

	store, err := storage.NewStorage(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	extractor, err := fingerprint.NewExtractor(hashSize)
	if err != nil {
		return err
	}
	meter, err := quality.NewMeter(sharpness)
	if err != nil {
		return err
	}
	clusterer, err := cluster.NewClusterer(threshold)
	if err != nil {
		return err
	}

	// Ctrl-C aborts between images; completed records stay valid.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	lastLine := ""
	scanner := scan.NewScanner(extractor, quality.NewScorer(meter),
		scan.WithWorkers(workers),
		scan.WithTimeout(scanTimeout),
		scan.WithLogf(func(format string, args ...any) {
			if lastLine != "" {
				fmt.Print("\r" + strings.Repeat(" ", len(lastLine)) + "\r")
				lastLine = ""
			}
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}),
		scan.WithProgress(func(scanned, total int, current string) {
			if lastLine != "" {
				fmt.Print("\r" + strings.Repeat(" ", len(lastLine)) + "\r")
			}
			shortPath := current
			if len(shortPath) > 50 {
				shortPath = "..." + shortPath[len(shortPath)-47:]
			}
			lastLine = fmt.Sprintf("Progress: %d/%d  %s", scanned, total, shortPath)
			fmt.Print(lastLine)
		}),
	)

	result, err := scanner.ScanFolder(ctx, absFolder, !scanNoRecursive)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if lastLine != "" {
		fmt.Print("\r" + strings.Repeat(" ", len(lastLine)) + "\r")
	}

	fmt.Printf("Scanned: %d images\n", len(result.Records))
	if len(result.Failed) > 0 {
		fmt.Printf("Failed:  %d files (kept on the failed-file list)\n", len(result.Failed))
	}

	if err := store.SaveFailedFiles(result.Failed); err != nil {
		return fmt.Errorf("failed to save failed files: %w", err)
	}

	if len(result.Records) == 0 {
		fmt.Println("No images found.")
		return nil
	}

	fmt.Println("Finding similar images...")
	clusters := clusterer.Cluster(result.Records)

	if err := store.SaveRecords(result.Records); err != nil {
		return fmt.Errorf("failed to save records: %w", err)
	}
	if err := store.UpdateClusters(clusters); err != nil {
		return fmt.Errorf("failed to update clusters: %w", err)
	}

	verdicts, _ := cluster.ArbitrateAll(clusters, cluster.QualityFirst)
	var reclaimable int64
	var qualitySum float64
	var grouped int
	for _, v := range verdicts {
		for _, d := range v.Disposables {
			reclaimable += d.FileSize
		}
		for _, m := range v.Cluster.Members {
			qualitySum += m.Quality.Overall
			grouped++
		}
	}

	store.RecordScan(storage.ScanInfo{
		Folder:          absFolder,
		Threshold:       threshold,
		HashSize:        hashSize,
		TotalImages:     len(result.Records),
		TotalGroups:     len(clusters),
		TotalDuplicates: grouped - len(clusters),
	})

	fmt.Println()
	color.Cyan("=== Scan Complete ===")
	fmt.Printf("Total images:     %d\n", len(result.Records))
	fmt.Printf("Similar groups:   %d\n", len(clusters))
	fmt.Printf("Duplicates found: %d\n", grouped-len(clusters))
	fmt.Printf("Reclaimable:      %s\n", humanize.Bytes(uint64(reclaimable)))
	if grouped > 0 {
		fmt.Printf("Average quality:  %.3f\n", qualitySum/float64(grouped))
	}

	if len(clusters) > 0 {
		fmt.Println()
		fmt.Println("Run 'imagededup list' to see similarity groups")
		fmt.Println("Run 'imagededup clean --dry-run' to preview deletions")
	}

	return nil
}
