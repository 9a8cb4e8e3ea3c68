package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"imagededup/internal/cluster"
	"imagededup/internal/plan"
	"imagededup/internal/storage"
)

var (
	organizeDest      string
	organizeDryRun    bool
	organizeNoConfirm bool
	organizeGroupIDs  []int
)

var organizeCmd = &cobra.Command{
	Use:   "organize",
	Short: "Move duplicates into per-group folders",
	Long: `Relocate similar images into one folder per group, keeping the
earliest-captured image of each group in place.

Unlike clean, organize keeps every file: duplicates are moved into
<dest>/group_NNNN/ directories for manual review. Name collisions get a
numeric suffix (image_1.png, image_2.png, ...).

The destination defaults to deduplication_results/organized_duplicates
under the last scanned folder.

Example:
  imagededup organize --dry-run
  imagededup organize --dest ./sorted
  imagededup organize --group=2`,
	RunE: runOrganize,
}

func init() {
	organizeCmd.Flags().StringVar(&organizeDest, "dest", "", "Destination root for group folders")
	organizeCmd.Flags().BoolVar(&organizeDryRun, "dry-run", false, "Preview without moving")
	organizeCmd.Flags().BoolVarP(&organizeNoConfirm, "yes", "y", false, "Skip confirmation prompt")
	organizeCmd.Flags().IntSliceVarP(&organizeGroupIDs, "group", "g", nil, "Group numbers to organize (can be specified multiple times)")
	rootCmd.AddCommand(organizeCmd)
}

func runOrganize(cmd *cobra.Command, args []string) error {
	store, err := storage.NewStorage(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	dest := organizeDest
	if dest == "" {
		last, err := store.LastScan()
		if err != nil {
			return fmt.Errorf("failed to read scan history: %w", err)
		}
		if last == nil {
			return fmt.Errorf("no scan recorded; pass --dest or run 'imagededup scan' first")
		}
		dest = filepath.Join(last.Folder, "deduplication_results", "organized_duplicates")
	}

	clusters, err := store.GetClusters()
	if err != nil {
		return fmt.Errorf("failed to get clusters: %w", err)
	}
	if len(clusters) == 0 {
		fmt.Println("No similarity groups found.")
		return nil
	}

	clusters, err = filterClusters(clusters, organizeGroupIDs)
	if err != nil {
		return err
	}
	if clusters == nil {
		return nil
	}

	verdicts, _ := cluster.ArbitrateAll(clusters, cluster.EarliestFirst)

	planner := plan.NewPlanner(plan.ModeOrganize,
		plan.WithOrganizeDir(dest),
		plan.WithExistsFunc(func(path string) bool {
			_, err := os.Stat(path)
			return err == nil
		}),
	)
	p, err := planner.Build(verdicts)
	if err != nil {
		return err
	}

	if len(p.Actions) == 0 {
		fmt.Println("No files to move.")
		return nil
	}

	fmt.Printf("Will move %d files into %d group folders under %s (%s)\n\n",
		len(p.Actions), len(p.Clusters), dest, humanize.Bytes(uint64(p.ReclaimedBytes)))

	if organizeDryRun {
		plan.Execute(p, plan.DryRunApplier{W: os.Stdout})
		fmt.Println()
		fmt.Println("(Dry run - no files were modified)")
		return nil
	}

	if !organizeNoConfirm && !confirm(fmt.Sprintf("Move %d files? [y/N]: ", len(p.Actions))) {
		fmt.Println("Aborted.")
		return nil
	}

	result := plan.Execute(p, plan.FSApplier{})
	forgetApplied(store, p, result)

	fmt.Println()
	fmt.Printf("Moved %d files to %s\n", result.Applied, dest)
	for _, f := range result.Failures {
		color.Red("Failed: %s (%v)", f.Action.Source, f.Err)
	}
	fmt.Printf("Space organized away: %s\n", humanize.Bytes(uint64(result.ReclaimedBytes)))

	return nil
}
