package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"imagededup/internal/cluster"
	"imagededup/internal/models"
	"imagededup/internal/plan"
	"imagededup/internal/storage"
)

var (
	cleanDryRun    bool
	cleanMoveTo    string
	cleanPermanent bool
	cleanNoConfirm bool
	cleanGroupIDs  []int
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove duplicate images, keeping the best of each group",
	Long: `Remove duplicate images, keeping the highest quality version of each.

The clean command will:
1. Keep the image with the highest quality score in each group
2. Move lower quality duplicates to trash (default) or delete permanently

Options:
  --dry-run     Preview what would be removed without actually removing
  --permanent   Delete files permanently instead of moving to trash
  --move-to     Move duplicates to a specific folder
  --yes         Skip confirmation prompt
  --group       Specify group numbers to clean (can be used multiple times)

Example:
  imagededup clean                     # Move to trash (default)
  imagededup clean --permanent         # Delete permanently
  imagededup clean --move-to=./backup  # Move to specific folder
  imagededup clean --dry-run           # Preview only
  imagededup clean --group=1 --group=3 # Clean only groups 1 and 3`,
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanDryRun, "dry-run", false, "Preview without removing")
	cleanCmd.Flags().BoolVar(&cleanPermanent, "permanent", false, "Delete permanently instead of moving to trash")
	cleanCmd.Flags().StringVar(&cleanMoveTo, "move-to", "", "Move duplicates to this folder")
	cleanCmd.Flags().BoolVarP(&cleanNoConfirm, "yes", "y", false, "Skip confirmation prompt")
	cleanCmd.Flags().IntSliceVarP(&cleanGroupIDs, "group", "g", nil, "Group numbers to clean (can be specified multiple times)")
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	store, err := storage.NewStorage(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	clusters, err := store.GetClusters()
	if err != nil {
		return fmt.Errorf("failed to get clusters: %w", err)
	}

	if len(clusters) == 0 {
		fmt.Println("No similarity groups found.")
		return nil
	}

	clusters, err = filterClusters(clusters, cleanGroupIDs)
	if err != nil {
		return err
	}
	if clusters == nil {
		return nil // nothing matched, message already printed
	}

	verdicts, improvement := cluster.ArbitrateAll(clusters, cluster.QualityFirst)

	p, err := plan.NewPlanner(plan.ModeDelete).Build(verdicts)
	if err != nil {
		return err
	}

	if len(p.Actions) == 0 {
		fmt.Println("No files to remove.")
		return nil
	}

	var action string
	switch {
	case cleanMoveTo != "":
		action = fmt.Sprintf("move to %s", cleanMoveTo)
	case cleanPermanent:
		action = "permanently delete"
	default:
		action = "move to trash"
	}

	fmt.Printf("Will %s %d files (%s)\n", action, len(p.Actions), humanize.Bytes(uint64(p.ReclaimedBytes)))
	fmt.Printf("Keeper quality beats group average by %.3f summed over %d groups\n\n",
		improvement, len(verdicts))

	if cleanDryRun {
		fmt.Println("Files to be removed:")
		plan.Execute(p, plan.DryRunApplier{W: os.Stdout})
		fmt.Println()
		fmt.Println("(Dry run - no files were modified)")
		fmt.Println("Run without --dry-run to actually remove files.")
		return nil
	}

	if !cleanNoConfirm && !confirm(fmt.Sprintf("Are you sure you want to %s %d files? [y/N]: ", action, len(p.Actions))) {
		fmt.Println("Aborted.")
		return nil
	}

	var applier plan.Applier
	if cleanMoveTo != "" {
		applier = plan.MoveToApplier{Dir: cleanMoveTo}
	} else {
		applier = plan.FSApplier{Permanent: cleanPermanent}
	}

	result := plan.Execute(p, applier)
	forgetApplied(store, p, result)

	fmt.Println()
	switch {
	case cleanMoveTo != "":
		fmt.Printf("Moved %d files to %s\n", result.Applied, cleanMoveTo)
	case cleanPermanent:
		fmt.Printf("Permanently deleted %d files\n", result.Applied)
	default:
		fmt.Printf("Moved %d files to trash\n", result.Applied)
	}
	for _, f := range result.Failures {
		color.Red("Failed: %s (%v)", f.Action.Source, f.Err)
	}
	fmt.Printf("Space reclaimed: %s\n", humanize.Bytes(uint64(result.ReclaimedBytes)))

	return nil
}

// filterClusters keeps only the clusters whose 1-based group number is
// listed. A nil return with no error means nothing matched.
func filterClusters(clusters []*models.Cluster, groupIDs []int) ([]*models.Cluster, error) {
	if len(groupIDs) == 0 {
		return clusters, nil
	}

	wanted := make(map[int]bool, len(groupIDs))
	for _, id := range groupIDs {
		wanted[id] = true
	}

	var filtered []*models.Cluster
	for _, c := range clusters {
		if wanted[c.ID+1] {
			filtered = append(filtered, c)
		}
	}

	if len(filtered) == 0 {
		fmt.Printf("No matching groups found for numbers: %v\n", groupIDs)
		fmt.Println("Run 'imagededup list' to see available group numbers.")
		return nil, nil
	}

	fmt.Printf("Processing %d selected group(s): %v\n\n", len(filtered), groupIDs)
	return filtered, nil
}

// forgetApplied removes successfully processed files from the database.
func forgetApplied(store *storage.Storage, p *plan.Plan, result *plan.ExecResult) {
	failed := make(map[string]bool, len(result.Failures))
	for _, f := range result.Failures {
		failed[f.Action.Source] = true
	}
	for _, act := range p.Actions {
		if !failed[act.Source] {
			store.DeleteRecord(act.Source)
		}
	}
}

func confirm(prompt string) bool {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	response, _ := reader.ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
