package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"imagededup/internal/cluster"
	"imagededup/internal/models"
	"imagededup/internal/report"
	"imagededup/internal/storage"
)

var (
	listJSON    bool
	listVerbose bool
	listSummary bool
	listLimit   int
	listOffset  int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all similarity groups",
	Long: `Display all detected similarity groups with their images.

Each group shows:
- Group number
- Images in the group with their quality scores
- Which image will be kept (highest quality) marked with ✓
- Which images will be removed marked with ✗

Example:
  imagededup list              # Show first 10 groups (default)
  imagededup list -n 0         # Show all groups
  imagededup list -s           # Summary view (compact)
  imagededup list --offset 10  # Groups 11-20`,
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output the full report as JSON")
	listCmd.Flags().BoolVarP(&listVerbose, "verbose", "v", false, "Show detailed image info")
	listCmd.Flags().BoolVarP(&listSummary, "summary", "s", false, "Show summary only (group counts and sizes)")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 10, "Limit number of groups to display (0 = all)")
	listCmd.Flags().IntVar(&listOffset, "offset", 0, "Skip first N groups (for pagination)")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
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
		fmt.Println("Run 'imagededup scan <folder>' to scan for similar images.")
		return nil
	}

	verdicts, _ := cluster.ArbitrateAll(clusters, cluster.QualityFirst)

	if listJSON {
		rep, err := buildStoredReport(store, "preview", verdicts)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}

	var totalDuplicates int
	var totalSavings int64
	for _, v := range verdicts {
		for _, d := range v.Disposables {
			totalDuplicates++
			totalSavings += d.FileSize
		}
	}

	fmt.Printf("Found %d similarity groups (%d duplicates, %s reclaimable)\n\n",
		len(verdicts), totalDuplicates, humanize.Bytes(uint64(totalSavings)))

	totalGroups := len(verdicts)
	startIdx := listOffset
	if startIdx > len(verdicts) {
		startIdx = len(verdicts)
	}
	verdicts = verdicts[startIdx:]

	if listLimit > 0 && listLimit < len(verdicts) {
		verdicts = verdicts[:listLimit]
	}

	if len(verdicts) == 0 {
		fmt.Printf("No groups in range (offset %d exceeds total %d)\n", listOffset, totalGroups)
	} else if listSummary {
		printSummaryTable(verdicts)
	} else {
		for _, v := range verdicts {
			printGroup(v, listVerbose)
		}
	}

	endIdx := startIdx + len(verdicts)
	if len(verdicts) > 0 {
		fmt.Printf("Showing groups %d-%d of %d\n", startIdx+1, endIdx, totalGroups)
		if endIdx < totalGroups {
			limitArg := ""
			if listLimit > 0 {
				limitArg = fmt.Sprintf(" -n %d", listLimit)
			}
			fmt.Printf("Next page: imagededup list%s --offset %d\n", limitArg, endIdx)
		}
	}

	fmt.Println()
	fmt.Println("Run 'imagededup clean --dry-run' to preview deletions")
	fmt.Println("Run 'imagededup clean' to remove duplicates")

	return nil
}

func printSummaryTable(verdicts []*cluster.Verdict) {
	fmt.Printf("%-8s  %-8s  %-12s  %-14s  %s\n", "Group", "Images", "Reclaimable", "Quality range", "Keep (best quality)")
	fmt.Println(strings.Repeat("-", 84))

	for _, v := range verdicts {
		var reclaimable int64
		for _, d := range v.Disposables {
			reclaimable += d.FileSize
		}

		keepName := filepath.Base(v.Keeper.Path)
		if len(keepName) > 35 {
			keepName = keepName[:32] + "..."
		}

		fmt.Printf("#%-7d  %-8d  %-12s  %.3f - %.3f  %s\n",
			v.Cluster.ID+1, len(v.Cluster.Members), humanize.Bytes(uint64(reclaimable)),
			v.QualityRange.Min, v.QualityRange.Max, keepName)
	}
	fmt.Println()
}

func printGroup(v *cluster.Verdict, verbose bool) {
	fmt.Printf("Group #%d (%d images, avg quality %.3f)\n",
		v.Cluster.ID+1, len(v.Cluster.Members), v.QualityRange.Avg)
	fmt.Println(strings.Repeat("-", 60))

	for _, img := range v.Cluster.Members {
		isKeep := img.Path == v.Keeper.Path
		marker := color.RedString("✗")
		if isKeep {
			marker = color.GreenString("✓")
		}

		shortPath := shortenPath(img.Path, 40)

		if verbose {
			fmt.Printf("  %s %s\n", marker, img.Path)
			fmt.Printf("      Resolution: %dx%d  Format: %s  Size: %s\n",
				img.Width, img.Height, strings.ToUpper(img.Format), humanize.Bytes(uint64(img.FileSize)))
			fmt.Printf("      Quality: %.3f (resolution %.3f, size %.3f, sharpness %.3f)\n",
				img.Quality.Overall, img.Quality.Resolution, img.Quality.Size, img.Quality.Sharpness)
		} else {
			fmt.Printf("  %s %-40s  %dx%d  %-4s  %8s  Quality: %.3f\n",
				marker, shortPath, img.Width, img.Height,
				strings.ToUpper(img.Format), humanize.Bytes(uint64(img.FileSize)), img.Quality.Overall)
		}
	}
	fmt.Println()
}

func shortenPath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}

	dir, file := filepath.Split(path)
	if len(file) >= maxLen-3 {
		return "..." + file[len(file)-(maxLen-3):]
	}

	remaining := maxLen - len(file) - 4 // 4 for ".../"
	if remaining > 0 && len(dir) > remaining {
		dir = dir[len(dir)-remaining:]
	}
	return "..." + dir + file
}

// buildStoredReport assembles a Report from the database, echoing the
// parameters of the scan that produced the stored clusters.
func buildStoredReport(store *storage.Storage, action string, verdicts []*cluster.Verdict) (*models.Report, error) {
	failed, err := store.GetFailedFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to get failed files: %w", err)
	}

	builder := &report.Builder{Threshold: threshold, HashSize: hashSize}
	if last, err := store.LastScan(); err == nil && last != nil {
		builder.TargetDir = last.Folder
		builder.Threshold = last.Threshold
		builder.HashSize = last.HashSize
	}

	return builder.Build(action, verdicts, failed), nil
}
