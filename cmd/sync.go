package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-ranker/internal/metadata"
	"github.com/kozaktomas/photo-ranker/internal/quality"
)

var syncCmd = &cobra.Command{
	Use:   "sync <dir>",
	Short: "Sync the face metadata cache for a photo directory",
	Long: `Sync the face metadata cache for a photo directory.

New and changed images are sent to the embedding server for face detection
and quality scoring; unchanged images are skipped. Entries for deleted
images are removed. The cache lives next to the photos.

Examples:
  # Sync a directory with a progress bar
  photo-ranker sync ./vacation-2025

  # JSON output for scripting
  photo-ranker sync ./vacation-2025 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().Bool("json", false, "Output as JSON instead of progress bar")
}

// SyncResult represents the result of a sync operation
type SyncResult struct {
	Success       bool              `json:"success"`
	ImagesScanned int               `json:"images_scanned"`
	Updated       int               `json:"updated"`
	Removed       int               `json:"removed"`
	Failures      map[string]string `json:"failures,omitempty"`
	DurationMs    int64             `json:"duration_ms"`
}

func runSync(cmd *cobra.Command, args []string) error {
	dir := args[0]
	jsonOutput := mustGetBool(cmd, "json")

	ctx := context.Background()
	cfg, client, err := loadConfig()
	if err != nil {
		return err
	}
	startTime := time.Now()

	if err := client.Ping(ctx); err != nil {
		return fmt.Errorf("embedding server not available: %w", err)
	}

	images, err := metadata.ListImages(dir)
	if err != nil {
		return err
	}
	if len(images) == 0 {
		if jsonOutput {
			return outputJSON(SyncResult{Success: true})
		}
		fmt.Println("No images found.")
		return nil
	}

	var bar *progressbar.ProgressBar
	if !jsonOutput {
		bar = progressbar.NewOptions(len(images),
			progressbar.OptionSetDescription("Syncing metadata"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("photos"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
	}

	extractor := quality.NewExtractor(client, client, cfg.Scoring)
	store := metadata.NewStore(dir, extractor)
	_, report, err := store.Sync(ctx, func(done, total int) {
		if bar != nil {
			bar.Set(done)
		}
	})
	if err != nil {
		return err
	}

	if bar != nil {
		fmt.Println()
	}

	result := SyncResult{
		Success:       true,
		ImagesScanned: len(images),
		Updated:       len(report.Updated),
		Removed:       len(report.Removed),
		Failures:      report.Failures,
		DurationMs:    time.Since(startTime).Milliseconds(),
	}
	if jsonOutput {
		return outputJSON(result)
	}

	fmt.Println("\nSync complete!")
	fmt.Printf("  Images scanned: %d\n", result.ImagesScanned)
	fmt.Printf("  Updated:        %d\n", result.Updated)
	fmt.Printf("  Removed:        %d\n", result.Removed)
	if len(result.Failures) > 0 {
		fmt.Printf("  Failures:       %d\n", len(result.Failures))
		for name, reason := range result.Failures {
			fmt.Printf("    %s: %s\n", name, reason)
		}
	}
	return nil
}
