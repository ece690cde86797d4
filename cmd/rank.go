package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-ranker/internal/constants"
	"github.com/kozaktomas/photo-ranker/internal/identity"
	"github.com/kozaktomas/photo-ranker/internal/metadata"
	"github.com/kozaktomas/photo-ranker/internal/quality"
	"github.com/kozaktomas/photo-ranker/internal/ranking"
)

var rankCmd = &cobra.Command{
	Use:   "rank <dir>",
	Short: "Rank a person's photos in a directory by quality",
	Long: `Rank a person's photos in a directory by quality.

Quality combines smile, facing-the-camera and sharpness for single-subject
photos; group photos score by the fraction of good faces plus sharpness.
Person indices come from 'photo-ranker people <dir>'.

Examples:
  # Best 10 photos of person 0
  photo-ranker rank ./vacation-2025 --person 0 --top 10

  # Re-extract quality signals instead of using the cache
  photo-ranker rank ./vacation-2025 --person 0 --no-cache`,
	Args: cobra.ExactArgs(1),
	RunE: runRank,
}

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().Int("person", 0, "Person index from 'photo-ranker people'")
	rankCmd.Flags().Int("top", constants.DefaultRankTopK, "Maximum number of photos to return")
	rankCmd.Flags().Bool("no-cache", false, "Re-extract quality signals instead of reading the cache")
	rankCmd.Flags().Bool("json", false, "Output as JSON")
}

func runRank(cmd *cobra.Command, args []string) error {
	dir := args[0]
	personIndex := mustGetInt(cmd, "person")
	topK := mustGetInt(cmd, "top")
	noCache := mustGetBool(cmd, "no-cache")
	jsonOutput := mustGetBool(cmd, "json")

	cfg, client, err := loadConfig()
	if err != nil {
		return err
	}

	album := metadata.Load(dir)
	if len(album.Images) == 0 {
		return fmt.Errorf("no metadata cache in %s, run 'photo-ranker sync %s' first", dir, dir)
	}

	clusters := identity.Cluster(album, cfg.Scoring.ClusterThreshold)
	if personIndex < 0 || personIndex >= len(clusters) {
		return fmt.Errorf("person %d not found, directory has %d people", personIndex, len(clusters))
	}
	members := clusters[personIndex].Members

	var ranked []ranking.RankedPhoto
	if noCache {
		ctx := context.Background()
		if err := client.Ping(ctx); err != nil {
			return fmt.Errorf("embedding server not available: %w", err)
		}
		extractor := quality.NewExtractor(client, client, cfg.Scoring)
		ranked, err = ranking.RankLive(ctx, dir, extractor, members, cfg.Scoring, topK)
		if err != nil {
			return err
		}
	} else {
		ranked = ranking.Rank(album, members, cfg.Scoring, topK)
	}

	if jsonOutput {
		return outputJSON(map[string]any{"photos": ranked})
	}

	fmt.Printf("Best photos of person_%d:\n\n", personIndex)
	for i, photo := range ranked {
		fmt.Printf("  %2d. %-40s %.3f\n", i+1, photo.Filename, photo.Score)
	}
	return nil
}
