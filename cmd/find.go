package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-ranker/internal/constants"
	"github.com/kozaktomas/photo-ranker/internal/identity"
	"github.com/kozaktomas/photo-ranker/internal/metadata"
	"github.com/kozaktomas/photo-ranker/internal/quality"
)

var findCmd = &cobra.Command{
	Use:   "find <dir>",
	Short: "Find who is in a query photo",
	Long: `Find who is in a query photo.

The most prominent face in the query photo is matched against the people
found in the synced directory and the global person registry. A confident
match is reported directly; otherwise the closest candidates are listed.

Examples:
  photo-ranker find ./vacation-2025 --photo ./query.jpg
  photo-ranker find ./vacation-2025 --photo ./query.jpg --top 5 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runFind,
}

func init() {
	rootCmd.AddCommand(findCmd)

	findCmd.Flags().String("photo", "", "Path to the query photo (required)")
	findCmd.Flags().Int("top", constants.DefaultFindTopK, "Number of candidates when there is no confident match")
	findCmd.Flags().Bool("json", false, "Output as JSON")
	findCmd.MarkFlagRequired("photo")
}

func runFind(cmd *cobra.Command, args []string) error {
	dir := args[0]
	photoPath := mustGetString(cmd, "photo")
	topK := mustGetInt(cmd, "top")
	jsonOutput := mustGetBool(cmd, "json")

	ctx := context.Background()
	cfg, client, err := loadConfig()
	if err != nil {
		return err
	}

	album := metadata.Load(dir)
	if len(album.Images) == 0 {
		return fmt.Errorf("no metadata cache in %s, run 'photo-ranker sync %s' first", dir, dir)
	}

	if err := client.Ping(ctx); err != nil {
		return fmt.Errorf("embedding server not available: %w", err)
	}

	imageData, err := os.ReadFile(photoPath)
	if err != nil {
		return fmt.Errorf("reading query photo: %w", err)
	}
	extractor := quality.NewExtractor(client, client, cfg.Scoring)
	entry, err := extractor.Extract(ctx, imageData)
	if err != nil {
		return fmt.Errorf("extracting query photo: %w", err)
	}
	query := metadata.LargestFaceEmbedding(entry.Faces)
	if query == nil {
		return errors.New("no usable face found in the query photo")
	}

	// Candidates: the directory's people plus the global registry.
	dirLabel := filepath.Base(filepath.Clean(dir))
	clusters := identity.Cluster(album, cfg.Scoring.ClusterThreshold)
	candidates := make([]identity.Candidate, 0, len(clusters))
	for _, cluster := range clusters {
		rep := album.Face(cluster.Representative.Filename, cluster.Representative.FaceIndex)
		if rep == nil || len(rep.Embedding) == 0 {
			continue
		}
		candidates = append(candidates, identity.Candidate{
			Ref:       identity.ClusterRef(dirLabel, cluster.Index),
			Embedding: rep.Embedding,
		})
	}

	registry := identity.NewRegistry(filepath.Join(cfg.Data.Dir, constants.RegistryFileName))
	matcher := identity.NewMatcher(registry)
	result := matcher.Find(query, candidates, cfg.Scoring.FindThreshold, topK)

	if jsonOutput {
		return outputJSON(result)
	}

	if result.Matched {
		fmt.Printf("Match: %s (similarity %.3f)\n", describeMatch(*result.Best), result.Best.Similarity)
		return nil
	}
	if len(result.Candidates) == 0 {
		fmt.Println("No candidates found.")
		return nil
	}
	fmt.Println("No confident match. Closest candidates:")
	for i, match := range result.Candidates {
		fmt.Printf("  %d. %s (similarity %.3f)\n", i+1, describeMatch(match), match.Similarity)
	}
	return nil
}

// describeMatch renders one match for human output.
func describeMatch(match identity.Match) string {
	if match.Name != "" {
		return fmt.Sprintf("%s (%s)", match.Name, match.Ref)
	}
	return match.Ref.String()
}
