package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-ranker/internal/identity"
	"github.com/kozaktomas/photo-ranker/internal/metadata"
)

var peopleCmd = &cobra.Command{
	Use:   "people <dir>",
	Short: "List the unique people found in a synced photo directory",
	Long: `List the unique people found in a synced photo directory.

Faces from the metadata cache are grouped into unique-person clusters.
Run 'photo-ranker sync <dir>' first to build the cache.

Examples:
  photo-ranker people ./vacation-2025
  photo-ranker people ./vacation-2025 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runPeople,
}

func init() {
	rootCmd.AddCommand(peopleCmd)

	peopleCmd.Flags().Bool("json", false, "Output as JSON")
}

// PersonSummary represents one person cluster in CLI output
type PersonSummary struct {
	Index          int    `json:"index"`
	Faces          int    `json:"faces"`
	Photos         int    `json:"photos"`
	Representative string `json:"representative"`
}

func runPeople(cmd *cobra.Command, args []string) error {
	dir := args[0]
	jsonOutput := mustGetBool(cmd, "json")

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	album := metadata.Load(dir)
	if len(album.Images) == 0 {
		return fmt.Errorf("no metadata cache in %s, run 'photo-ranker sync %s' first", dir, dir)
	}

	clusters := identity.Cluster(album, cfg.Scoring.ClusterThreshold)
	summaries := make([]PersonSummary, 0, len(clusters))
	for _, cluster := range clusters {
		photos := make(map[string]struct{}, len(cluster.Members))
		for _, ref := range cluster.Members {
			photos[ref.Filename] = struct{}{}
		}
		summaries = append(summaries, PersonSummary{
			Index:          cluster.Index,
			Faces:          len(cluster.Members),
			Photos:         len(photos),
			Representative: cluster.Representative.Filename,
		})
	}

	if jsonOutput {
		return outputJSON(map[string]any{"people": summaries})
	}

	if len(summaries) == 0 {
		fmt.Println("No people found.")
		return nil
	}
	fmt.Printf("Found %d unique people:\n\n", len(summaries))
	for _, p := range summaries {
		fmt.Printf("  person_%d: %d faces in %d photos (e.g. %s)\n", p.Index, p.Faces, p.Photos, p.Representative)
	}
	return nil
}
