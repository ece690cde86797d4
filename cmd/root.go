package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-ranker/internal/config"
	"github.com/kozaktomas/photo-ranker/internal/detect"
)

var rootCmd = &cobra.Command{
	Use:   "photo-ranker",
	Short: "A CLI tool for matching people across photo albums and ranking their best shots",
	Long: `Photo Ranker indexes the faces in your photo directories, groups them
into unique people, links people across albums, and ranks each person's
photos by quality (smile, facing the camera, sharpness).

Face detection, identity embeddings and emotion scores come from an
external embedding server (EMBEDDING_URL).`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// loadConfig builds the runtime configuration and the embedding server client.
func loadConfig() (*config.Config, *detect.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	client := detect.NewClient(cfg.Provider.URL, time.Duration(cfg.Provider.TimeoutSec)*time.Second)
	return cfg, client, nil
}
