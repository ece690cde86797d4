package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed scoring.yaml
var scoringYAML []byte

// Config holds the runtime configuration for the engine and its surfaces.
type Config struct {
	Provider ProviderConfig
	Data     DataConfig
	Scoring  Scoring
}

// ProviderConfig configures the external detection/embedding and emotion service.
type ProviderConfig struct {
	URL        string // defaults to http://localhost:8000
	TimeoutSec int    // per-request timeout, defaults to 120
}

// DataConfig configures where albums, crops and the global registry live.
type DataConfig struct {
	Dir string // defaults to ./user-data
}

// Scoring holds the tunable thresholds and weights for matching and ranking.
// Values come from the embedded scoring.yaml, optionally overridden by the
// file named in SCORING_CONFIG.
type Scoring struct {
	ClusterThreshold        float64 `yaml:"cluster_threshold"`
	LinkThreshold           float64 `yaml:"link_threshold"`
	FindThreshold           float64 `yaml:"find_threshold"`
	MinFaceSizePx           int     `yaml:"min_face_size_px"`
	MinFacesForGroup        int     `yaml:"min_faces_for_group"`
	FacingGoodThreshold     float64 `yaml:"facing_good_threshold"`
	ConfidenceGoodThreshold float64 `yaml:"confidence_good_threshold"`
	NeutralFacingScore      float64 `yaml:"neutral_facing_score"`
	BlurDivisor             float64 `yaml:"blur_divisor"`
	Weights                 Weights `yaml:"weights"`
}

// Weights are the scoring weights for single and group photos.
type Weights struct {
	SingleSmile     float64 `yaml:"single_smile"`
	SingleFacing    float64 `yaml:"single_facing"`
	SingleSharpness float64 `yaml:"single_sharpness"`
	GroupQuality    float64 `yaml:"group_quality"`
	GroupSharpness  float64 `yaml:"group_sharpness"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envString reads an environment variable with a default.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// DefaultScoring returns the scoring configuration from the embedded defaults.
func DefaultScoring() Scoring {
	var s Scoring
	if err := yaml.Unmarshal(scoringYAML, &s); err != nil {
		// The file is embedded, so this can only be a build-time mistake.
		panic("failed to unmarshal embedded scoring.yaml: " + err.Error())
	}
	return s
}

// LoadScoring returns the embedded defaults, overridden by the YAML file at
// path when path is non-empty. Fields missing from the override keep their
// default values.
func LoadScoring(path string) (Scoring, error) {
	s := DefaultScoring()
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("reading scoring config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parsing scoring config %s: %w", path, err)
	}
	return s, nil
}

// Load builds the configuration from environment variables.
func Load() (*Config, error) {
	scoring, err := LoadScoring(os.Getenv("SCORING_CONFIG"))
	if err != nil {
		return nil, err
	}

	return &Config{
		Provider: ProviderConfig{
			URL:        envString("EMBEDDING_URL", "http://localhost:8000"),
			TimeoutSec: envInt("EMBEDDING_TIMEOUT_SEC", 120),
		},
		Data: DataConfig{
			Dir: envString("DATA_DIR", "user-data"),
		},
		Scoring: scoring,
	}, nil
}
