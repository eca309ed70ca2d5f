package captureengine

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/e7canasta/capture-engine/internal/media"
)

// Config holds the engine's negotiation defaults. The zero value is not
// usable; start from DefaultConfig.
type Config struct {
	// Category is the media category sessions are initialized under.
	Category media.Category `yaml:"category"`

	// Role selects the stream the engine drives: preview or record.
	Role media.StreamRole `yaml:"role"`

	// ProfileKind selects which family of known video profiles to enumerate.
	ProfileKind media.ProfileKind `yaml:"profile"`

	// Quality is the baseline encoding quality tier.
	Quality media.Quality `yaml:"quality"`

	// WarmupTimeout bounds the synchronous warm-up frame pull after preview
	// start.
	WarmupTimeout time.Duration `yaml:"warmup_timeout"`
}

// yamlConfig is the on-disk shape; enums are spelled out.
type yamlConfig struct {
	Category      string        `yaml:"category"`
	Role          string        `yaml:"role"`
	Profile       string        `yaml:"profile"`
	WarmupTimeout time.Duration `yaml:"warmup_timeout"`
}

// DefaultConfig returns the engine defaults: a communications-category
// preview session negotiating the video-conferencing profile family.
func DefaultConfig() Config {
	return Config{
		Category:      media.CategoryCommunications,
		Role:          media.RolePreview,
		ProfileKind:   media.ProfileVideoConferencing,
		Quality:       media.QualityHD720p,
		WarmupTimeout: 5 * time.Second,
	}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("capture-engine: read config: %w", err)
	}

	var y yamlConfig
	if err := yaml.Unmarshal(raw, &y); err != nil {
		return cfg, fmt.Errorf("capture-engine: parse config: %w", err)
	}

	switch y.Category {
	case "", "communications":
		cfg.Category = media.CategoryCommunications
	case "media":
		cfg.Category = media.CategoryMedia
	default:
		return cfg, fmt.Errorf("capture-engine: invalid category %q", y.Category)
	}

	switch y.Role {
	case "", "preview":
		cfg.Role = media.RolePreview
	case "record":
		cfg.Role = media.RoleRecord
	default:
		return cfg, fmt.Errorf("capture-engine: invalid role %q", y.Role)
	}

	switch y.Profile {
	case "", "conferencing":
		cfg.ProfileKind = media.ProfileVideoConferencing
	case "recording":
		cfg.ProfileKind = media.ProfileVideoRecording
	default:
		return cfg, fmt.Errorf("capture-engine: invalid profile %q", y.Profile)
	}

	if y.WarmupTimeout > 0 {
		cfg.WarmupTimeout = y.WarmupTimeout
	}

	return cfg, cfg.Validate()
}

// Validate fails fast on a config the engine cannot run with.
func (c Config) Validate() error {
	if c.Role != media.RolePreview && c.Role != media.RoleRecord {
		return fmt.Errorf("capture-engine: invalid role %d", c.Role)
	}
	if c.WarmupTimeout <= 0 {
		return fmt.Errorf("capture-engine: warmup timeout must be positive, got %v", c.WarmupTimeout)
	}
	return nil
}
