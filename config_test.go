package captureengine_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	captureengine "github.com/e7canasta/capture-engine"
	"github.com/e7canasta/capture-engine/internal/media"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := captureengine.DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.Role != media.RolePreview {
		t.Errorf("Role = %v, want preview", cfg.Role)
	}
	if cfg.Category != media.CategoryCommunications {
		t.Errorf("Category = %v, want communications", cfg.Category)
	}
	if cfg.WarmupTimeout != 5*time.Second {
		t.Errorf("WarmupTimeout = %v, want 5s", cfg.WarmupTimeout)
	}
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		want    func(t *testing.T, cfg captureengine.Config)
		wantErr string
	}{
		{
			name: "full config",
			yaml: "category: media\nrole: record\nprofile: recording\nwarmup_timeout: 2s\n",
			want: func(t *testing.T, cfg captureengine.Config) {
				if cfg.Category != media.CategoryMedia {
					t.Errorf("Category = %v, want media", cfg.Category)
				}
				if cfg.Role != media.RoleRecord {
					t.Errorf("Role = %v, want record", cfg.Role)
				}
				if cfg.ProfileKind != media.ProfileVideoRecording {
					t.Errorf("ProfileKind = %v, want recording", cfg.ProfileKind)
				}
				if cfg.WarmupTimeout != 2*time.Second {
					t.Errorf("WarmupTimeout = %v, want 2s", cfg.WarmupTimeout)
				}
			},
		},
		{
			name: "empty file keeps defaults",
			yaml: "",
			want: func(t *testing.T, cfg captureengine.Config) {
				if cfg != captureengine.DefaultConfig() {
					t.Errorf("cfg = %+v, want defaults", cfg)
				}
			},
		},
		{
			name:    "invalid category",
			yaml:    "category: gaming\n",
			wantErr: "invalid category",
		},
		{
			name:    "invalid role",
			yaml:    "role: photo\n",
			wantErr: "invalid role",
		},
		{
			name:    "invalid profile",
			yaml:    "profile: cinematic\n",
			wantErr: "invalid profile",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := captureengine.LoadConfig(writeConfig(t, tt.yaml))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("LoadConfig() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadConfig() error = %v", err)
			}
			tt.want(t, cfg)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := captureengine.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("LoadConfig() on missing file expected error")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*captureengine.Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*captureengine.Config) {}, wantErr: false},
		{
			name:    "audio role not driveable",
			mutate:  func(c *captureengine.Config) { c.Role = media.RoleAudio },
			wantErr: true,
		},
		{
			name:    "zero warmup",
			mutate:  func(c *captureengine.Config) { c.WarmupTimeout = 0 },
			wantErr: true,
		},
		{
			name:    "negative warmup",
			mutate:  func(c *captureengine.Config) { c.WarmupTimeout = -time.Second },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := captureengine.DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
