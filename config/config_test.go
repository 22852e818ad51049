package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Auth.Username != "admin" || cfg.Auth.Password != "changeme" {
		t.Errorf("default credentials = %q/%q", cfg.Auth.Username, cfg.Auth.Password)
	}
	if !cfg.UsesDefaultPassword() {
		t.Error("UsesDefaultPassword() = false with default config")
	}
	if cfg.Uploads.MaxSize != 10*1024*1024 {
		t.Errorf("MaxSize = %d", cfg.Uploads.MaxSize)
	}
	if cfg.Uploads.ThumbnailWidth != 400 || cfg.Uploads.ThumbnailHeight != 400 {
		t.Errorf("thumbnail = %dx%d", cfg.Uploads.ThumbnailWidth, cfg.Uploads.ThumbnailHeight)
	}
	if len(cfg.Uploads.AllowedImageTypes) != 4 {
		t.Errorf("AllowedImageTypes = %v", cfg.Uploads.AllowedImageTypes)
	}
	if cfg.Uploads.FetchTimeout != 30*time.Second {
		t.Errorf("FetchTimeout = %v", cfg.Uploads.FetchTimeout)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	content := []byte(`
database:
  path: /tmp/inv.db
auth:
  username: alice
  password: from-file
uploads:
  max_size: 2048
  thumbnail_width: 120
`)
	if err := os.WriteFile(cfgPath, content, 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("AUTH_PASSWORD", "from-env")
	t.Setenv("INVENTORY_SERVER_PORT", "8088")

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "/tmp/inv.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Auth.Username != "alice" {
		t.Errorf("Username = %q", cfg.Auth.Username)
	}
	if cfg.Auth.Password != "from-env" {
		t.Errorf("Password = %q, want env override", cfg.Auth.Password)
	}
	if cfg.Server.Port != "8088" {
		t.Errorf("Port = %q", cfg.Server.Port)
	}
	if cfg.Uploads.MaxSize != 2048 || cfg.Uploads.ThumbnailWidth != 120 {
		t.Errorf("uploads = %+v", cfg.Uploads)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Uploads.MaxSize = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero max size")
	}
	cfg.Uploads.MaxSize = 1
	cfg.Auth.Password = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty password")
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	var cfg Configuration
	cfg.Uploads.ImagesDir = filepath.Join(dir, "a", "images")
	cfg.Uploads.ThumbnailsDir = filepath.Join(dir, "a", "thumbs")
	cfg.Uploads.DatasheetsDir = filepath.Join(dir, "b")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	for _, d := range []string{cfg.Uploads.ImagesDir, cfg.Uploads.ThumbnailsDir, cfg.Uploads.DatasheetsDir} {
		if st, err := os.Stat(d); err != nil || !st.IsDir() {
			t.Errorf("%s not created: %v", d, err)
		}
	}
}
