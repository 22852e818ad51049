package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultUsername = "admin"
	DefaultPassword = "changeme"
)

type Configuration struct {
	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`
	Server struct {
		Port      string `mapstructure:"port"`
		StaticDir string `mapstructure:"static_dir"`
	} `mapstructure:"server"`
	Logging struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
		Path   string `mapstructure:"path"`
	} `mapstructure:"logging"`
	Auth struct {
		Username        string        `mapstructure:"username"`
		Password        string        `mapstructure:"password"`
		LoginRateLimit  int           `mapstructure:"login_rate_limit"`
		LoginRateWindow time.Duration `mapstructure:"login_rate_window"`
	} `mapstructure:"auth"`
	CORS struct {
		Origins []string `mapstructure:"origins"`
	} `mapstructure:"cors"`
	Uploads UploadConfig `mapstructure:"uploads"`
	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"metrics"`
}

// UploadConfig holds everything the upload handler needs.
type UploadConfig struct {
	ImagesDir                  string        `mapstructure:"images_dir"`
	ThumbnailsDir              string        `mapstructure:"thumbnails_dir"`
	DatasheetsDir              string        `mapstructure:"datasheets_dir"`
	MaxSize                    int64         `mapstructure:"max_size"`
	ThumbnailWidth             int           `mapstructure:"thumbnail_width"`
	ThumbnailHeight            int           `mapstructure:"thumbnail_height"`
	AllowedImageTypes          []string      `mapstructure:"allowed_image_types"`
	AllowedDatasheetTypes      []string      `mapstructure:"allowed_datasheet_types"`
	AllowedDatasheetExtensions []string      `mapstructure:"allowed_datasheet_extensions"`
	FetchTimeout               time.Duration `mapstructure:"fetch_timeout"`
	AllowPrivateNetworks       bool          `mapstructure:"allow_private_networks"`
}

func expandTilde(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}

// DefaultConfigDir is where the config file and default data live when no
// explicit paths are configured.
func DefaultConfigDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, "inventory")
}

func setDefaults(v *viper.Viper) {
	dataDir := "data"
	v.SetDefault("database.path", filepath.Join(dataDir, "inventory.db"))
	v.SetDefault("server.port", "9000")
	v.SetDefault("server.static_dir", "")
	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.path", "")
	v.SetDefault("auth.username", DefaultUsername)
	v.SetDefault("auth.password", DefaultPassword)
	v.SetDefault("auth.login_rate_limit", 10)
	v.SetDefault("auth.login_rate_window", time.Minute)
	v.SetDefault("cors.origins", []string{"http://localhost:4200"})
	v.SetDefault("uploads.images_dir", filepath.Join("uploads", "images"))
	v.SetDefault("uploads.thumbnails_dir", filepath.Join("uploads", "thumbnails"))
	v.SetDefault("uploads.datasheets_dir", filepath.Join("uploads", "datasheets"))
	v.SetDefault("uploads.max_size", 10*1024*1024)
	v.SetDefault("uploads.thumbnail_width", 400)
	v.SetDefault("uploads.thumbnail_height", 400)
	v.SetDefault("uploads.allowed_image_types", []string{"image/jpeg", "image/png", "image/gif", "image/webp"})
	v.SetDefault("uploads.allowed_datasheet_types", []string{
		"application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	})
	v.SetDefault("uploads.allowed_datasheet_extensions", []string{"pdf", "doc", "docx"})
	v.SetDefault("uploads.fetch_timeout", 30*time.Second)
	v.SetDefault("uploads.allow_private_networks", false)
	v.SetDefault("metrics.enabled", false)
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment. An explicitly named config file that does not exist is an error.
func Load(cfgFile string) (*Configuration, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		expanded, err := expandTilde(cfgFile)
		if err != nil {
			return nil, err
		}
		v.SetConfigFile(expanded)
		v.SetConfigType("yaml")
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath(DefaultConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("INVENTORY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Legacy variable names of the Docker image.
	_ = v.BindEnv("auth.username", "INVENTORY_AUTH_USERNAME", "AUTH_USERNAME")
	_ = v.BindEnv("auth.password", "INVENTORY_AUTH_PASSWORD", "AUTH_PASSWORD")
	_ = v.BindEnv("cors.origins", "INVENTORY_CORS_ORIGINS", "CORS_ORIGIN")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	cfg.Auth.Username = strings.TrimSpace(cfg.Auth.Username)

	for _, p := range []*string{
		&cfg.Database.Path,
		&cfg.Logging.Path,
		&cfg.Server.StaticDir,
		&cfg.Uploads.ImagesDir,
		&cfg.Uploads.ThumbnailsDir,
		&cfg.Uploads.DatasheetsDir,
	} {
		expanded, err := expandTilde(*p)
		if err != nil {
			return nil, err
		}
		*p = expanded
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c *Configuration) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database.path must not be empty")
	}
	if c.Auth.Username == "" || c.Auth.Password == "" {
		return errors.New("auth.username and auth.password must be set")
	}
	if c.Uploads.MaxSize <= 0 {
		return fmt.Errorf("uploads.max_size must be positive, got %d", c.Uploads.MaxSize)
	}
	if c.Uploads.ThumbnailWidth <= 0 || c.Uploads.ThumbnailHeight <= 0 {
		return fmt.Errorf("thumbnail dimensions must be positive, got %dx%d", c.Uploads.ThumbnailWidth, c.Uploads.ThumbnailHeight)
	}
	return nil
}

// UsesDefaultPassword reports whether the shipped credentials are still active.
func (c *Configuration) UsesDefaultPassword() bool {
	return c.Auth.Password == DefaultPassword
}

// EnsureDirectories creates the upload directories.
func (c *Configuration) EnsureDirectories() error {
	for _, dir := range []string{c.Uploads.ImagesDir, c.Uploads.ThumbnailsDir, c.Uploads.DatasheetsDir} {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("creating upload directory %s: %w", dir, err)
		}
	}
	return nil
}
