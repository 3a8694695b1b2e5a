package internal

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/yuhex/internal/adapter"
	"github.com/starford/yuhex/internal/syncer"
)

// Log formats.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// Config represents the application configuration.
type Config struct {
	App              ApplicationConfig `yaml:"app"`
	Yuque            YuqueConfig       `yaml:"yuque"`
	PostPath         string            `yaml:"post_path"`
	CachePath        string            `yaml:"cache_path"`
	LastGeneratePath string            `yaml:"last_generate_path"`
	MdNameFormat     string            `yaml:"md_name_format"`
	Adapter          string            `yaml:"adapter"`
	Concurrency      int               `yaml:"concurrency"`
	OnlyPublished    bool              `yaml:"only_published"`
	Image            ImageConfig       `yaml:"image"`
	Index            IndexConfig       `yaml:"index"`
	Export           ExportConfig      `yaml:"export"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Yuque.Validate(); err != nil {
		return fmt.Errorf("yuque: %w", err)
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.PostPath, validation.Required),
		validation.Field(&c.CachePath, validation.Required),
		validation.Field(&c.MdNameFormat, validation.Required,
			validation.In(syncer.NameByTitle, syncer.NameBySlug, syncer.NameByTimestamp)),
		validation.Field(&c.Adapter, validation.Required, validation.In(adapter.NameHexo, adapter.NameMarkdown)),
		validation.Field(&c.Concurrency, validation.Min(0)),
	); err != nil {
		return err
	}
	return c.Image.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	LogFormat string     `yaml:"log_format"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(LogFormatJSON, LogFormatText)),
	)
}

// YuqueConfig holds the knowledge base coordinates and API access.
type YuqueConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Token     string        `yaml:"token"`
	Login     string        `yaml:"login"`
	Repo      string        `yaml:"repo"`
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit float64       `yaml:"rate_limit"`
}

// Validate validates the Yuque configuration.
func (c *YuqueConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required),
		validation.Field(&c.Token, validation.Required),
		validation.Field(&c.Login, validation.Required),
		validation.Field(&c.Repo, validation.Required),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&c.RateLimit, validation.Min(0.0)),
	)
}

// ImageConfig controls image handling.
type ImageConfig struct {
	Save       bool      `yaml:"save"`
	Local      bool      `yaml:"local"`
	Path       string    `yaml:"path"`
	LinkPrefix string    `yaml:"link_prefix"`
	CDN        CDNConfig `yaml:"cdn"`
}

// Validate validates the image configuration.
func (c *ImageConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.When(c.Save && c.Local, validation.Required)),
	); err != nil {
		return err
	}
	return c.CDN.Validate()
}

// LocalizeEnabled reports whether remote images are downloaded.
func (c *ImageConfig) LocalizeEnabled() bool {
	return c.Save && c.Local
}

// CDNConfig is accepted for compatibility; uploads are not implemented.
type CDNConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Concurrency int    `yaml:"concurrency"`
	ImageBed    string `yaml:"image_bed"`
	Host        string `yaml:"host"`
	Bucket      string `yaml:"bucket"`
	Region      string `yaml:"region"`
	PrefixKey   string `yaml:"prefix_key"`
}

// Validate validates the CDN configuration.
func (c *CDNConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Concurrency, validation.Min(0)),
	)
}

// IndexConfig holds the optional SQLite manifest location.
type IndexConfig struct {
	Path string `yaml:"path"`
}

// ExportConfig controls the TOC spreadsheet export.
type ExportConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatJSON,
		},
		Yuque: YuqueConfig{
			BaseURL: "https://www.yuque.com/api/v2/",
			Token:   os.Getenv("YUQUE_TOKEN"),
			Timeout: 10 * time.Second,
		},
		PostPath:     "source/_posts/yuque",
		CachePath:    "yuque.json",
		MdNameFormat: syncer.NameByTitle,
		Adapter:      adapter.NameHexo,
		Concurrency:  5,
		Image: ImageConfig{
			Path:       "source/images",
			LinkPrefix: "./images",
			CDN: CDNConfig{
				ImageBed: "qiniu",
			},
		},
	}
}
