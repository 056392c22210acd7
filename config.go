package main

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/aktagon/content-pipeline/internal/cache"
	"github.com/aktagon/content-pipeline/internal/collab"
)

const defaultConfigDir = ".content-pipeline"

const envPrefix = "CONTENT_PIPELINE"

//go:embed config/settings.yaml
var defaultSettings string

//go:embed config/writer-system-prompt.md
var defaultWriterSystemPrompt string

//go:embed config/article-prompt.md
var defaultArticlePrompt string

//go:embed config/sources.yaml
var defaultSources string

// GetConfigPath returns the full path to a config file
func GetConfigPath(filename string) string {
	return filepath.Join(defaultConfigDir, filename)
}

// ConfigOverrides holds values given on the command line. Nil fields keep the
// value from settings.yaml or the environment.
type ConfigOverrides struct {
	SettingsPath *string
	TextAPIKey   *string
	ImageAPIKey  *string
	SeedKey      *string
	Debug        bool
}

// Settings is the merged configuration: embedded defaults, settings.yaml,
// environment, then command-line overrides.
type Settings struct {
	TextAPIKey  string `mapstructure:"text_api_key"`
	ImageAPIKey string `mapstructure:"image_api_key"`
	TimeoutMS   int    `mapstructure:"timeout_ms"`
	SeedKey     string `mapstructure:"seed_key"`
	Brand       string `mapstructure:"brand"`
	SiteURL     string `mapstructure:"site_url"`
	Text        struct {
		Model       string  `mapstructure:"model"`
		MaxTokens   int     `mapstructure:"max_tokens"`
		Temperature float64 `mapstructure:"temperature"`
	} `mapstructure:"text"`
	Image struct {
		Endpoint string   `mapstructure:"endpoint"`
		Model    string   `mapstructure:"model"`
		Variants []string `mapstructure:"variants"`
	} `mapstructure:"image"`
	Trends struct {
		Endpoint string `mapstructure:"endpoint"`
	} `mapstructure:"trends"`
	Cache struct {
		Backend    string `mapstructure:"backend"`
		Dir        string `mapstructure:"dir"`
		RedisAddr  string `mapstructure:"redis_addr"`
		TTLSeconds int    `mapstructure:"ttl_seconds"`
	} `mapstructure:"cache"`
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`

	// Prompts are read from the config directory, not from settings.yaml.
	WriterSystemPrompt string `mapstructure:"-"`
	ArticlePrompt      string `mapstructure:"-"`
}

// Timeout is the per-call collaborator timeout.
func (s *Settings) Timeout() time.Duration {
	if s.TimeoutMS <= 0 {
		return collab.DefaultTimeout
	}
	return time.Duration(s.TimeoutMS) * time.Millisecond
}

// CacheSettings converts the cache section for the cache package.
func (s *Settings) CacheSettings() cache.Settings {
	return cache.Settings{
		Backend:   s.Cache.Backend,
		Dir:       s.Cache.Dir,
		RedisAddr: s.Cache.RedisAddr,
		TTL:       time.Duration(s.Cache.TTLSeconds) * time.Second,
	}
}

// LoadSettings resolves the configuration. With an explicit settings path the file
// must exist; the default path falls back to the embedded defaults.
func LoadSettings(overrides *ConfigOverrides) (*Settings, error) {
	if overrides == nil {
		overrides = &ConfigOverrides{}
	}

	loadEnvFile()

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(strings.NewReader(defaultSettings)); err != nil {
		return nil, fmt.Errorf("parsing embedded settings: %w", err)
	}

	if overrides.SettingsPath != nil {
		if err := mergeSettingsFile(v, *overrides.SettingsPath); err != nil {
			return nil, fmt.Errorf("loading settings %s: %w", *overrides.SettingsPath, err)
		}
	} else {
		err := mergeSettingsFile(v, GetConfigPath("settings.yaml"))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading settings: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("decoding settings: %w", err)
	}

	applyOverrides(&settings, overrides)
	settings.WriterSystemPrompt = readPrompt("writer-system-prompt.md", defaultWriterSystemPrompt)
	settings.ArticlePrompt = readPrompt("article-prompt.md", defaultArticlePrompt)
	return &settings, nil
}

func mergeSettingsFile(v *viper.Viper, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return v.MergeConfig(f)
}

func applyOverrides(s *Settings, o *ConfigOverrides) {
	if o.TextAPIKey != nil && *o.TextAPIKey != "" {
		s.TextAPIKey = *o.TextAPIKey
	}
	if o.ImageAPIKey != nil && *o.ImageAPIKey != "" {
		s.ImageAPIKey = *o.ImageAPIKey
	}
	if o.SeedKey != nil && *o.SeedKey != "" {
		s.SeedKey = *o.SeedKey
	}
	if o.Debug {
		s.Log.Level = "debug"
	}
}

// loadEnvFile loads .env from the working directory when present. Variables
// already set in the environment win.
func loadEnvFile() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}
}

// readPrompt returns the prompt file from the config directory, or the embedded default.
func readPrompt(filename, fallback string) string {
	if content, err := os.ReadFile(GetConfigPath(filename)); err == nil && strings.TrimSpace(string(content)) != "" {
		return string(content)
	}
	return fallback
}

// ensureConfigExists creates the config directory and writes the embedded
// defaults for files that do not exist yet.
func ensureConfigExists() error {
	if err := os.MkdirAll(defaultConfigDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	files := map[string]string{
		"settings.yaml":           defaultSettings,
		"writer-system-prompt.md": defaultWriterSystemPrompt,
		"article-prompt.md":       defaultArticlePrompt,
	}
	for name, content := range files {
		path := GetConfigPath(name)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				return fmt.Errorf("writing %s: %w", name, err)
			}
		}
	}
	return nil
}

// Sources lists what the collection stage looks at.
type Sources struct {
	Keywords []string `yaml:"keywords"`
	Feeds    []string `yaml:"feeds"`
}

// loadSources parses a sources file. When the file was not named on the command
// line a missing file yields the embedded defaults; an explicit path must exist.
func loadSources(path string, explicit bool) (*Sources, error) {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		data = []byte(defaultSources)
	default:
		return nil, fmt.Errorf("reading sources file: %w", err)
	}

	var sources Sources
	if err := yaml.Unmarshal(data, &sources); err != nil {
		return nil, fmt.Errorf("parsing sources file %s: %w", path, err)
	}
	return &sources, nil
}
