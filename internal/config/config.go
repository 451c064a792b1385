package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds the full application configuration.
type Config struct {
	Provider string       `yaml:"provider" mapstructure:"provider"`
	VWorld   VWorldConfig `yaml:"vworld" mapstructure:"vworld"`
	Naver    NaverConfig  `yaml:"naver" mapstructure:"naver"`
	Cache    CacheConfig  `yaml:"cache" mapstructure:"cache"`
	Map      MapConfig    `yaml:"map" mapstructure:"map"`
	Log      LogConfig    `yaml:"log" mapstructure:"log"`
}

// VWorldConfig holds the VWorld API key.
type VWorldConfig struct {
	Key string `yaml:"key" mapstructure:"key"`
}

// NaverConfig holds Naver Cloud Platform API gateway credentials.
type NaverConfig struct {
	ClientID     string `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret string `yaml:"client_secret" mapstructure:"client_secret"`
}

// CacheConfig configures the on-disk geocode cache.
type CacheConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// MapConfig configures the rendered map canvas.
type MapConfig struct {
	Width    int     `yaml:"width" mapstructure:"width"`
	Height   int     `yaml:"height" mapstructure:"height"`
	Padding  float64 `yaml:"padding" mapstructure:"padding"`
	FontPath string  `yaml:"font_path" mapstructure:"font_path"`
	FontSize float64 `yaml:"font_size" mapstructure:"font_size"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config file and environment.
func Load() (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PLACEMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Credential keys get empty defaults so AutomaticEnv sees
	// them during Unmarshal.
	v.SetDefault("provider", "vworld")
	v.SetDefault("vworld.key", "")
	v.SetDefault("naver.client_id", "")
	v.SetDefault("naver.client_secret", "")
	v.SetDefault("map.font_path", "")
	v.SetDefault("cache.path", "placemap.db")
	v.SetDefault("map.width", 1600)
	v.SetDefault("map.height", 1200)
	v.SetDefault("map.padding", 0.25)
	v.SetDefault("map.font_size", 13)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Save writes the configuration to a YAML file, used to persist credentials
// entered on the command line.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return eris.Wrap(err, "config: marshal")
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return eris.Wrap(err, "config: write file")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
