package commands

import (
	"errors"

	"github.com/spf13/viper"
)

type Config struct {
	StorePath  string          `mapstructure:"store_path"`
	OpLogPath  string          `mapstructure:"oplog_path"`
	Provider   string          `mapstructure:"provider"`
	Workers    int             `mapstructure:"workers"`
	Output     string          `mapstructure:"output"`
	Format     string          `mapstructure:"format"`
	TopK       int             `mapstructure:"top_k"`
	Similarity string          `mapstructure:"similarity"`
	Normalize  bool            `mapstructure:"normalize_vectors"`
	Model      ModelConfig     `mapstructure:"model"`
	Embedding  EmbeddingConfig `mapstructure:"embedding"`
	Cache      CacheConfig     `mapstructure:"cache"`
}

type ModelConfig struct {
	Name         string  `mapstructure:"name"`
	Temperature  float64 `mapstructure:"temperature"`
	MaxTokens    int     `mapstructure:"max_tokens"`
	MockResponse string  `mapstructure:"mock_response"`
}

type EmbeddingConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
}

type CacheConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Dir      string `mapstructure:"dir"`
	TTLHours int    `mapstructure:"ttl_hours"`
}

func LoadConfig(path string) (Config, error) {
	cfg := Config{}
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(".rageval")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return cfg, nil
		}
		return cfg, err
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
