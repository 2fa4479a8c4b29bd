package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/eric/internal/monday"
	"github.com/mesh-intelligence/eric/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "ERIC"
)

// Defaults for keys absent from config.yaml and the environment.
var configDefaults = map[string]any{
	"cache_backend":     types.CacheBackendSQLite,
	"redis_url":         "",
	"data_dir":          "",
	"monday_api_url":    monday.DefaultEndpoint,
	"monday_token":      "",
	"alert_webhook_url": "",
	"listen_addr":       ":8080",
	"workers":           4,
	"log_level":         "info",
	"log_format":        "text",
	"backup_bucket":     "",
	"backup_region":     "",
	"backup_endpoint":   "",
	"backup_access_key": "",
	"backup_secret_key": "",
}

// loadConfig reads config.yaml from configDir using Viper. A missing file is
// not an error; defaults apply. ERIC_* environment variables take precedence
// over the file.
func loadConfig(configDir string) (*viper.Viper, error) {
	v := viper.New()
	for k, d := range configDefaults {
		v.SetDefault(k, d)
	}
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// decodeConfig converts the merged settings into a types.Config.
func decodeConfig(v *viper.Viper) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}
