package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/eric/internal/paths"
	"github.com/mesh-intelligence/eric/pkg/types"
)

func newInitCmd(a *app) *cobra.Command {
	var backend, redisURL string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration and the cache backend",
		Long: "Write config.yaml if it does not exist, create the data directory and\n" +
			"check that the cache backend can be opened.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.config
			if backend != "" {
				cfg.CacheBackend = backend
			}
			if redisURL != "" {
				cfg.RedisURL = redisURL
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			if err := os.MkdirAll(a.configDir, 0o755); err != nil {
				return sysErr("create config directory: %w", err)
			}
			written, err := writeConfigIfMissing(paths.ConfigFile(a.configDir), cfg, a.flags.dataDir != "")
			if err != nil {
				return sysErr("write config: %w", err)
			}
			if err := os.MkdirAll(paths.DumpDir(a.dataDir), 0o755); err != nil {
				return sysErr("create data directory: %w", err)
			}

			cache, err := openCache(cfg)
			if err != nil {
				return err
			}
			defer cache.Close()
			if err := cache.ping(cmd.Context()); err != nil {
				return sysErr("cache backend unreachable: %w", err)
			}

			out := cmd.OutOrStdout()
			if written {
				fmt.Fprintf(out, "Wrote %s\n", paths.ConfigFile(a.configDir))
			}
			fmt.Fprintf(out, "Cache backend %s ready (data dir %s)\n", cfg.CacheBackend, a.dataDir)
			return nil
		},
	}
	cmd.Flags().StringVar(&backend, "backend", "", "cache backend to configure (redis, sqlite, memory)")
	cmd.Flags().StringVar(&redisURL, "redis-url", "", "Redis URL for the redis backend")
	return cmd
}

// writeConfigIfMissing creates config.yaml from cfg if the file does not
// exist. It reports whether it wrote the file. data_dir is recorded only
// when it was chosen explicitly.
func writeConfigIfMissing(path string, cfg types.Config, keepDataDir bool) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if !keepDataDir {
		cfg.DataDir = ""
	}
	// Secrets stay in the environment.
	cfg.MondayToken = ""
	cfg.BackupAccessKey = ""
	cfg.BackupSecretKey = ""

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return false, err
	}
	return true, nil
}
