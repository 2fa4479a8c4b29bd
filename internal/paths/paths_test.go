package paths

import (
	"errors"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubHome points the platform lookups at home for the duration of t.
func stubHome(t *testing.T, home string) {
	t.Helper()
	saved := platformDir
	t.Cleanup(func() { platformDir = saved })
	platformDir.homeDir = func() (string, error) { return home, nil }
	platformDir.userConfigDir = func() (string, error) {
		return filepath.Join(home, "Library", "Application Support"), nil
	}
}

func TestDefaultDirsOnLinux(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG layout applies to linux only")
	}
	stubHome(t, "/home/ops")

	tests := []struct {
		name       string
		xdgConfig  string
		xdgData    string
		wantConfig string
		wantData   string
	}{
		{"home fallbacks", "", "", "/home/ops/.config/eric", "/home/ops/.local/share/eric"},
		{"xdg overrides", "/xdg/cfg", "/xdg/data", "/xdg/cfg/eric", "/xdg/data/eric"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("XDG_CONFIG_HOME", tt.xdgConfig)
			t.Setenv("XDG_DATA_HOME", tt.xdgData)
			cfg, err := DefaultConfigDir()
			require.NoError(t, err)
			assert.Equal(t, tt.wantConfig, cfg)
			data, err := DefaultDataDir()
			require.NoError(t, err)
			assert.Equal(t, tt.wantData, data)
		})
	}
}

func TestDefaultDirsOnDarwin(t *testing.T) {
	if runtime.GOOS != "darwin" {
		t.Skip("darwin layout")
	}
	stubHome(t, "/Users/ops")
	want := "/Users/ops/Library/Application Support/eric"

	cfg, err := DefaultConfigDir()
	require.NoError(t, err)
	assert.Equal(t, want, cfg)
	data, err := DefaultDataDir()
	require.NoError(t, err)
	assert.Equal(t, want, data, "config and data share a directory")
}

func TestDefaultDirHomeLookupFails(t *testing.T) {
	saved := platformDir
	t.Cleanup(func() { platformDir = saved })
	errNoHome := errors.New("no home")
	platformDir.homeDir = func() (string, error) { return "", errNoHome }
	platformDir.userConfigDir = func() (string, error) { return "", errNoHome }
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv(EnvConfigDir, "")
	t.Setenv(EnvDataDir, "")

	_, err := ResolveConfigDir("")
	assert.ErrorIs(t, err, errNoHome)
	_, err = ResolveDataDir("", "")
	assert.ErrorIs(t, err, errNoHome)

	got, err := ResolveDataDir("", "/srv/eric")
	require.NoError(t, err, "an explicit data_dir never consults the platform")
	assert.Equal(t, "/srv/eric", got)
}

func TestResolveEricDirs(t *testing.T) {
	stubHome(t, "/home/ops")
	t.Setenv("XDG_CONFIG_HOME", "/xdg/cfg")
	t.Setenv("XDG_DATA_HOME", "/xdg/data")
	defaultConfig, err := DefaultConfigDir()
	require.NoError(t, err)
	defaultData, err := DefaultDataDir()
	require.NoError(t, err)
	cwd, err := filepath.Abs(".")
	require.NoError(t, err)

	tests := []struct {
		name        string
		configFlag  string
		dataFlag    string
		dataDirYAML string
		envConfig   string
		envData     string
		wantConfig  string
		wantData    string
	}{
		{
			name:       "platform defaults",
			wantConfig: defaultConfig,
			wantData:   defaultData,
		},
		{
			name:       "ERIC_* env overrides defaults",
			envConfig:  "/etc/eric",
			envData:    "/var/lib/eric",
			wantConfig: "/etc/eric",
			wantData:   "/var/lib/eric",
		},
		{
			name:        "data_dir in config.yaml beats ERIC_DATA_DIR",
			dataDirYAML: "/srv/eric",
			envData:     "/var/lib/eric",
			wantConfig:  defaultConfig,
			wantData:    "/srv/eric",
		},
		{
			name:        "flags beat config and env",
			configFlag:  "/opt/cfg",
			dataFlag:    "/opt/data",
			dataDirYAML: "/srv/eric",
			envConfig:   "/etc/eric",
			envData:     "/var/lib/eric",
			wantConfig:  "/opt/cfg",
			wantData:    "/opt/data",
		},
		{
			name:        "relative overrides resolve against the working directory",
			dataDirYAML: "cache",
			envConfig:   "conf",
			wantConfig:  filepath.Join(cwd, "conf"),
			wantData:    filepath.Join(cwd, "cache"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvConfigDir, tt.envConfig)
			t.Setenv(EnvDataDir, tt.envData)

			cfg, err := ResolveConfigDir(tt.configFlag)
			require.NoError(t, err)
			assert.Equal(t, tt.wantConfig, cfg)
			assert.Equal(t, filepath.Join(tt.wantConfig, "config.yaml"), ConfigFile(cfg))

			data, err := ResolveDataDir(tt.dataFlag, tt.dataDirYAML)
			require.NoError(t, err)
			assert.Equal(t, tt.wantData, data)
			assert.Equal(t, filepath.Join(tt.wantData, "dumps"), DumpDir(data))
		})
	}
}
