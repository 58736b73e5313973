package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const appName = "term-agent"

// EnvPrefix prefixes environment overrides, e.g. TERM_AGENT_API_KEY.
const EnvPrefix = "TERM_AGENT"

type Config struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	Agent          string        `mapstructure:"agent"`
	Timeout        time.Duration `mapstructure:"timeout"`         // per turn
	RecursionLimit int           `mapstructure:"recursion_limit"` // max turns per run
	Detail         string        `mapstructure:"detail"`          // response detail level
	Runs           RunsConfig    `mapstructure:"runs"`
	Debug          DebugConfig   `mapstructure:"debug"`
	Tools          ToolsConfig   `mapstructure:"tools"`
}

// RunsConfig configures the local run history
type RunsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"` // sqlite file; empty means <data dir>/runs.db
}

// DebugConfig configures JSONL run transcripts
type DebugConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"` // empty means <data dir>/debug
}

// ToolsConfig selects and scopes the built-in tools
type ToolsConfig struct {
	Enabled  []string `mapstructure:"enabled"`   // glob patterns over tool names
	ReadDirs []string `mapstructure:"read_dirs"` // roots read_file and glob_files may access
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("base_url", "")
	v.SetDefault("api_key", "")
	v.SetDefault("agent", "")
	v.SetDefault("timeout", "5m")
	v.SetDefault("recursion_limit", 10)
	v.SetDefault("detail", "full")
	v.SetDefault("runs.enabled", true)
	v.SetDefault("runs.path", "")
	v.SetDefault("debug.enabled", false)
	v.SetDefault("debug.dir", "")
	v.SetDefault("tools.enabled", []string{"*"})
	v.SetDefault("tools.read_dirs", []string{"."})
}

// Load reads the config file from the XDG config directory, falling back to
// ./config.yaml. A missing file is not an error.
func Load() (*Config, error) {
	configPath, err := GetConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	return load(v)
}

// LoadFile reads config from an explicit path, which must exist.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional - won't error if missing)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.resolve()
	return &cfg, nil
}

// resolve expands env references and fills derived paths.
func (c *Config) resolve() {
	c.BaseURL = strings.TrimSuffix(expandEnv(c.BaseURL), "/")
	c.APIKey = expandEnv(c.APIKey)
	c.Agent = expandEnv(c.Agent)
	if c.Runs.Path == "" {
		c.Runs.Path = filepath.Join(GetDataDir(), "runs.db")
	} else {
		c.Runs.Path = expandHome(c.Runs.Path)
	}
	if c.Debug.Dir == "" {
		c.Debug.Dir = filepath.Join(GetDataDir(), "debug")
	} else {
		c.Debug.Dir = expandHome(c.Debug.Dir)
	}
}

// ApplyOverrides applies CLI flag overrides. Empty values leave the config as is.
func (c *Config) ApplyOverrides(agentName, baseURL string) {
	if agentName != "" {
		c.Agent = agentName
	}
	if baseURL != "" {
		c.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// Validate reports the settings a run cannot proceed without.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is not set (config file or %s_BASE_URL)", EnvPrefix)
	}
	if c.Agent == "" {
		return fmt.Errorf("no agent selected (use --agent or set agent in config)")
	}
	if c.RecursionLimit < 1 {
		return fmt.Errorf("recursion_limit must be at least 1, got %d", c.RecursionLimit)
	}
	return nil
}

// expandEnv expands ${VAR} or $VAR in a string
func expandEnv(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		varName := s[2 : len(s)-1]
		return os.Getenv(varName)
	}
	if strings.HasPrefix(s, "$") {
		return os.Getenv(s[1:])
	}
	return s
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// GetConfigDir returns the XDG config directory for term-agent.
// Uses $XDG_CONFIG_HOME if set, otherwise ~/.config
func GetConfigDir() (string, error) {
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		return filepath.Join(xdgHome, appName), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", appName), nil
}

// GetConfigPath returns the path where the config file should be located
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

// GetDataDir returns the XDG data directory for term-agent.
// Uses $XDG_DATA_HOME if set, otherwise ~/.local/share
func GetDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, appName)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", appName)
	}
	return filepath.Join(homeDir, ".local", "share", appName)
}

// Exists returns true if a config file exists
func Exists() bool {
	path, err := GetConfigPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// fileView is the YAML shape of Config written by Save and printed by "config show".
type fileView struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key,omitempty"`
	Agent          string `yaml:"agent"`
	Timeout        string `yaml:"timeout"`
	RecursionLimit int    `yaml:"recursion_limit"`
	Detail         string `yaml:"detail"`
	Runs           runsV  `yaml:"runs"`
	Debug          debugV `yaml:"debug"`
	Tools          toolsV `yaml:"tools"`
}

type runsV struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

type debugV struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir,omitempty"`
}

type toolsV struct {
	Enabled  []string `yaml:"enabled"`
	ReadDirs []string `yaml:"read_dirs"`
}

func (c *Config) view() fileView {
	return fileView{
		BaseURL:        c.BaseURL,
		APIKey:         c.APIKey,
		Agent:          c.Agent,
		Timeout:        c.Timeout.String(),
		RecursionLimit: c.RecursionLimit,
		Detail:         c.Detail,
		Runs:           runsV{Enabled: c.Runs.Enabled, Path: c.Runs.Path},
		Debug:          debugV{Enabled: c.Debug.Enabled, Dir: c.Debug.Dir},
		Tools:          toolsV{Enabled: c.Tools.Enabled, ReadDirs: c.Tools.ReadDirs},
	}
}

// YAML renders the config. The API key is masked unless showSecrets is set.
func (c *Config) YAML(showSecrets bool) ([]byte, error) {
	v := c.view()
	if !showSecrets && v.APIKey != "" {
		v.APIKey = maskSecret(v.APIKey)
	}
	return yaml.Marshal(v)
}

func maskSecret(s string) string {
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

// Default returns the configuration used when no file or env is present.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	cfg.resolve()
	return &cfg
}

// Save writes the config to path, creating parent directories.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg.view())
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}
