// Package config loads linksync settings from the global and local YAML
// files and from the environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/spiffcs/linksync/internal/auth"
	"github.com/spiffcs/linksync/internal/constants"
	"gopkg.in/yaml.v3"
)

// EnvPrivateKeyPath names a file holding the app private key.
const EnvPrivateKeyPath = "LINKSYNC_APP_PRIVATE_KEY_PATH"

// ErrSecretValue is returned when a secret is written to a config file.
var ErrSecretValue = errors.New("secrets cannot be stored in the config file")

// Config represents the application configuration
type Config struct {
	DefaultFormat  string        `yaml:"default_format,omitempty"`
	APIURL         string        `yaml:"api_url,omitempty"`
	FetchLimit     int           `yaml:"fetch_limit,omitempty"`
	Workers        int           `yaml:"workers,omitempty"`
	RequestTimeout time.Duration `yaml:"request_timeout,omitempty"`
	MaxRetries     int           `yaml:"max_retries,omitempty"`
	PacingInterval time.Duration `yaml:"pacing_interval,omitempty"`
	Repositories   []string      `yaml:"repositories,omitempty"`

	// App identity. The private key itself only comes from the environment
	// or from PrivateKeyPath.
	AppID             int64  `yaml:"app_id,omitempty"`
	InstallationID    int64  `yaml:"installation_id,omitempty"`
	InstallationOwner string `yaml:"installation_owner,omitempty"`
	PrivateKeyPath    string `yaml:"private_key_path,omitempty"`
}

// Env is the environment surface of linksync.
type Env struct {
	AppID             int64  `env:"LINKSYNC_APP_ID"`
	PrivateKey        string `env:"LINKSYNC_APP_PRIVATE_KEY"`
	PrivateKeyPath    string `env:"LINKSYNC_APP_PRIVATE_KEY_PATH"`
	InstallationID    int64  `env:"LINKSYNC_INSTALLATION_ID"`
	InstallationOwner string `env:"LINKSYNC_INSTALLATION_OWNER"`
	UseAmbientToken   bool   `env:"LINKSYNC_USE_AMBIENT_TOKEN"`
	GitHubActions     bool   `env:"GITHUB_ACTIONS"`
	GitHubToken       string `env:"GITHUB_TOKEN"`
	APIURL            string `env:"LINKSYNC_API_URL"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		DefaultFormat:  "table",
		APIURL:         constants.DefaultAPIURL,
		FetchLimit:     constants.DefaultFetchLimit,
		Workers:        constants.DefaultWorkers,
		RequestTimeout: constants.DefaultRequestTimeout,
		MaxRetries:     constants.DefaultMaxRetries,
		PacingInterval: constants.DefaultPacingInterval,
	}
}

// DefaultConfigDir returns the default config directory
func DefaultConfigDir() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return ".linksync"
	}
	return filepath.Join(configDir, "linksync")
}

// ConfigPath returns the path to the global config file
func ConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// LocalConfigPath returns the path to the local config file in the current directory
func LocalConfigPath() string {
	return ".linksync.yaml"
}

// Paths locates the two config files.
type Paths struct {
	Global string
	Local  string
}

// DefaultPaths returns the standard global and local locations.
func DefaultPaths() Paths {
	return Paths{Global: ConfigPath(), Local: LocalConfigPath()}
}

// Load reads the config from the default locations.
func Load() (*Config, error) {
	return LoadFrom(DefaultPaths())
}

// LoadFrom reads the global file, then merges the local file on top. Missing
// files are skipped. Unset values keep their defaults.
func LoadFrom(paths Paths) (*Config, error) {
	cfg := DefaultConfig()

	global, err := readFile(paths.Global)
	if err != nil {
		return nil, fmt.Errorf("failed to read global config file: %w", err)
	}
	local, err := readFile(paths.Local)
	if err != nil {
		return nil, fmt.Errorf("failed to read local config file: %w", err)
	}

	cfg = mergeConfig(mergeConfig(cfg, global), local)
	return cfg, nil
}

// LoadFile reads a single config file without defaults. A missing file
// yields an empty Config.
func LoadFile(path string) (*Config, error) {
	c, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if c == nil {
		c = &Config{}
	}
	return c, nil
}

func readFile(path string) (*Config, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &c, nil
}

// mergeConfig returns base with every value set in over applied on top.
func mergeConfig(base, over *Config) *Config {
	if over == nil {
		return base
	}
	out := *base
	if over.DefaultFormat != "" {
		out.DefaultFormat = over.DefaultFormat
	}
	if over.APIURL != "" {
		out.APIURL = over.APIURL
	}
	if over.FetchLimit > 0 {
		out.FetchLimit = over.FetchLimit
	}
	if over.Workers > 0 {
		out.Workers = over.Workers
	}
	if over.RequestTimeout > 0 {
		out.RequestTimeout = over.RequestTimeout
	}
	if over.MaxRetries > 0 {
		out.MaxRetries = over.MaxRetries
	}
	if over.PacingInterval > 0 {
		out.PacingInterval = over.PacingInterval
	}
	if len(over.Repositories) > 0 {
		out.Repositories = slices.Clone(over.Repositories)
	}
	if over.AppID != 0 {
		out.AppID = over.AppID
	}
	if over.InstallationID != 0 {
		out.InstallationID = over.InstallationID
	}
	if over.InstallationOwner != "" {
		out.InstallationOwner = over.InstallationOwner
	}
	if over.PrivateKeyPath != "" {
		out.PrivateKeyPath = over.PrivateKeyPath
	}
	return &out
}

// LoadEnv reads the environment. A nil lookuper reads the process
// environment.
func LoadEnv(ctx context.Context, lookuper envconfig.Lookuper) (Env, error) {
	if lookuper == nil {
		lookuper = envconfig.OsLookuper()
	}
	var env Env
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &env, Lookuper: lookuper}); err != nil {
		return Env{}, fmt.Errorf("failed to read environment: %w", err)
	}
	return env, nil
}

// ResolvedAPIURL returns the API URL, environment first.
func (c *Config) ResolvedAPIURL(env Env) string {
	if env.APIURL != "" {
		return env.APIURL
	}
	if c.APIURL != "" {
		return c.APIURL
	}
	return constants.DefaultAPIURL
}

// Credentials assembles the token provider inputs. The environment wins over
// the file. A key path that cannot be read is a credential error naming the
// path variable.
func (c *Config) Credentials(env Env) (auth.Credentials, error) {
	creds := auth.Credentials{
		AppID:             firstNonZero(env.AppID, c.AppID),
		InstallationID:    firstNonZero(env.InstallationID, c.InstallationID),
		InstallationOwner: firstNonEmpty(env.InstallationOwner, c.InstallationOwner),
		TrustedCI:         env.GitHubActions,
		UseAmbient:        env.UseAmbientToken,
		AmbientToken:      env.GitHubToken,
	}

	if env.PrivateKey != "" {
		creds.PrivateKey = []byte(env.PrivateKey)
		return creds, nil
	}
	if path := firstNonEmpty(env.PrivateKeyPath, c.PrivateKeyPath); path != "" {
		key, err := os.ReadFile(path)
		if err != nil {
			return auth.Credentials{}, &auth.CredentialError{
				Input:  EnvPrivateKeyPath,
				Reason: "failed to read private key file",
				Err:    err,
			}
		}
		creds.PrivateKey = key
	}
	return creds, nil
}

func firstNonZero(vals ...int64) int64 {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Keys lists the settable config keys in display order.
func Keys() []string {
	return []string{
		"default_format",
		"api_url",
		"fetch_limit",
		"workers",
		"request_timeout",
		"max_retries",
		"pacing_interval",
		"repositories",
		"app_id",
		"installation_id",
		"installation_owner",
		"private_key_path",
	}
}

var secretKeys = []string{"private_key", "app_private_key", "token", "github_token", "ambient_token"}

// looksSecret reports whether value is key material or a GitHub token.
func looksSecret(value string) bool {
	v := strings.TrimSpace(value)
	if strings.Contains(v, "-----BEGIN") {
		return true
	}
	for _, prefix := range []string{"ghs_", "ghp_", "gho_", "ghu_", "github_pat_"} {
		if strings.HasPrefix(v, prefix) {
			return true
		}
	}
	return false
}

// Set updates one key from its string form.
func (c *Config) Set(key, value string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	if slices.Contains(secretKeys, key) || looksSecret(value) {
		return fmt.Errorf("%s: %w; use the %s or %s environment variables", key, ErrSecretValue, auth.EnvPrivateKey, auth.EnvAmbientToken)
	}

	var err error
	switch key {
	case "default_format":
		switch value {
		case "table", "json", "markdown":
			c.DefaultFormat = value
		default:
			return fmt.Errorf("invalid format %q: must be table, json or markdown", value)
		}
	case "api_url":
		c.APIURL = value
	case "fetch_limit":
		c.FetchLimit, err = positiveInt(value)
	case "workers":
		c.Workers, err = positiveInt(value)
	case "max_retries":
		c.MaxRetries, err = positiveInt(value)
	case "request_timeout":
		c.RequestTimeout, err = positiveDuration(value)
	case "pacing_interval":
		c.PacingInterval, err = positiveDuration(value)
	case "repositories":
		c.Repositories = splitList(value)
	case "app_id":
		c.AppID, err = strconv.ParseInt(value, 10, 64)
	case "installation_id":
		c.InstallationID, err = strconv.ParseInt(value, 10, 64)
	case "installation_owner":
		c.InstallationOwner = value
	case "private_key_path":
		c.PrivateKeyPath = value
	default:
		return fmt.Errorf("unknown config key %q (valid keys: %s)", key, strings.Join(Keys(), ", "))
	}
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return nil
}

func positiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("%d is not positive", n)
	}
	return n, nil
}

func positiveDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s is not positive", d)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Save writes the config to the global config file.
func (c *Config) Save() error {
	return c.SaveTo(ConfigPath())
}

// SaveTo writes the config to path, creating directories as needed.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ToYAML returns the config as a YAML string
func (c *Config) ToYAML() (string, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	return string(data), nil
}

// ConfigPathInfo contains information about config file paths
type ConfigPathInfo struct {
	GlobalPath   string
	GlobalExists bool
	LocalPath    string
	LocalExists  bool
}

// GetConfigPaths returns path info for both global and local configs
func GetConfigPaths() ConfigPathInfo {
	globalPath := ConfigPath()
	localPath := LocalConfigPath()

	absLocalPath, err := filepath.Abs(localPath)
	if err != nil {
		absLocalPath = localPath
	}

	_, globalErr := os.Stat(globalPath)
	_, localErr := os.Stat(localPath)

	return ConfigPathInfo{
		GlobalPath:   globalPath,
		GlobalExists: globalErr == nil,
		LocalPath:    absLocalPath,
		LocalExists:  localErr == nil,
	}
}
