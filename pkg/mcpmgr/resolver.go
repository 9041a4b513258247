package mcpmgr

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when neither Resolver.ConfigPath nor
	// EnvConfigPath is set.
	DefaultConfigPath = "mcp-servers.json"
	// EnvConfigPath overrides the config file location.
	EnvConfigPath = "MCP_SERVERS_CONFIG"

	// Legacy single-server variables.
	EnvLegacyEntry   = "MCP_ENTRY"
	EnvLegacyDataDir = "MCP_DATA_DIR"
	EnvLegacyLogPath = "MCP_LOG_PATH"

	// LegacyServerName names the descriptor built from the legacy variables.
	LegacyServerName = "default"
)

// EnvLookup resolves environment variables. It has the shape of os.LookupEnv.
type EnvLookup func(key string) (string, bool)

// ProcessEnv reads the real process environment.
func ProcessEnv(key string) (string, bool) { return os.LookupEnv(key) }

// LoadEnvOverlay reads a dotenv file and returns a lookup that consults the
// file first and the process environment second. A missing file yields the
// process environment unchanged. The process environment is never modified.
func LoadEnvOverlay(path string) (EnvLookup, error) {
	if path == "" {
		return ProcessEnv, nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ProcessEnv, nil
		}
		return nil, fmt.Errorf("env file %s: %w", path, err)
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("env file %s: %w", path, err)
	}
	return func(key string) (string, bool) {
		if v.IsSet(key) {
			return v.GetString(key), true
		}
		return os.LookupEnv(key)
	}, nil
}

// Resolver produces ServerDescriptors from a config file or, when no file
// exists, from the legacy single-server environment variables. Resolve keeps
// no state between calls.
type Resolver struct {
	// ConfigPath is the explicit config file location. When empty,
	// EnvConfigPath and then DefaultConfigPath are used.
	ConfigPath string
	// Env resolves environment variables. Defaults to ProcessEnv.
	Env EnvLookup
	// Logger receives warnings about empty configurations.
	Logger *slog.Logger
}

// fileConfig mirrors the on-disk shape: {"servers": {name: {...}}}.
type fileConfig struct {
	Servers *map[string]fileServer `json:"servers" yaml:"servers"`
}

type fileServer struct {
	Transport string            `json:"transport" yaml:"transport"`
	Command   string            `json:"command" yaml:"command"`
	Args      []string          `json:"args" yaml:"args"`
	Env       map[string]string `json:"env" yaml:"env"`
	URL       string            `json:"url" yaml:"url"`
	LogPath   string            `json:"logPath" yaml:"logPath"`
}

// Bootstrap adapts the resolver for NewManager.
func (r *Resolver) Bootstrap() Bootstrap {
	return r.Resolve
}

// Resolve returns the configured descriptors sorted by name. A present but
// broken config file is an error; having no configuration at all is not.
func (r *Resolver) Resolve() ([]ServerDescriptor, error) {
	path := r.configPath()
	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		return nil, fmt.Errorf("config file %s: is a directory", path)
	case err == nil:
		return r.resolveFile(path)
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return r.resolveLegacy(), nil
}

func (r *Resolver) env() EnvLookup {
	if r.Env != nil {
		return r.Env
	}
	return ProcessEnv
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *Resolver) configPath() string {
	if r.ConfigPath != "" {
		return r.ConfigPath
	}
	if p, ok := r.env()(EnvConfigPath); ok && p != "" {
		return p
	}
	return DefaultConfigPath
}

func (r *Resolver) resolveFile(path string) ([]ServerDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	expanded := expandEnvVars(string(data), r.env())

	var cfg fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal([]byte(expanded), &cfg)
	default:
		err = json.Unmarshal([]byte(expanded), &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("config file %s: parse: %w", path, err)
	}
	if cfg.Servers == nil {
		return nil, fmt.Errorf("config file %s: missing required \"servers\" key", path)
	}

	servers := *cfg.Servers
	descriptors := make([]ServerDescriptor, 0, len(servers))
	for name, s := range servers {
		kind, streamable, ok := parseTransport(s.Transport)
		if !ok {
			return nil, fmt.Errorf("config file %s: server %q: unsupported transport %q", path, name, s.Transport)
		}
		d := ServerDescriptor{
			Name:             name,
			Transport:        kind,
			Command:          s.Command,
			Args:             s.Args,
			Env:              s.Env,
			URL:              s.URL,
			LogPath:          s.LogPath,
			PreferStreamable: streamable,
		}
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		descriptors = append(descriptors, d)
	}
	if len(descriptors) == 0 {
		r.logger().Warn("config file declares no servers", "path", path)
	}
	sort.Slice(descriptors, func(i, j int) bool { return descriptors[i].Name < descriptors[j].Name })
	return descriptors, nil
}

func (r *Resolver) resolveLegacy() []ServerDescriptor {
	lookup := r.env()
	entry, _ := lookup(EnvLegacyEntry)
	dataDir, _ := lookup(EnvLegacyDataDir)
	logPath, _ := lookup(EnvLegacyLogPath)

	if entry == "" && dataDir == "" {
		r.logger().Warn("no MCP server configuration found",
			"config", r.configPath(),
			"legacy_vars", []string{EnvLegacyEntry, EnvLegacyDataDir},
		)
		return []ServerDescriptor{}
	}
	if entry == "" || dataDir == "" {
		r.logger().Warn("incomplete legacy MCP server configuration",
			EnvLegacyEntry, entry,
			EnvLegacyDataDir, dataDir,
		)
		return []ServerDescriptor{}
	}

	env := map[string]string{EnvLegacyDataDir: dataDir}
	if logPath != "" {
		env[EnvLegacyLogPath] = logPath
	}
	d := ServerDescriptor{
		Name:      LegacyServerName,
		Transport: TransportLocalProcess,
		Env:       env,
		LogPath:   logPath,
	}
	switch strings.ToLower(filepath.Ext(entry)) {
	case ".js", ".mjs", ".cjs":
		d.Command = "node"
		d.Args = []string{entry}
	default:
		d.Command = entry
	}
	return []ServerDescriptor{d}
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} with the looked-up value, or an empty
// string when unset.
func expandEnvVars(s string, lookup EnvLookup) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		value, _ := lookup(envVarPattern.FindStringSubmatch(match)[1])
		return value
	})
}
