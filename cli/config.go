package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ServerConfig is one named backend
type ServerConfig struct {
	URL         string `yaml:"url"`
	Description string `yaml:"description,omitempty"`
}

// Config holds the CLI server profiles, stored as YAML
type Config struct {
	DefaultServer string                  `yaml:"default_server"`
	Servers       map[string]ServerConfig `yaml:"servers"`
	path          string
}

// profilesPath is $ERRDASH_CONFIG, else ~/.errdash/config.yaml
func profilesPath() (string, error) {
	if p := os.Getenv("ERRDASH_CONFIG"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".errdash", "config.yaml"), nil
}

// LoadConfig reads the profiles. A missing file is created with a single
// "local" profile pointing at defaultURL.
func LoadConfig(defaultURL string) (*Config, error) {
	path, err := profilesPath()
	if err != nil {
		return nil, err
	}
	return loadProfiles(path, defaultURL)
}

func loadProfiles(path, defaultURL string) (*Config, error) {
	cfg := &Config{path: path, Servers: map[string]ServerConfig{}}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg.DefaultServer = "local"
		cfg.Servers["local"] = ServerConfig{URL: defaultURL, Description: "Local error tracking backend"}
		return cfg, cfg.Save()
	}
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	if cfg.Servers == nil {
		cfg.Servers = map[string]ServerConfig{}
	}
	return cfg, nil
}

// Save writes the profiles back, creating the directory if needed
func (c *Config) Save() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0700); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0600)
}

// AddServer stores a profile. The first profile becomes the default.
func (c *Config) AddServer(name, rawURL, description string) error {
	if name == "" {
		return fmt.Errorf("server name cannot be empty")
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("server URL %q must be absolute", rawURL)
	}

	c.Servers[name] = ServerConfig{URL: rawURL, Description: description}
	if c.DefaultServer == "" {
		c.DefaultServer = name
	}
	return c.Save()
}

// GetServer looks up a profile; "" means the default one
func (c *Config) GetServer(name string) (ServerConfig, error) {
	if name == "" {
		name = c.DefaultServer
	}
	server, ok := c.Servers[name]
	if !ok {
		return ServerConfig{}, fmt.Errorf("server %q not found", name)
	}
	return server, nil
}

// ServerNames lists profile names, sorted
func (c *Config) ServerNames() []string {
	names := make([]string, 0, len(c.Servers))
	for name := range c.Servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveServer turns the --server value into a backend URL. A value with a
// scheme is used as is; anything else names a profile. Empty picks the
// default profile, or fallback when no profile file can be used.
func ResolveServer(value, fallback string) (string, error) {
	if strings.Contains(value, "://") {
		return value, nil
	}

	cfg, err := LoadConfig(fallback)
	if err != nil {
		if value == "" {
			return fallback, nil
		}
		return "", err
	}

	server, err := cfg.GetServer(value)
	if err != nil {
		if value == "" {
			return fallback, nil
		}
		return "", fmt.Errorf("%w (known: %s)", err, strings.Join(cfg.ServerNames(), ", "))
	}
	return server.URL, nil
}
