package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config models markethire.yml.
type Config struct {
	Server struct {
		Addr     string `yaml:"addr"`
		BasePath string `yaml:"base_path"`
	} `yaml:"server"`
	Auth struct {
		JWTSecret       string `yaml:"jwt_secret"`
		TokenTTLMinutes int    `yaml:"token_ttl_minutes"`
	} `yaml:"auth"`
	Uploads struct {
		Dir          string `yaml:"dir"`
		PublicPrefix string `yaml:"public_prefix"`
	} `yaml:"uploads"`
	Listing struct {
		PageSize    int      `yaml:"page_size"`
		MaxPageSize int      `yaml:"max_page_size"`
		SortKeys    []string `yaml:"sort_keys"`
	} `yaml:"listing"`
	Catalog struct {
		Categories []CategorySeed `yaml:"categories"`
	} `yaml:"catalog"`
}

// CategorySeed describes one reference category and its tags for seeding.
type CategorySeed struct {
	Name string   `yaml:"name"`
	Slug string   `yaml:"slug"`
	Tags []string `yaml:"tags"`
}

// Load reads and validates config from the workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; run mh init or copy the default", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Server.BasePath == "" {
		return fmt.Errorf("config.server.base_path is required")
	}
	if !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config.server.base_path must start with /")
	}
	if c.Auth.TokenTTLMinutes <= 0 {
		return fmt.Errorf("config.auth.token_ttl_minutes must be positive")
	}
	if c.Listing.PageSize <= 0 {
		return fmt.Errorf("config.listing.page_size must be positive")
	}
	if c.Listing.MaxPageSize < c.Listing.PageSize {
		return fmt.Errorf("config.listing.max_page_size must be >= page_size")
	}
	for _, key := range c.Listing.SortKeys {
		switch key {
		case "created_at", "updated_at", "budget", "title":
		default:
			return fmt.Errorf("config.listing.sort_keys contains unknown key %s", key)
		}
	}
	seen := map[string]bool{}
	for _, cat := range c.Catalog.Categories {
		if cat.Name == "" {
			return fmt.Errorf("config.catalog.categories contains entry without name")
		}
		if seen[cat.Name] {
			return fmt.Errorf("config.catalog.categories has duplicate %s", cat.Name)
		}
		seen[cat.Name] = true
		for _, tag := range cat.Tags {
			if strings.TrimSpace(tag) == "" {
				return fmt.Errorf("category %s has empty tag", cat.Name)
			}
		}
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "markethire.yml")
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.Unmarshal([]byte(defaultTemplate), &cfg)
	return &cfg
}

// GenerateDefault returns the default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `server:
  addr: :8080
  base_path: /v1

auth:
  jwt_secret: ""
  token_ttl_minutes: 1440

uploads:
  dir: uploads
  public_prefix: /uploads/

listing:
  page_size: 20
  max_page_size: 100
  sort_keys: [created_at, updated_at, budget, title]

catalog:
  categories:
    - name: Listing optimization
      slug: listing-optimization
      tags: [seo, titles, keywords, infographics]

    - name: Moderation
      slug: moderation
      tags: [appeals, blocked-listings, account-recovery]

    - name: Reviews
      slug: reviews
      tags: [review-management, ratings]

    - name: Advertising
      slug: advertising
      tags: [promo-setup, bid-management, analytics]

    - name: Store setup
      slug: store-setup
      tags: [onboarding, cards, catalogs]
`
