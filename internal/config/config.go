package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type CodebaseConfig struct {
	ID     string `yaml:"id"`
	Root   string `yaml:"root"`
	Module string `yaml:"module"` // import path prefix; defaults to ID
}

type Config struct {
	Store struct {
		Driver string `yaml:"driver"` // sqlite | neo4j
		SQLite struct {
			Path string `yaml:"path"`
		} `yaml:"sqlite"`
		Neo4j struct {
			URI      string `yaml:"uri"`
			User     string `yaml:"user"`
			Password string `yaml:"password"`
			Database string `yaml:"database"`
		} `yaml:"neo4j"`
	} `yaml:"store"`
	Migration struct {
		AutoMigrate           bool   `yaml:"auto_migrate"`
		BackupBeforeMigration bool   `yaml:"backup_before_migration"`
		BackupDir             string `yaml:"backup_dir"`
	} `yaml:"migration"`
	Report struct {
		FileTopN int `yaml:"file_top_n"`
	} `yaml:"report"`
	Codebases []CodebaseConfig `yaml:"codebases"`
	Analyzer  struct {
		Exclude []string `yaml:"exclude"`
	} `yaml:"analyzer"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	cfg.Store.Driver = "sqlite"
	cfg.Store.SQLite.Path = "codegraph.db"
	cfg.Store.Neo4j.URI = "bolt://localhost:7687"
	cfg.Store.Neo4j.User = "neo4j"
	cfg.Migration.AutoMigrate = true
	cfg.Migration.BackupBeforeMigration = true
	cfg.Migration.BackupDir = "backups"
	cfg.Report.FileTopN = 50
	cfg.Log.Level = "info"
	return &cfg
}

func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	// 2. Load YAML config over the defaults
	cfg := Default()
	file, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	// 3. Override with Environment Variables if present
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	for i := range cfg.Codebases {
		if cfg.Codebases[i].Module == "" {
			cfg.Codebases[i].Module = cfg.Codebases[i].ID
		}
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"CODEGRAPH_STORE_DRIVER":   &c.Store.Driver,
		"CODEGRAPH_SQLITE_PATH":    &c.Store.SQLite.Path,
		"CODEGRAPH_NEO4J_URI":      &c.Store.Neo4j.URI,
		"CODEGRAPH_NEO4J_USER":     &c.Store.Neo4j.User,
		"CODEGRAPH_NEO4J_PASSWORD": &c.Store.Neo4j.Password,
		"CODEGRAPH_NEO4J_DATABASE": &c.Store.Neo4j.Database,
		"CODEGRAPH_LOG_LEVEL":      &c.Log.Level,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"CODEGRAPH_AUTO_MIGRATE":            &c.Migration.AutoMigrate,
		"CODEGRAPH_BACKUP_BEFORE_MIGRATION": &c.Migration.BackupBeforeMigration,
	}
	for key, dst := range bools {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = b
	}
	return nil
}

// Validate rejects configurations the store or analyzer cannot use.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite", "neo4j":
	default:
		return fmt.Errorf("unsupported store driver %q", c.Store.Driver)
	}
	seen := make(map[string]bool)
	for _, cb := range c.Codebases {
		if cb.ID == "" {
			return errors.New("codebase without id")
		}
		if seen[cb.ID] {
			return fmt.Errorf("duplicate codebase id %q", cb.ID)
		}
		seen[cb.ID] = true
	}
	return nil
}
