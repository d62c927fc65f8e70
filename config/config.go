package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds the configuration of a load.
// It is read from an optional YAML file. Environment variables always
// override YAML values. Secrets (passwords, DSNs) only come from the environment.
type Config struct {
	Env string `yaml:"env" env:"TG_ENV" env-default:"dev"`

	Log    LogConfig    `yaml:"log"`
	Import ImportConfig `yaml:"import"`
	Store  StoreConfig  `yaml:"store"`
	Ident  IdentConfig  `yaml:"ident"`
	Search SearchConfig `yaml:"search"`

	// MetricsAddr is the listen address for /metrics. Empty disables it.
	MetricsAddr string `yaml:"metrics_addr" env:"TG_METRICS_ADDR" env-default:""`
}

type LogConfig struct {
	// Sink is file, cwlog or stderr
	Sink     string   `yaml:"sink" env:"TG_LOG_SINK" env-default:"file"`
	Dir      string   `yaml:"dir" env:"LOGDIR" env-default:""`
	Group    string   `yaml:"group" env:"TG_LOG_GROUP" env-default:""`
	Debug    bool     `yaml:"debug" env:"TG_DEBUG" env-default:"false"`
	Services []string `yaml:"services" env:"TG_LOG_SERVICES" env-separator:","`
}

type ImportConfig struct {
	// Mode is full, snapshot or active
	Mode             string `yaml:"mode" env:"TG_IMPORT_MODE" env-default:"snapshot"`
	BatchSize        int    `yaml:"batch_size" env:"TG_BATCH_SIZE" env-default:"10000"`
	PermitMultiplier int    `yaml:"permit_multiplier" env:"TG_PERMIT_MULTIPLIER" env-default:"2"`
}

type StoreConfig struct {
	// Backend is memory, dynamodb, spanner or neo4j
	Backend string `yaml:"backend" env:"TG_STORE" env-default:"memory"`

	DynamoTable string `yaml:"dynamo_table" env:"TG_DYNAMO_TABLE" env-default:"TermGraph"`

	SpannerDB string `yaml:"spanner_db" env:"TG_SPANNER_DB" env-default:""`

	Neo4jURI      string `yaml:"neo4j_uri" env:"NEO4J_URI" env-default:"neo4j://localhost:7687"`
	Neo4jUser     string `yaml:"neo4j_user" env:"NEO4J_USER" env-default:"neo4j"`
	Neo4jPassword string `yaml:"-" env:"NEO4J_PASSWORD"`
	Neo4jDatabase string `yaml:"neo4j_database" env:"NEO4J_DATABASE" env-default:"neo4j"`
}

type IdentConfig struct {
	// Backend is memory or mysql
	Backend  string `yaml:"backend" env:"TG_IDENT" env-default:"memory"`
	MySQLDSN string `yaml:"-" env:"TG_MYSQL_DSN"`
}

type SearchConfig struct {
	// Addresses of Elasticsearch nodes. Empty disables indexing to Elasticsearch.
	Addresses []string `yaml:"addresses" env:"TG_ES_ADDRESSES" env-separator:","`
	Index     string   `yaml:"index" env:"TG_ES_INDEX" env-default:"termgraphidx"`
}

// Load reads path (if not empty) with environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func oneOf(field, v string, allowed ...string) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return fmt.Errorf("%s %q must be one of %v", field, v, allowed)
}

func (c *Config) Validate() error {
	if err := oneOf("log.sink", c.Log.Sink, "file", "cwlog", "stderr"); err != nil {
		return err
	}
	if err := oneOf("import.mode", c.Import.Mode, "full", "snapshot", "active"); err != nil {
		return err
	}
	if err := oneOf("store.backend", c.Store.Backend, "memory", "dynamodb", "spanner", "neo4j"); err != nil {
		return err
	}
	if err := oneOf("ident.backend", c.Ident.Backend, "memory", "mysql"); err != nil {
		return err
	}
	if c.Import.BatchSize < 1 {
		return fmt.Errorf("import.batch_size must be positive, got %d", c.Import.BatchSize)
	}
	if c.Import.PermitMultiplier < 1 {
		return fmt.Errorf("import.permit_multiplier must be positive, got %d", c.Import.PermitMultiplier)
	}
	if c.Store.Backend == "spanner" && c.Store.SpannerDB == "" {
		return fmt.Errorf("store.spanner_db is required for the spanner backend")
	}
	// nids and stamps of a persistent store must survive the load
	if c.Store.Backend != "memory" && c.Ident.Backend == "memory" {
		return fmt.Errorf("store.backend %q needs a persistent identity backend: set ident.backend to mysql", c.Store.Backend)
	}
	if c.Ident.Backend == "mysql" && c.Ident.MySQLDSN == "" {
		return fmt.Errorf("TG_MYSQL_DSN is required for the mysql identity backend")
	}
	return nil
}
