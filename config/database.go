package config

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"hookline"`
	Password string `env:"PASSWORD" envDefault:"hookline"`
	Name     string `env:"NAME"     envDefault:"hookline"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"`
	// MaxOpenConns bounds the pool; ingestion bursts are absorbed by the queue, not the pool.
	MaxOpenConns int `env:"MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns int `env:"MAX_IDLE_CONNS" envDefault:"5"`
	// RunMigrationsOnStart applies embedded migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// RedisConfig contains Redis configuration. Redis backs the pub/sub bus and,
// optionally, the lease store.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	SentinelPort       string   `env:"SENTINEL_PORT"        envDefault:"26379"`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string `env:"CLUSTER_NODES"        envDefault:""`
	UseCluster         bool     `env:"USE_CLUSTER"          envDefault:"false"`
	// Disabled skips the Redis connection entirely; memory backends must be selected.
	Disabled bool `env:"DISABLED" envDefault:"false"`
}
