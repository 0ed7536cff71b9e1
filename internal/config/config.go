package config

import (
	"fmt"
	"time"

	"github.com/alecthomas/kong"
)

const (
	BackendMemory   = "memory"
	BackendMongo    = "mongo"
	BackendDynamoDB = "dynamodb"
	BackendPostgres = "postgres"
)

type Config struct {
	HTTPPort        string        `help:"HTTP listen port." env:"HTTP_PORT" default:"8080"`
	RequestTimeout  time.Duration `help:"Per-request timeout." env:"REQUEST_TIMEOUT" default:"10s"`
	ShutdownTimeout time.Duration `help:"Graceful shutdown timeout." env:"SHUTDOWN_TIMEOUT" default:"10s"`
	LogLevel        string        `help:"Log level." env:"LOG_LEVEL" default:"info" enum:"debug,info,warn,error"`

	StoreBackend     string `help:"Basket store backend." env:"STORE_BACKEND" default:"mongo" enum:"memory,mongo,dynamodb,postgres"`
	BreakerEnabled   bool   `help:"Wrap the store in a circuit breaker." env:"BREAKER_ENABLED" default:"true" negatable:""`
	OwnerLockStripes int    `help:"Serialize operations per owner with this many lock stripes (0 disables)." env:"OWNER_LOCK_STRIPES" default:"0"`

	Mongo    MongoConfig    `embed:"" prefix:"mongo-"`
	Dynamo   DynamoConfig   `embed:"" prefix:"dynamo-"`
	Postgres PostgresConfig `embed:"" prefix:"db-"`
	Redis    RedisConfig    `embed:"" prefix:"redis-"`
	Kafka    KafkaConfig    `embed:"" prefix:"kafka-"`
}

type MongoConfig struct {
	URI         string `help:"MongoDB connection URI." env:"MONGO_URI" default:"mongodb://localhost:27017"`
	DBName      string `help:"MongoDB database." env:"MONGO_DB_NAME" default:"basketdb"`
	MaxPoolSize uint64 `help:"MongoDB connection pool size." env:"MONGO_MAX_POOL_SIZE" default:"50"`
}

type DynamoConfig struct {
	Table    string `help:"DynamoDB table." env:"DYNAMO_TABLE" default:"unishop"`
	Region   string `help:"AWS region." env:"AWS_REGION" default:"us-east-1"`
	Endpoint string `help:"DynamoDB endpoint override." env:"AWS_DYNAMODB_ENDPOINT"`
}

type PostgresConfig struct {
	Host           string `help:"Postgres host." env:"DB_HOST" default:"localhost"`
	Port           int    `help:"Postgres port." env:"DB_PORT" default:"5432"`
	User           string `help:"Postgres user." env:"DB_USER" default:"postgres"`
	Password       string `help:"Postgres password." env:"DB_PASSWORD" default:"postgres"`
	Name           string `help:"Postgres database." env:"DB_NAME" default:"imageshop"`
	SSLMode        string `help:"Postgres sslmode." env:"DB_SSLMODE" default:"disable"`
	MigrationsPath string `help:"Migrations directory; empty uses the migrations built into the binary." env:"MIGRATIONS_PATH"`
}

type RedisConfig struct {
	Addr     string        `help:"Redis address; empty disables the basket cache." env:"REDIS_ADDR"`
	Password string        `help:"Redis password." env:"REDIS_PASSWORD"`
	TTL      time.Duration `help:"Base lifetime of a cached basket." env:"REDIS_TTL" default:"5m"`
	Jitter   time.Duration `help:"Random extra lifetime added per entry." env:"REDIS_TTL_JITTER" default:"1m"`
}

type KafkaConfig struct {
	Brokers []string `help:"Kafka brokers; empty disables the checkout consumer." env:"KAFKA_BROKERS"`
	Topic   string   `help:"Checkout events topic." env:"KAFKA_TOPIC" default:"checkout-outbox"`
	GroupID string   `help:"Consumer group." env:"KAFKA_GROUP_ID" default:"basket-service-consumer"`
}

func (c *Config) Validate() error {
	if c.OwnerLockStripes < 0 {
		return fmt.Errorf("owner-lock-stripes must not be negative, got %d", c.OwnerLockStripes)
	}
	if c.StoreBackend == BackendPostgres && (c.Postgres.Port <= 0 || c.Postgres.Port > 65535) {
		return fmt.Errorf("invalid db-port %d", c.Postgres.Port)
	}
	return nil
}

// Load parses command-line arguments, falling back to environment variables
// and then to defaults.
func Load(args []string, options ...kong.Option) (*Config, error) {
	var cfg Config
	options = append([]kong.Option{
		kong.Name("basket-service"),
		kong.Description("Image basket membership service."),
	}, options...)

	parser, err := kong.New(&cfg, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to build config parser: %w", err)
	}
	if _, err := parser.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
