package config

import (
	"time"

	pkgconfig "github.com/weiawesome/plantpal/pkg/config"
	"github.com/weiawesome/plantpal/pkg/storage"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Cache      CacheConfig
	Kafka      KafkaConfig
	Reconciler ReconcilerConfig
	Storage    StorageConfig
	Media      MediaConfig
	Search     SearchConfig
	Auth       AuthConfig
	Feed       FeedConfig
	Store      StoreConfig
	Log        LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	FilePath        string        `mapstructure:"file_path"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime int           `mapstructure:"conn_max_lifetime"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
	LogLevel        string        `mapstructure:"log_level"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CacheConfig struct {
	FollowingTTL      time.Duration `mapstructure:"following_ttl"`
	FollowersCountTTL time.Duration `mapstructure:"followers_count_ttl"`
}

// KafkaConfig configures activity events. Empty Brokers disables Kafka and
// events are applied in-process.
type KafkaConfig struct {
	Brokers    string `mapstructure:"brokers"`
	Topic      string `mapstructure:"topic"`
	GroupID    string `mapstructure:"group_id"`
	Partitions int    `mapstructure:"partitions"`
}

type ReconcilerConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	TopN     int           `mapstructure:"top_n"`
}

type StorageConfig struct {
	Driver string              `mapstructure:"driver"` // local, s3
	Local  storage.LocalConfig `mapstructure:"local"`
	S3     storage.S3Config    `mapstructure:"s3"`
}

type MediaConfig struct {
	MaxBytes    int64 `mapstructure:"max_bytes"`
	MaxWidth    int   `mapstructure:"max_width"`
	JPEGQuality int   `mapstructure:"jpeg_quality"`
}

type SearchConfig struct {
	Driver    string   `mapstructure:"driver"` // database, elasticsearch
	Addresses []string `mapstructure:"addresses"`
	Index     string   `mapstructure:"index"`
}

type AuthConfig struct {
	Mode      string `mapstructure:"mode"` // trust, jwt
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

type FeedConfig struct {
	DefaultPageSize int `mapstructure:"default_page_size"`
	MaxPageSize     int `mapstructure:"max_page_size"`
	CommentPreview  int `mapstructure:"comment_preview"`
}

type StoreConfig struct {
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryBackoff  time.Duration `mapstructure:"retry_backoff"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load(pkgconfig.Source{Name: "config", Paths: []string{"./config", "."}})
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "plantpal")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.file_path", "./data/plantpal.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("database.query_timeout", "5s")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("cache.following_ttl", "10m")
	v.SetDefault("cache.followers_count_ttl", "1h")
	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic", "plantpal.activity")
	v.SetDefault("kafka.group_id", "plantpal-api")
	v.SetDefault("kafka.partitions", 3)
	v.SetDefault("reconciler.interval", "60s")
	v.SetDefault("reconciler.top_n", 100)
	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.local.base_path", "./data/images")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.bucket", "plantpal-images")
	v.SetDefault("storage.s3.use_path_style", true)
	v.SetDefault("media.max_bytes", 10<<20)
	v.SetDefault("media.max_width", 1600)
	v.SetDefault("media.jpeg_quality", 85)
	v.SetDefault("search.driver", "database")
	v.SetDefault("search.addresses", []string{"http://localhost:9200"})
	v.SetDefault("search.index", "plantpal-posts")
	v.SetDefault("auth.mode", "trust")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("feed.default_page_size", 20)
	v.SetDefault("feed.max_page_size", 100)
	v.SetDefault("feed.comment_preview", 3)
	v.SetDefault("store.retry_attempts", 3)
	v.SetDefault("store.retry_backoff", "50ms")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Bind environment variables
	v.BindEnv("server.port", "PORT")
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")
	v.BindEnv("database.sslmode", "DB_SSLMODE")
	v.BindEnv("database.file_path", "DB_FILE_PATH")
	v.BindEnv("database.max_idle_conns", "DB_MAX_IDLE_CONNS")
	v.BindEnv("database.max_open_conns", "DB_MAX_OPEN_CONNS")
	v.BindEnv("database.conn_max_lifetime", "DB_CONN_MAX_LIFETIME")
	v.BindEnv("database.query_timeout", "DB_QUERY_TIMEOUT")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("kafka.topic", "KAFKA_TOPIC")
	v.BindEnv("kafka.group_id", "KAFKA_GROUP_ID")
	v.BindEnv("kafka.partitions", "KAFKA_PARTITIONS")
	v.BindEnv("reconciler.interval", "RECONCILER_INTERVAL")
	v.BindEnv("reconciler.top_n", "RECONCILER_TOP_N")
	v.BindEnv("storage.driver", "STORAGE_DRIVER")
	v.BindEnv("storage.local.base_path", "STORAGE_LOCAL_PATH")
	v.BindEnv("storage.s3.endpoint", "S3_ENDPOINT")
	v.BindEnv("storage.s3.region", "S3_REGION")
	v.BindEnv("storage.s3.bucket", "S3_BUCKET")
	v.BindEnv("storage.s3.access_key_id", "S3_ACCESS_KEY_ID")
	v.BindEnv("storage.s3.secret_access_key", "S3_SECRET_ACCESS_KEY")
	v.BindEnv("search.driver", "SEARCH_DRIVER")
	v.BindEnv("search.addresses", "ELASTICSEARCH_ADDRESSES")
	v.BindEnv("search.index", "ELASTICSEARCH_INDEX")
	v.BindEnv("auth.mode", "AUTH_MODE")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("auth.issuer", "JWT_ISSUER")
	v.BindEnv("log.level", "LOG_LEVEL")
	v.BindEnv("log.format", "LOG_FORMAT")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
