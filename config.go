package chronicle

import "time"

type (
	Config struct {
		MaxRetries int
		CacheSize  int
	}

	RedisConfig struct {
		Addr     string
		Password string
		Prefix   string
		DB       int
	}

	ArchiveConfig struct {
		WorkerCount  int
		MaxQueueSize int
		SaveTimeout  time.Duration
	}
)

const (
	DefaultRedisEndpoint = "localhost:6379"
	DefaultRedisPrefix   = "chronicle"
	DefaultRedisDB       = 0

	DefaultMaxRetries = 16
	DefaultCacheSize  = 4096

	DefaultArchiveWorkers     = 4
	DefaultArchiveQueueSize   = 1024
	DefaultArchiveSaveTimeout = 30 * time.Second
)

func DefaultConfig() Config {
	return Config{
		MaxRetries: DefaultMaxRetries,
		CacheSize:  DefaultCacheSize,
	}
}

func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:   DefaultRedisEndpoint,
		Prefix: DefaultRedisPrefix,
		DB:     DefaultRedisDB,
	}
}

func DefaultArchiveConfig() ArchiveConfig {
	return ArchiveConfig{
		WorkerCount:  DefaultArchiveWorkers,
		MaxQueueSize: DefaultArchiveQueueSize,
		SaveTimeout:  DefaultArchiveSaveTimeout,
	}
}
