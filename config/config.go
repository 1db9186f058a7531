package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

var conf = mustLoad()

type Config struct {
	Configuration struct {
		Port                      string `envconfig:"PORT" default:"8080"`
		RateLimitPerSecond        int    `envconfig:"RATE_LIMIT_PER_SECOND" default:"2"`
		RateLimitBurstLimit       int    `envconfig:"RATE_LIMIT_BURST_LIMIT" default:"5"`
		CachedRateLimitPerSecond  int    `envconfig:"CACHED_RATE_LIMIT_PER_SECOND" default:"10"`
		CachedRateLimitBurstLimit int    `envconfig:"CACHED_RATE_LIMIT_BURST_LIMIT" default:"20"`
		CacheAccessToken          string `envconfig:"CACHE_ACCESS_TOKEN" default:""`
		CacheDBPath               string `envconfig:"CACHE_DB_PATH" default:"lyrics_cache.db"`
		APIKey                    string `envconfig:"API_KEY" default:""`

		// Upstream lyric sources
		LRCLibBaseURL        string `envconfig:"LRCLIB_BASE_URL" default:"https://lrclib.net"`
		KugouEnabled         bool   `envconfig:"KUGOU_ENABLED" default:"true"`
		DurationMatchDeltaMs int    `envconfig:"DURATION_MATCH_DELTA_MS" default:"2000"` // Reject upstream tracks outside this duration delta (in ms)

		NegativeCacheTTLInDays     int `envconfig:"NEGATIVE_CACHE_TTL_DAYS" default:"7"`         // TTL for caching "no lyrics found" responses
		CircuitBreakerThreshold    int `envconfig:"CIRCUIT_BREAKER_THRESHOLD" default:"5"`       // Consecutive failures before circuit opens
		CircuitBreakerCooldownSecs int `envconfig:"CIRCUIT_BREAKER_COOLDOWN_SECS" default:"300"` // Seconds to wait before retrying (default: 5 minutes)
	}

	FeatureFlags struct {
		CacheCompression bool `envconfig:"FF_CACHE_COMPRESSION" default:"true"`
		CacheOnlyMode    bool `envconfig:"FF_CACHE_ONLY_MODE" default:"false"`
		RequireAPIKey    bool `envconfig:"FF_REQUIRE_API_KEY" default:"false"`
	}
}

// load loads the configuration from the environment.
func load() (Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Warnf("Error loading env config: %v", err)
	}

	cfg := Config{}
	err = envconfig.Process("", &cfg)
	return cfg, err
}

func mustLoad() Config {
	c, err := load()
	if err != nil {
		log.WithError(err).Warnf("Unable to load configuration")
	}

	return c
}

func Get() Config {
	return conf
}
