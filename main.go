package main

import (
	"net/http"
	"os"
	"sync"
	"time"

	"lrcsync-go/cache"
	"lrcsync-go/circuitbreaker"
	"lrcsync-go/config"
	"lrcsync-go/logcolors"
	"lrcsync-go/middleware"

	"golang.org/x/time/rate"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"

	// Providers register themselves with the registry
	_ "lrcsync-go/services/providers/kugou"
	_ "lrcsync-go/services/providers/lrclib"
)

var conf = config.Get()

var (
	persistentCache *cache.PersistentCache
	inFlightReqs    sync.Map
	breaker         *circuitbreaker.CircuitBreaker
)

func init() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.InfoLevel)
}

func main() {
	var err error
	persistentCache, err = cache.NewPersistentCache(conf.Configuration.CacheDBPath, conf.FeatureFlags.CacheCompression)
	if err != nil {
		log.Fatalf("%s Failed to initialize persistent cache: %v", logcolors.LogCacheInit, err)
	}
	defer persistentCache.Close()

	breaker = circuitbreaker.New(circuitbreaker.Config{
		Name:      "upstream",
		Threshold: conf.Configuration.CircuitBreakerThreshold,
		Cooldown:  time.Duration(conf.Configuration.CircuitBreakerCooldownSecs) * time.Second,
	})

	router := mux.NewRouter()
	setupRoutes(router)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedHeaders:   []string{"X-API-Key", "Authorization", "Content-Type"},
		AllowCredentials: false,
	})

	limiter := middleware.NewIPRateLimiter(
		rate.Limit(conf.Configuration.RateLimitPerSecond), conf.Configuration.RateLimitBurstLimit,
		rate.Limit(conf.Configuration.CachedRateLimitPerSecond), conf.Configuration.CachedRateLimitBurstLimit,
	)

	loggedRouter := middleware.LoggingMiddleware(router)
	corsHandler := c.Handler(loggedRouter)
	rateLimited := limitMiddleware(corsHandler, limiter)

	// Optional hard API key gate in front of everything except public paths
	handler := middleware.APIKeyMiddleware(
		conf.Configuration.APIKey,
		conf.FeatureFlags.RequireAPIKey,
		[]string{"/health", "/"},
	)(rateLimited)

	port := conf.Configuration.Port
	log.Infof("%s Server listening on port %s", logcolors.LogServer, port)
	log.Fatal(http.ListenAndServe(":"+port, handler))
}
