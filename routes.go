package main

import (
	"net/http"

	"github.com/gorilla/mux"
)

// setupRoutes configures all HTTP routes for the API
func setupRoutes(router *mux.Router) {
	// Lyrics fetching - default endpoint tries lrclib, then kugou
	router.HandleFunc("/getLyrics", getLyrics).Methods(http.MethodGet)

	// Provider-specific endpoints
	router.HandleFunc("/lrclib/getLyrics", getLyricsWithProvider("lrclib")).Methods(http.MethodGet)
	router.HandleFunc("/kugou/getLyrics", getLyricsWithProvider("kugou")).Methods(http.MethodGet)

	// Engine endpoints - operate directly on LRC documents
	router.HandleFunc("/parse", parseLyrics).Methods(http.MethodPost)
	router.HandleFunc("/line", getLine).Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc("/adjustOffset", adjustOffset).Methods(http.MethodPost)

	// Cache management endpoints
	router.HandleFunc("/cache", getCacheDump)
	router.HandleFunc("/cache/clear", clearCache)
	router.HandleFunc("/cache/clear/{provider}", clearProviderCache)

	// Health and stats endpoints
	router.HandleFunc("/health", getHealthStatus)
	router.HandleFunc("/stats", getStats)

	// Circuit breaker endpoints
	router.HandleFunc("/circuit-breaker", getCircuitBreakerStatus)
	router.HandleFunc("/circuit-breaker/reset", resetCircuitBreaker)

	// Help endpoint
	router.HandleFunc("/", helpHandler)
}
