package middleware

import (
	"net/http"
	"strings"

	"lrcsync-go/logcolors"

	log "github.com/sirupsen/logrus"
)

// publicPaths matches request paths that skip authentication. An entry
// ending in "*" matches by prefix, anything else matches exactly.
type publicPaths []string

func (p publicPaths) matches(path string) bool {
	for _, pattern := range p {
		if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
			if strings.HasPrefix(path, prefix) {
				return true
			}
		} else if path == pattern {
			return true
		}
	}
	return false
}

func writeUnauthorized(w http.ResponseWriter, errMsg, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + errMsg + `","message":"` + detail + `"}`))
}

// APIKeyMiddleware gates requests on the X-API-Key header. With
// required false everything passes through; with required true but no
// key configured, requests pass with a warning so a misconfigured
// deploy degrades open instead of locking everyone out. Paths listed
// in public (e.g. /health) never need a key.
func APIKeyMiddleware(apiKey string, required bool, public []string) func(http.Handler) http.Handler {
	open := publicPaths(public)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !required {
				next.ServeHTTP(w, r)
				return
			}

			if apiKey == "" {
				log.Warnf("%s API key required but not configured, allowing request", logcolors.LogAPIKey)
				next.ServeHTTP(w, r)
				return
			}

			path := r.URL.Path
			if open.matches(path) {
				next.ServeHTTP(w, r)
				return
			}

			switch provided := r.Header.Get("X-API-Key"); {
			case provided == "":
				log.Warnf("%s Missing API key from %s for %s", logcolors.LogAPIKey, r.RemoteAddr, path)
				writeUnauthorized(w, "API key required", "Provide a valid API key via X-API-Key header")
			case provided != apiKey:
				log.Warnf("%s Invalid API key from %s for %s", logcolors.LogAPIKey, r.RemoteAddr, path)
				writeUnauthorized(w, "Invalid API key", "The provided API key is not valid")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
