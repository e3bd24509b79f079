package kit

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// MetricsAuth restricts /metrics to scrapers presenting token as a bearer
// credential. With no token configured every scrape is refused, so inventory
// gauges are never exposed by accident.
func MetricsAuth(token string, log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := bearerToken(r)
			if token == "" || !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				log.Warn("metrics scrape denied",
					zap.String("ip", clientIP(r)),
					zap.Bool("token_configured", token != ""),
					zap.Bool("credential_sent", ok),
				)
				WriteError(w, r, http.StatusForbidden, "forbidden", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || got == "" {
		return "", false
	}
	return got, true
}
