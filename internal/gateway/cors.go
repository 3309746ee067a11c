// ABOUTME: Allow-all CORS middleware for browser clients of the HTTP API
// ABOUTME: Any origin, any method, any header; the API carries no credentials

package gateway

import "net/http"

// allowAllCORS wraps a handler with a permissive CORS policy: any origin, any
// method, any header. The API carries no credentials.
func allowAllCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "*")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
