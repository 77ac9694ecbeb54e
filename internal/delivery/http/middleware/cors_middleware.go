package middleware

import (
	"net/http"
	"slices"
)

type CORSMiddleware struct {
	allowedOrigins []string
	allowAny       bool
}

// NewCORSMiddleware allows the listed origins; "*" or an empty list allows any
func NewCORSMiddleware(allowedOrigins []string) *CORSMiddleware {
	return &CORSMiddleware{
		allowedOrigins: allowedOrigins,
		allowAny:       len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*"),
	}
}

func (m *CORSMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		origin := req.Header.Get("Origin")
		switch {
		case m.allowAny:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(m.allowedOrigins, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if req.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, req)
	})
}
