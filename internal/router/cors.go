package router

import (
	"net/http"
	"slices"
	"strings"
)

// corsPolicy is the parsed CORS_ALLOW_ORIGIN setting.
type corsPolicy struct {
	origins     []string
	wildcard    bool
	credentials bool
}

func newCORSPolicy(allowOrigin string, allowCredentials bool) corsPolicy {
	p := corsPolicy{credentials: allowCredentials}
	for _, o := range strings.Split(allowOrigin, ",") {
		if o = strings.TrimSpace(o); o != "" {
			p.origins = append(p.origins, o)
		}
	}
	p.wildcard = len(p.origins) == 0 || slices.Contains(p.origins, "*")
	return p
}

// allowOrigin returns the Access-Control-Allow-Origin value for a request
// origin and whether the answer depends on it.
func (p corsPolicy) allowOrigin(requestOrigin string) (string, bool) {
	switch {
	case p.wildcard && p.credentials && requestOrigin != "":
		// "*" is not accepted together with credentials
		return requestOrigin, true
	case p.wildcard:
		return "*", false
	case requestOrigin != "" && slices.Contains(p.origins, requestOrigin):
		return requestOrigin, true
	default:
		return "", true
	}
}

// withCORS adds CORS headers and answers preflight requests.
func withCORS(allowOrigin string, allowCredentials bool, h http.HandlerFunc) http.HandlerFunc {
	policy := newCORSPolicy(allowOrigin, allowCredentials)
	return func(w http.ResponseWriter, r *http.Request) {
		header := w.Header()
		origin, vary := policy.allowOrigin(r.Header.Get("Origin"))
		if origin != "" {
			header.Set("Access-Control-Allow-Origin", origin)
		}
		if vary {
			header.Set("Vary", "Origin")
		}
		if policy.credentials {
			header.Set("Access-Control-Allow-Credentials", "true")
		}
		header.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		header.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		header.Set("Access-Control-Expose-Headers", "X-Request-ID")
		header.Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h(w, r)
	}
}
