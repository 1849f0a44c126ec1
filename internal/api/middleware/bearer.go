package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/carelink/carelink/internal/api/models"
)

// BearerToken creates middleware that guards an endpoint with a pre-shared
// bearer token. The comparison is constant-time. When no token is
// configured the endpoint is denied outright rather than left open.
func BearerToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				writeProblem(w, r, models.NewForbidden(GetRequestID(r.Context()),
					"endpoint disabled: no access token configured"))
				return
			}

			presented, ok := bearerToken(r)
			if !ok {
				writeProblem(w, r, models.NewUnauthorized(GetRequestID(r.Context()),
					"missing or malformed authorization header"))
				return
			}

			if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				writeProblem(w, r, models.NewForbidden(GetRequestID(r.Context()),
					"invalid access token"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	const bearerPrefix = "Bearer "
	if len(authHeader) <= len(bearerPrefix) ||
		!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	return authHeader[len(bearerPrefix):], true
}

// writeProblem is implemented directly here to avoid an import cycle with
// the response package.
func writeProblem(w http.ResponseWriter, r *http.Request, problem *models.Problem) {
	problem.Instance = r.URL.Path
	problem.Write(w)
}
