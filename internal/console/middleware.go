package console

import (
	"context"
	"net/http"
	"strings"

	"github.com/outpost-game/outpost/internal/console/auth"
)

type ctxKeyUserID struct{}

// authUserID returns the user id the bearer token was issued for. Empty
// outside routes wrapped in requireAuth.
func authUserID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyUserID{}).(string)
	return id
}

// requireAuth guards the mutating routes. A valid bearer token puts the
// subject user id into the request context.
func (c *Console) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			renderError(w, r, http.StatusUnauthorized, "missing bearer token")
			return
		}

		userID, err := auth.VerifyToken(c.Config.SecretKey, token)
		if err != nil {
			renderError(w, r, http.StatusUnauthorized, "invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyUserID{}, userID)))
	})
}
