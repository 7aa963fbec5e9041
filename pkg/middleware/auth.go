package middleware

import (
	"net/http"

	"travel-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserContext resolves the caller identity set by the upstream auth layer.
// Identity/authentication itself lives outside this service; the gateway in
// front of us validates the token and forwards the user id in X-User-ID.
func UserContext(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("X-User-ID")
			if header == "" {
				utils.ResponseUnauthorized(w, "Missing user identity")
				return
			}

			userID, err := uuid.Parse(header)
			if err != nil {
				logger.Warn("Invalid user id header", zap.String("value", header))
				utils.ResponseUnauthorized(w, "Invalid user identity")
				return
			}

			ctx := utils.SetUserContext(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
