package middleware

import (
	"errors"
	"net/http"
	"strings"

	"cartsync/pkg/auth"
	"cartsync/pkg/common"
	pkgerrors "cartsync/pkg/errors"

	"go.uber.org/zap"
)

// Authenticate requires a bearer credential on the request. When validator is
// nil the credential is treated as an opaque token and passed through
// unchecked; otherwise it must be a valid JWT. The raw token is stored in the
// request context for the session signal.
func Authenticate(validator *auth.JWTValidator, errs *pkgerrors.ErrorHandler, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				errs.Handle(w, r, pkgerrors.NewUnauthorizedError("Missing authentication token"))
				return
			}

			ctx := common.WithCredential(r.Context(), token)

			if validator != nil {
				claims, err := validator.ValidateToken(token)
				if err != nil {
					logger.Warn("Invalid token",
						zap.Error(err),
						zap.String("ip", getClientIP(r)),
						zap.String("path", r.URL.Path),
					)
					errs.Handle(w, r, pkgerrors.NewUnauthorizedError(tokenErrorMessage(err)))
					return
				}
				ctx = auth.SetUserInContext(ctx, &auth.UserContext{
					UserID: claims.UserID,
					Email:  claims.Email,
					Roles:  claims.Roles,
				})
				logger.Debug("Request authenticated",
					zap.String("user_id", claims.UserID),
					zap.String("path", r.URL.Path),
				)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenErrorMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token has expired"
	case errors.Is(err, auth.ErrInvalidSignature):
		return "Invalid token signature"
	default:
		return "Invalid token"
	}
}

// extractToken reads the bearer token from the Authorization header
func extractToken(r *http.Request) string {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// getClientIP extracts the client IP address
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}
