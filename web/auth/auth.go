package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/clerkinc/clerk-sdk-go/clerk"
	"go.uber.org/zap"
)

// VerifyFunc checks a bearer token and returns the user id it was issued to.
type VerifyFunc func(token string) (string, error)

// AuthMiddleware handles Clerk authentication and adds user info to the request context
type AuthMiddleware struct {
	verify VerifyFunc
	logger *zap.Logger
}

// ContextKey is used to store user information in the request context
type ContextKey string

const (
	// UserIDKey is the context key for storing the user ID
	UserIDKey ContextKey = "user_id"
	// AuthHeaderName is the name of the authentication header
	AuthHeaderName = "Authorization"

	principalKey ContextKey = "principal"
)

var ErrUnauthenticated = errors.New("user not authenticated")

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(clerkAPIKey string, logger *zap.Logger) (*AuthMiddleware, error) {
	client, err := clerk.NewClient(clerkAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create Clerk client: %w", err)
	}

	verify := func(token string) (string, error) {
		claims, err := client.VerifyToken(token)
		if err != nil {
			return "", err
		}

		return claims.Subject, nil
	}

	return NewWithVerifier(verify, logger), nil
}

func NewWithVerifier(verify VerifyFunc, logger *zap.Logger) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AuthMiddleware{verify: verify, logger: logger}
}

// Authenticate rejects requests without a valid bearer token.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, "Unauthorized: missing or invalid authorization header")

			return
		}

		userID, err := m.verify(token)
		if err != nil {
			m.logger.Info("token verification failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Error(err))
			writeError(w, "Unauthorized: invalid token")

			return
		}

		if userID == "" {
			writeError(w, "Unauthorized: invalid user claims")

			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.Fields(r.Header.Get(AuthHeaderName))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	return parts[1], true
}

func writeError(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprintf(w, "{\"success\":false,\"error\":%q}\n", msg)
}

type principal struct {
	userID string
}

// Track prepares ctx so that a user authenticated further down the handler
// chain is visible to GetUserID calls made with ctx, e.g. by request loggers.
func Track(ctx context.Context) context.Context {
	return context.WithValue(ctx, principalKey, &principal{})
}

// WithUserID returns a context carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	if p, ok := ctx.Value(principalKey).(*principal); ok {
		p.userID = userID
	}

	return context.WithValue(ctx, UserIDKey, userID)
}

// GetUserID extracts the user ID from the request context
func GetUserID(ctx context.Context) (string, error) {
	if userID, ok := ctx.Value(UserIDKey).(string); ok && userID != "" {
		return userID, nil
	}

	if p, ok := ctx.Value(principalKey).(*principal); ok && p.userID != "" {
		return p.userID, nil
	}

	return "", ErrUnauthenticated
}
