// Package auth verifies Supabase access tokens and carries the caller in the request context.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/yegors/preflight/internal/config"
	"github.com/yegors/preflight/pkg/logger"
)

// ErrNoToken is returned when a request carries no access token
var ErrNoToken = errors.New("no access token")

// TokenQueryParam carries the token for WebSocket upgrades, which cannot set headers in browsers
const TokenQueryParam = "access_token"

// User is the authenticated caller
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// Claims are the Supabase access token claims we use
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

type userContextKey struct{}

// WithUser returns a context carrying the user
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userContextKey{}, u)
}

// UserFrom returns the user attached by the middleware
func UserFrom(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(userContextKey{}).(User)
	return u, ok
}

// Verifier checks access tokens
type Verifier struct {
	secret  []byte
	parser  *jwt.Parser
	devUser *User
	logger  *logger.Logger
}

// NewVerifier creates a verifier from the auth settings.
// With auth disabled every request is authenticated as the dev user.
func NewVerifier(cfg config.AuthConfig, log *logger.Logger) *Verifier {
	v := &Verifier{
		secret: []byte(cfg.JWTSecret),
		logger: log.Named("auth"),
	}
	if cfg.Disabled {
		v.devUser = &User{ID: cfg.DevUserID, Email: "dev@localhost", Role: "authenticated"}
		v.logger.Warn("Authentication disabled, all requests run as the dev user",
			logger.String("user_id", cfg.DevUserID))
	}

	opts := []jwt.ParserOption{
		jwt.WithLeeway(5 * time.Second),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	if cfg.SupabaseURL != "" {
		opts = append(opts, jwt.WithIssuer(cfg.SupabaseURL+"/auth/v1"))
	}
	v.parser = jwt.NewParser(opts...)
	return v
}

// Verify parses a token and returns its user
func (v *Verifier) Verify(token string) (User, error) {
	if token == "" {
		return User{}, ErrNoToken
	}
	tk, err := v.parser.ParseWithClaims(token, &Claims{}, func(tk *jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return User{}, fmt.Errorf("failed to parse jwt: %w", err)
	}

	claims := tk.Claims.(*Claims)
	if claims.Subject == "" {
		return User{}, errors.New("token has no subject")
	}
	return User{ID: claims.Subject, Email: claims.Email, Role: claims.Role}, nil
}

// Authenticate resolves the user of a request
func (v *Verifier) Authenticate(r *http.Request) (User, error) {
	if v.devUser != nil {
		return *v.devUser, nil
	}
	return v.Verify(TokenFromRequest(r))
}

// Middleware attaches the user to the request context when the token is valid
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := v.Authenticate(r)
		if err == nil {
			r = r.WithContext(WithUser(r.Context(), u))
		} else if !errors.Is(err, ErrNoToken) {
			v.logger.Debug("Rejected access token",
				logger.String("path", r.URL.Path),
				logger.Error(err))
		}
		next.ServeHTTP(w, r)
	})
}

// Required rejects requests without a user
func Required(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFrom(r.Context()); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"authentication required"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// TokenFromRequest reads a bearer token or the access_token query parameter
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if scheme, token, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	return r.URL.Query().Get(TokenQueryParam)
}
