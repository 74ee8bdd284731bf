// Package auth resolves the owner of a request. Bearer tokens are HS256 JWTs
// whose subject is the owner identifier.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"chitieu/internal/log"
)

// DevOwnerHeader carries the owner in development setups without a secret.
const DevOwnerHeader = "X-Owner-ID"

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
	ErrNoSecret     = errors.New("no signing secret configured")
)

type Config struct {
	Secret    string
	Issuer    string
	DevHeader bool
}

type Authenticator struct {
	secret    []byte
	issuer    string
	devHeader bool
	logger    *log.Logger
}

func New(cfg Config, logger *log.Logger) *Authenticator {
	if logger == nil {
		logger = log.Discard()
	}
	a := &Authenticator{
		issuer:    cfg.Issuer,
		devHeader: cfg.DevHeader,
		logger:    logger.WithComponent(log.ComponentAuth),
	}
	if cfg.Secret != "" {
		a.secret = []byte(cfg.Secret)
	}
	return a
}

type ctxKey struct{}

// NewContext returns a copy of ctx carrying owner.
func NewContext(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ctxKey{}, owner)
}

// OwnerFromContext returns the authenticated owner, or "" when there is none.
func OwnerFromContext(ctx context.Context) string {
	owner, _ := ctx.Value(ctxKey{}).(string)
	return owner
}

// Owner resolves the owner of r. With a secret configured only bearer tokens
// are accepted; otherwise the development header is trusted when enabled.
func (a *Authenticator) Owner(r *http.Request) (string, error) {
	if a.secret == nil {
		if a.devHeader {
			if owner := strings.TrimSpace(r.Header.Get(DevOwnerHeader)); owner != "" {
				return owner, nil
			}
		}
		return "", ErrMissingToken
	}

	raw := bearerToken(r)
	if raw == "" {
		return "", ErrMissingToken
	}
	return a.Verify(raw)
}

// Verify checks a token and returns its subject.
func (a *Authenticator) Verify(raw string) (string, error) {
	if a.secret == nil {
		return "", ErrNoSecret
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// Issue signs a token for owner valid for ttl.
func (a *Authenticator) Issue(owner string, ttl time.Duration) (string, error) {
	if a.secret == nil {
		return "", ErrNoSecret
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   owner,
		Issuer:    a.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Middleware rejects requests without an owner and stores the owner in the
// request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner, err := a.Owner(r)
		if err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Request rejected",
				log.FieldPath, r.URL.Path,
				log.FieldErrorType, log.ErrorTypeAuth,
				log.FieldError, err.Error())
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("WWW-Authenticate", `Bearer realm="chitieu"`)
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), owner)))
	})
}

// bearerToken reads the Authorization header. Websocket upgrades may pass the
// token as the access_token query parameter since browsers cannot set headers.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return r.URL.Query().Get("access_token")
	}
	return ""
}
