// Package auth issues and verifies the bearer tokens handed out on login.
package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-order-go/internal/httpx"
	"github.com/ovaphlow/pitchfork/service-order-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-order-go/pkg/apperror"
)

const issuerName = "pitchfork-orders"

var ErrInvalidToken = apperror.New(apperror.KindUnauthorized, "Invalid or missing token.")

// Claims are the access token claims.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Issuer signs HS256 access tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	clock  clockwork.Clock
}

// NewIssuer builds an Issuer. An empty secret is replaced by a random one,
// which means tokens do not survive a restart.
func NewIssuer(secret string, ttl time.Duration, clock clockwork.Clock) (*Issuer, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate token secret: %w", err)
		}
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Issuer{secret: key, ttl: ttl, clock: clock}, nil
}

// Issue returns a signed token for id.
func (i *Issuer) Issue(id *entity.Identity) (string, error) {
	now := i.clock.Now()
	claims := Claims{
		Username: id.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuerName,
			Subject:   strconv.FormatInt(id.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Verify parses and validates a token.
func (i *Issuer) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuerName),
		jwt.WithTimeFunc(i.clock.Now),
	)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	return claims, nil
}

// RequireBearer rejects requests without a valid bearer token.
func RequireBearer(i *Issuer, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if len(h) < len("bearer ") || !strings.EqualFold(h[:len("bearer ")], "bearer ") {
				httpx.WriteError(w, logger, "auth", ErrInvalidToken)
				return
			}
			if _, err := i.Verify(strings.TrimSpace(h[len("bearer "):])); err != nil {
				httpx.WriteError(w, logger, "auth", err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
