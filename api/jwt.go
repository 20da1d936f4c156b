package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"campuswatch/config"
	"campuswatch/core"
	"github.com/golang-jwt/jwt/v5"
)

// Claims represents JWT claims
type Claims struct {
	UserID      string    `json:"userId"`
	AnonymousID string    `json:"anonymousId,omitempty"`
	Role        core.Role `json:"role"`
	IsAnonymous bool      `json:"isAnonymous"`
	jwt.RegisteredClaims
}

// Identity converts the claims to the identity snapshot carried by
// requests and cached on live connections.
func (c *Claims) Identity() core.Identity {
	return core.Identity{
		UserID:      c.UserID,
		AnonymousID: c.AnonymousID,
		Role:        c.Role,
		IsAnonymous: c.IsAnonymous,
	}
}

// generateJWT generates a JWT token for the given user
func generateJWT(user *core.User, cfg *config.Config) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:      user.ID,
		AnonymousID: user.AnonymousID,
		Role:        user.Role,
		IsAnonymous: user.IsAnonymous,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.Auth.JWTExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "campuswatch",
			Subject:   user.ID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.Auth.JWTSecret))
}

// validateJWT validates a JWT token and returns the claims
func validateJWT(tokenString string, cfg *config.Config) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(cfg.Auth.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if !claims.Role.IsValid() {
		return nil, errors.New("invalid role claim")
	}
	return claims, nil
}

// extractToken pulls the bearer token from the Authorization header, or
// from the token query parameter for websocket upgrades where browsers
// cannot set headers.
func extractToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
