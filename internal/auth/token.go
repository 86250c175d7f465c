package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/niklasbuhl/virtual-whiteboard-backend/internal/apperr"
)

// Claims is the session token payload. It binds the token to an account id
// and nothing else; roles are always resolved from the directory.
type Claims struct {
	User string `json:"user"`
	jwt.RegisteredClaims
}

// TokenCodec issues and validates HS256 session tokens.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenCodec constructs a codec. A zero ttl issues tokens without expiry.
func NewTokenCodec(secret string, ttl time.Duration) (*TokenCodec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &TokenCodec{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue signs a token for accountID.
func (c *TokenCodec) Issue(accountID string) (string, error) {
	now := c.now()
	claims := Claims{
		User: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if c.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(c.ttl))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Validate verifies tokenString and returns the account id it carries.
func (c *TokenCodec) Validate(tokenString string) (string, error) {
	if strings.TrimSpace(tokenString) == "" {
		return "", apperr.LoggedOut("Unauthorized.")
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.now))
	if err != nil || !token.Valid {
		return "", apperr.LoggedOut("Unauthorized.")
	}
	if strings.TrimSpace(claims.User) == "" {
		return "", apperr.LoggedOut("Unauthorized.")
	}
	return claims.User, nil
}

// ExtractAccountID reads the account id without verifying the signature.
// Use it only where the token was validated upstream.
func ExtractAccountID(tokenString string) (string, bool) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, &claims); err != nil {
		return "", false
	}
	if claims.User == "" {
		return "", false
	}
	return claims.User, true
}
