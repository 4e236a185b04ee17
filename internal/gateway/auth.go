package gateway

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenExpired is returned before any request is sent when the configured
// JWT's exp claim is in the past.
var ErrTokenExpired = errors.New("gateway: token expired")

// checkToken inspects the token's claims without verifying the signature.
// Opaque (non-JWT) tokens are passed through for the backend to judge.
func (c *Client) checkToken() error {
	if c.token == "" || strings.Count(c.token, ".") != 2 {
		return nil
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(c.token, claims); err != nil {
		return nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	if !c.now().Before(exp.Time) {
		return ErrTokenExpired
	}
	return nil
}
