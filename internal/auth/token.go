package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpired reports whether a bearer token carries an exp claim in the
// past. Tokens that are not JWTs, or carry no exp, are treated as live and
// left for the backend to reject.
func TokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}
