package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/facturio/invoicing-system/internal/core/domain"
)

// Auth validates the JWT and injects the session envelope into context.
func Auth(jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			claims := jwt.MapClaims{}
			tkn, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
					return nil, jwt.ErrTokenSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !tkn.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			sess := domain.Session{
				PrincipalID: stringClaim(claims, "principal_id"),
				Role:        stringClaim(claims, "role"),
				StoreID:     stringClaim(claims, "store_id"),
				OwnerID:     stringClaim(claims, "owner_id"),
			}
			if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
				sess.ExpiresAt = exp.Time
			}
			if sess.Expired(time.Now()) {
				return echo.NewHTTPError(http.StatusUnauthorized, "token expired")
			}

			c.Set("session", sess)
			c.Set("role", sess.Role)

			return next(c)
		}
	}
}

func stringClaim(claims jwt.MapClaims, key string) string {
	v, _ := claims[key].(string)
	return v
}
